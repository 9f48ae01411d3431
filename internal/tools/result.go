package tools

// Status reports whether a tool execution succeeded.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorCode classifies tool failures for the model.
type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeExecution  ErrorCode = "execution"
)

// Error is a structured tool failure. It is returned inside Result so
// the model can read it and explain the failure, rather than as a Go
// error that would abort the turn.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Result is the uniform return value of every tool.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// errorResult builds an error Result.
func errorResult(code ErrorCode, message string) Result {
	return Result{
		Status:  StatusError,
		Message: message,
		Error:   &Error{Code: code, Message: message},
	}
}
