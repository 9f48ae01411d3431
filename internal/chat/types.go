// Package chat is the persistence gateway for conversations: chats,
// their messages, and per-message votes.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls who can read a chat.
type Visibility string

// Chat visibility values.
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility value.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Chat is one conversation.
type Chat struct {
	ID         uuid.UUID  `json:"id"`
	CreatedAt  time.Time  `json:"createdAt"`
	Title      string     `json:"title"`
	OwnerID    uuid.UUID  `json:"ownerId"`
	Visibility Visibility `json:"visibility"`
}

// Message is one stored conversation message. Content is the flattened
// text of the message; structured model parts are serialized before they
// reach the gateway.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chatId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Vote is a user's verdict on one assistant message. (ChatID, MessageID)
// is the primary key; repeated votes overwrite.
type Vote struct {
	ChatID    uuid.UUID `json:"chatId"`
	MessageID uuid.UUID `json:"messageId"`
	IsUpvoted bool      `json:"isUpvoted"`
}
