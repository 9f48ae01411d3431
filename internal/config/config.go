// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./config.yaml or ~/.courtside/config.yaml)
//  3. Default values
//
// Validation runs at load time and is fail-fast: a process with missing
// model credentials, an unparsable owner id, or unusable Postgres settings
// refuses to start rather than absorbing the failure per request.
//
// Security: sensitive values (the Postgres password) are masked in
// MarshalJSON and String so a logged Config never leaks credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is.
var (
	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidOwner indicates the default owner id is not a UUID.
	ErrInvalidOwner = errors.New("invalid default owner")

	// ErrInvalidEmbedderModel indicates the embedder model is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates an unsupported sslmode value.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidMaxSteps indicates the tool step budget is out of range.
	ErrInvalidMaxSteps = errors.New("invalid max steps")
)

// DefaultEmbedderModel is the default Gemini embedder model.
// gemini-embedding-001 supports truncation to 768 dimensions, which is
// what the pgvector schema uses; see knowledge.VectorDimension.
const DefaultEmbedderModel = "gemini-embedding-001"

// MaxAllowedSteps bounds the agentic tool loop per turn.
const MaxAllowedSteps = 10

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// HTTP server
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	// Owner identity. A single configured owner is attached to every
	// request; per-user auth is out of scope.
	DefaultOwner string `mapstructure:"default_owner" json:"default_owner"`

	// Retrieval service base URL used by the in-process retrieval client
	// and the fetchContext tool.
	RAGBaseURL string `mapstructure:"rag_base_url" json:"rag_base_url"`

	// Model orchestration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	MaxSteps      int    `mapstructure:"max_steps" json:"max_steps"`

	// Storage (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Per-IP rate limiting on POST /chat.
	RateRPS   float64 `mapstructure:"rate_rps" json:"rate_rps"`
	RateBurst int     `mapstructure:"rate_burst" json:"rate_burst"`

	// TrustProxy honors X-Real-IP/X-Forwarded-For when the server sits
	// behind a reverse proxy.
	TrustProxy bool `mapstructure:"trust_proxy" json:"trust_proxy"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".courtside")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(configDir)

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{".", configDir})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("http_addr", "127.0.0.1:3400")
	viper.SetDefault("rag_base_url", "http://127.0.0.1:3400")

	// Development owner; production deployments override this.
	viper.SetDefault("default_owner", "7c9e6679-7425-40de-944b-e07fc1f90ae7")

	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("max_steps", 5)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "courtside")
	viper.SetDefault("postgres_password", "courtside_dev_password")
	viper.SetDefault("postgres_db_name", "courtside")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("rate_rps", 5.0)
	viper.SetDefault("rate_burst", 10)
	viper.SetDefault("trust_proxy", false)
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper; Validate only
// checks its presence.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("http_addr", "COURTSIDE_HTTP_ADDR")
	mustBind("default_owner", "COURTSIDE_DEFAULT_OWNER")
	mustBind("rag_base_url", "COURTSIDE_RAG_BASE_URL")
	mustBind("embedder_model", "COURTSIDE_EMBEDDER_MODEL")
	mustBind("max_steps", "COURTSIDE_MAX_STEPS")
	mustBind("rate_rps", "COURTSIDE_RATE_RPS")
	mustBind("rate_burst", "COURTSIDE_RATE_BURST")
	mustBind("trust_proxy", "COURTSIDE_TRUST_PROXY")
}

// Validate checks the configuration and fails fast on anything the server
// cannot run with.
func (c *Config) Validate() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", ErrMissingAPIKey)
	}
	if _, err := uuid.Parse(c.DefaultOwner); err != nil {
		return fmt.Errorf("%w: %q is not a UUID", ErrInvalidOwner, c.DefaultOwner)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	if c.MaxSteps < 1 || c.MaxSteps > MaxAllowedSteps {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidMaxSteps, MaxAllowedSteps, c.MaxSteps)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

// Owner returns the parsed default owner id.
// Validate guarantees the value parses; a zero UUID is returned otherwise.
func (c *Config) Owner() uuid.UUID {
	owner, err := uuid.Parse(c.DefaultOwner)
	if err != nil {
		return uuid.Nil
	}
	return owner
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against the real
// secret in log output.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep
// the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
