package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config that passes Validate, for tests to mutate.
func validConfig() Config {
	return Config{
		HTTPAddr:         "127.0.0.1:3400",
		DefaultOwner:     "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		RAGBaseURL:       "http://127.0.0.1:3400",
		EmbedderModel:    DefaultEmbedderModel,
		MaxSteps:         5,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "courtside",
		PostgresPassword: "secret",
		PostgresDBName:   "courtside",
		PostgresSSLMode:  "disable",
		RateRPS:          5,
		RateBurst:        10,
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "owner not a uuid",
			mutate:  func(c *Config) { c.DefaultOwner = "coach-01" },
			wantErr: ErrInvalidOwner,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "zero max steps",
			mutate:  func(c *Config) { c.MaxSteps = 0 },
			wantErr: ErrInvalidMaxSteps,
		},
		{
			name:    "max steps over budget",
			mutate:  func(c *Config) { c.MaxSteps = MaxAllowedSteps + 1 },
			wantErr: ErrInvalidMaxSteps,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty database name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "bogus sslmode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "maybe" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestOwnerParses(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	owner := cfg.Owner()
	assert.Equal(t, cfg.DefaultOwner, owner.String())
}

func TestMaskSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "short fully masked", secret: "12345678", want: maskedValue},
		{name: "long keeps edges", secret: "my_long_secret_key", want: "my<" + maskedValue + ">ey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, maskSecret(tt.secret))
		})
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "super_secret_password"

	data, err := cfg.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super_secret_password")
	assert.Contains(t, string(data), maskedValue)
}

func TestStringDoesNotLeakPassword(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "super_secret_password"
	assert.False(t, strings.Contains(cfg.String(), "super_secret_password"))
}

func TestPostgresConnectionString(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "p@ss word"

	dsn := cfg.PostgresConnectionString()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "password='p@ss word'")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestPostgresURLEncodesCredentials(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "p@ss/word"

	u := cfg.PostgresURL()
	assert.True(t, strings.HasPrefix(u, "postgres://"))
	assert.NotContains(t, u, "p@ss/word") // must be percent-encoded
	assert.Contains(t, u, "sslmode=disable")
}

func TestParseDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://coach:pw@db.internal:6543/rinck?sslmode=require")

	cfg := validConfig()
	require.NoError(t, cfg.parseDatabaseURL())

	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.Equal(t, 6543, cfg.PostgresPort)
	assert.Equal(t, "coach", cfg.PostgresUser)
	assert.Equal(t, "pw", cfg.PostgresPassword)
	assert.Equal(t, "rinck", cfg.PostgresDBName)
	assert.Equal(t, "require", cfg.PostgresSSLMode)
}

func TestParseDatabaseURLRejectsWrongScheme(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://coach:pw@db/rinck")

	cfg := validConfig()
	assert.Error(t, cfg.parseDatabaseURL())
}
