package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the server configuration, read from HUDDLE_* environment variables.
type Config struct {
	Addr          string        `env:"HUDDLE_ADDR" envDefault:":8080"`
	Store         string        `env:"HUDDLE_STORE" envDefault:"memory"`
	DatabaseDSN   string        `env:"HUDDLE_DB_DSN"`
	MigrationsDir string        `env:"HUDDLE_MIGRATIONS_DIR"`
	PollInterval  time.Duration `env:"HUDDLE_POLL_INTERVAL" envDefault:"2s"`
	StaticDir     string        `env:"HUDDLE_STATIC_DIR"`

	OpenAIKey   string        `env:"HUDDLE_OPENAI_KEY"`
	OpenAIBase  string        `env:"HUDDLE_OPENAI_BASE"`
	OpenAIModel string        `env:"HUDDLE_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout  time.Duration `env:"HUDDLE_LLM_TIMEOUT" envDefault:"20s"`

	FacilitatorAuth         bool   `env:"HUDDLE_FACILITATOR_AUTH" envDefault:"false"`
	FacilitatorPasscodeHash string `env:"HUDDLE_FACILITATOR_PASSCODE_HASH"`
	JWTSecret               string `env:"HUDDLE_JWT_SECRET"`

	LogLevel     string `env:"HUDDLE_LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"HUDDLE_LOG_FORMAT" envDefault:"text"`
	OTelEndpoint string `env:"HUDDLE_OTEL_ENDPOINT"`

	Commit    string `env:"HUDDLE_COMMIT"`
	BuildTime string `env:"HUDDLE_BUILD_TIME"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("HUDDLE_DB_DSN is required for store %q", c.Store)
		}
	default:
		return fmt.Errorf("unknown HUDDLE_STORE %q", c.Store)
	}
	if c.PollInterval <= 0 {
		return errors.New("HUDDLE_POLL_INTERVAL must be positive")
	}
	if c.LLMTimeout <= 0 {
		return errors.New("HUDDLE_LLM_TIMEOUT must be positive")
	}
	if c.FacilitatorAuth {
		if strings.TrimSpace(c.FacilitatorPasscodeHash) == "" {
			return errors.New("HUDDLE_FACILITATOR_PASSCODE_HASH is required when facilitator auth is on")
		}
		if len(c.JWTSecret) < 16 {
			return errors.New("HUDDLE_JWT_SECRET must be at least 16 bytes when facilitator auth is on")
		}
	}
	return nil
}
