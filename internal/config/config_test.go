package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HUDDLE_STORE", "memory")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.PollInterval != 2*time.Second || cfg.LLMTimeout != 20*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.FacilitatorAuth {
		t.Fatalf("facilitator auth must be off by default")
	}
}

func TestLoadSQLStoreNeedsDSN(t *testing.T) {
	t.Setenv("HUDDLE_STORE", "SQLite")
	t.Setenv("HUDDLE_DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without dsn")
	}
	t.Setenv("HUDDLE_DB_DSN", "file:huddle.db")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != StoreSQLite {
		t.Fatalf("store = %q", cfg.Store)
	}
}

func TestLoadFacilitatorAuth(t *testing.T) {
	t.Setenv("HUDDLE_STORE", "memory")
	t.Setenv("HUDDLE_FACILITATOR_AUTH", "true")
	t.Setenv("HUDDLE_FACILITATOR_PASSCODE_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("HUDDLE_JWT_SECRET", "short")
	if _, err := Load(); err == nil {
		t.Fatalf("short secret should be rejected")
	}
	t.Setenv("HUDDLE_JWT_SECRET", "0123456789abcdef0123")
	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("HUDDLE_STORE", "redis")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("HUDDLE_STORE", "memory")
	t.Setenv("HUDDLE_LLM_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
