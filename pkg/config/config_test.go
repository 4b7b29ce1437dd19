package config

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func load(t *testing.T) *Config {
	t.Helper()

	cfg, loader := Loader()
	if err := loader.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

func TestDefaults(t *testing.T) {
	// Make sure an ambient STACK value doesn't leak into the assertions.
	t.Setenv("STACK", "")
	os.Unsetenv("STACK")

	cfg := load(t)

	if cfg.Stack != "" {
		t.Errorf("Stack = %q, want it unset", cfg.Stack)
	}
	if cfg.InstallDir != "/app/.heroku/python" {
		t.Errorf("InstallDir = %q, want %q", cfg.InstallDir, "/app/.heroku/python")
	}
	if cfg.SrcDir != "/tmp/src" {
		t.Errorf("SrcDir = %q, want %q", cfg.SrcDir, "/tmp/src")
	}
	if cfg.UploadDir != "/tmp/upload" {
		t.Errorf("UploadDir = %q, want %q", cfg.UploadDir, "/tmp/upload")
	}
	if cfg.Fetch.ConnectTimeout != 10*time.Second {
		t.Errorf("Fetch.ConnectTimeout = %v, want %v", cfg.Fetch.ConnectTimeout, 10*time.Second)
	}
	if cfg.Fetch.Retries != 3 {
		t.Errorf("Fetch.Retries = %d, want 3", cfg.Fetch.Retries)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
	if cfg.LogLevel() != zerolog.InfoLevel {
		t.Errorf("LogLevel() = %v, want %v", cfg.LogLevel(), zerolog.InfoLevel)
	}
}

func TestStackFromEnvironment(t *testing.T) {
	t.Setenv("STACK", "heroku-22")

	cfg := load(t)
	if cfg.Stack != "heroku-22" {
		t.Fatalf("Stack = %q, want %q", cfg.Stack, "heroku-22")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := load(t)
	cfg.Log.Level = "loud"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted log.level = loud")
	}
}

func TestValidateRejectsURLWithoutPlaceholder(t *testing.T) {
	cfg := load(t)
	cfg.Fetch.URL = "https://www.python.org/ftp/python/3.11.3/Python-3.11.3.tgz"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted a fetch.url without a {VERSION} placeholder")
	}
}

func TestValidateRejectsNegativeRetries(t *testing.T) {
	cfg := load(t)
	cfg.Fetch.Retries = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted fetch.retries = -1")
	}
}
