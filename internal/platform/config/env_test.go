package config

import (
	"strings"
	"testing"
)

type sessionConfig struct {
	DBPath string `env:"TORCHLIT_TEST_DB_PATH" envDefault:"torchlit.db"`
	Seed   int64  `env:"TORCHLIT_TEST_SEED"    envDefault:"0"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg sessionConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "torchlit.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Seed != 0 {
		t.Fatalf("expected default seed 0, got %d", cfg.Seed)
	}
}

func TestParseEnvOverride(t *testing.T) {
	var cfg sessionConfig
	t.Setenv("TORCHLIT_TEST_SEED", "42")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Seed != 42 {
		t.Fatalf("expected seed 42, got %d", cfg.Seed)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg sessionConfig
	t.Setenv("TORCHLIT_TEST_SEED", "not-a-number")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
