package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrInitGeneratesCredentialOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pingmedaddy.yaml")

	cfg, password, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	if password == "" {
		t.Fatalf("expected a generated password on first run")
	}
	if cfg.AdminPasswordHash == "" || cfg.JWTSecret == "" {
		t.Fatalf("expected admin hash and jwt secret to be populated, got %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be persisted: %v", err)
	}
}

func TestLoadOrInitIsStableAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pingmedaddy.yaml")

	first, _, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("first LoadOrInit: %v", err)
	}

	second, password, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("second LoadOrInit: %v", err)
	}
	if password != "" {
		t.Fatalf("expected no generated password on second run, got %q", password)
	}
	if second.AdminPasswordHash != first.AdminPasswordHash {
		t.Fatalf("expected admin hash to persist across runs")
	}
	if second.JWTSecret != first.JWTSecret {
		t.Fatalf("expected jwt secret to persist across runs")
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pingmedaddy.yaml")
	if _, _, err := LoadOrInit(path); err != nil {
		t.Fatalf("init: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://override/db")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://override/db" {
		t.Fatalf("expected env override to win, got %q", cfg.DatabaseURL)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppPort != "8080" || cfg.PingConcurrencyLimit != 50 {
		t.Fatalf("expected built-in defaults, got %+v", cfg)
	}
}
