package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadFromDefaultsWhenNoFiles(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.App.Name != "ghostwriter-ai-api" {
		t.Errorf("app.name = %q", cfg.App.Name)
	}
	if cfg.Generation.JSONAttempts != 3 {
		t.Errorf("json_attempts = %d, want 3", cfg.Generation.JSONAttempts)
	}
	if cfg.Generation.MaxOutputTokensCeiling != 128000 {
		t.Errorf("ceiling = %d, want 128000", cfg.Generation.MaxOutputTokensCeiling)
	}
	if cfg.Generation.ConfidenceThreshold != 0.7 {
		t.Errorf("confidence_threshold = %v, want 0.7", cfg.Generation.ConfidenceThreshold)
	}
	if cfg.Generation.LockTTL != 15*time.Minute {
		t.Errorf("lock_ttl = %v, want 15m", cfg.Generation.LockTTL)
	}
}

func TestLoadFromExpandsEnvAndMergesEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("GW_TEST_PG_HOST", "db.internal")

	writeFile(t, dir, "config.yaml", `
database:
  postgres:
    host: ${GW_TEST_PG_HOST:localhost}
    user: ${GW_TEST_PG_USER:writer}
generation:
  target_words_per_chapter: 2500
`)
	writeFile(t, dir, "config.staging.yaml", `
generation:
  target_words_per_chapter: 4000
`)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Database.Postgres.Host != "db.internal" {
		t.Errorf("host = %q, want db.internal", cfg.Database.Postgres.Host)
	}
	if cfg.Database.Postgres.User != "writer" {
		t.Errorf("user = %q, want default writer", cfg.Database.Postgres.User)
	}
	if cfg.Generation.TargetWordsPerChapter != 4000 {
		t.Errorf("target words = %d, want env override 4000", cfg.Generation.TargetWordsPerChapter)
	}
}

func TestLoadFromRejectsOutOfRangeThreshold(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	writeFile(t, dir, "config.yaml", `
generation:
  confidence_threshold: 1.5
`)
	if _, err := LoadFrom(dir); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadFromRejectsUnknownProviderAPI(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	writeFile(t, dir, "config.yaml", `
llm:
  providers:
    odd:
      api: grpc
`)
	if _, err := LoadFrom(dir); err == nil {
		t.Fatal("expected validation error for unknown api")
	}
}

func TestExpandEnvKeepsUnknownPlaceholder(t *testing.T) {
	got := expandEnv("key: ${GW_SURELY_UNSET_VAR}")
	if got != "key: ${GW_SURELY_UNSET_VAR}" {
		t.Errorf("expandEnv = %q", got)
	}
}
