package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	for _, key := range []string{
		"SWAPSAGE_LISTEN", "SWAPSAGE_DB_PATH", "SWAPSAGE_DB_LOCK_PATH", "SWAPSAGE_CHAIN_ID",
		"SWAPSAGE_TIMEOUT", "SWAPSAGE_RETRIES", "SWAPSAGE_QUOTE_TTL", "SWAPSAGE_LOG_LEVEL",
		"SWAPSAGE_LOG_FORMAT", "SWAPSAGE_METRICS", "SWAPSAGE_1INCH_BASE_URL",
		"SWAPSAGE_1INCH_API_KEY", "ONEINCH_API_KEY",
	} {
		t.Setenv(key, "")
	}
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	tmp := isolate(t)
	settings, err := Load(GlobalFlags{EnvFile: "", Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Timeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", settings.Timeout)
	}
	if settings.Retries != 0 {
		t.Fatalf("expected no retries by default, got %d", settings.Retries)
	}
	if settings.OneInchBaseURL != DefaultOneInchBaseURL {
		t.Fatalf("unexpected base url %s", settings.OneInchBaseURL)
	}
	if settings.ChainID != 1 {
		t.Fatalf("expected chain 1, got %d", settings.ChainID)
	}
	wantDB := filepath.Join(tmp, "data", "swapsage", "swapsage.db")
	if settings.DatabasePath != wantDB {
		t.Fatalf("expected db path %s, got %s", wantDB, settings.DatabasePath)
	}
	if settings.LockPath != wantDB+".lock" {
		t.Fatalf("unexpected lock path %s", settings.LockPath)
	}
	if settings.ExplanationModel != "template-v1" {
		t.Fatalf("unexpected explanation model %s", settings.ExplanationModel)
	}
}

func TestLoadPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	tmp := isolate(t)
	configPath := filepath.Join(tmp, "config.yaml")
	body := "retries: 1\ntimeout: 10s\nlog:\n  level: warn\nproviders:\n  oneinch:\n    base_url: https://file.example/\n    api_key: file-key\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SWAPSAGE_TIMEOUT", "5s")
	t.Setenv("SWAPSAGE_1INCH_API_KEY", "env-key")
	settings, err := Load(GlobalFlags{ConfigPath: configPath, Retries: 3, LogLevel: "DEBUG"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Retries != 3 {
		t.Fatalf("expected retries from flags, got %d", settings.Retries)
	}
	if settings.Timeout != 5*time.Second {
		t.Fatalf("expected env timeout, got %s", settings.Timeout)
	}
	if settings.LogLevel != "debug" {
		t.Fatalf("expected flag log level, got %s", settings.LogLevel)
	}
	if settings.OneInchAPIKey != "env-key" {
		t.Fatalf("expected env api key, got %q", settings.OneInchAPIKey)
	}
	if settings.OneInchBaseURL != "https://file.example" {
		t.Fatalf("expected trimmed file base url, got %s", settings.OneInchBaseURL)
	}
}

func TestLoadLegacyAPIKeyEnv(t *testing.T) {
	isolate(t)
	t.Setenv("ONEINCH_API_KEY", "legacy")
	settings, err := Load(GlobalFlags{Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OneInchAPIKey != "legacy" {
		t.Fatalf("expected legacy key, got %q", settings.OneInchAPIKey)
	}

	t.Setenv("SWAPSAGE_1INCH_API_KEY", "preferred")
	settings, err = Load(GlobalFlags{Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OneInchAPIKey != "preferred" {
		t.Fatalf("expected prefixed key to win, got %q", settings.OneInchAPIKey)
	}
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	tmp := isolate(t)
	envPath := filepath.Join(tmp, "test.env")
	if err := os.WriteFile(envPath, []byte("SWAPSAGE_LISTEN=:9100\nSWAPSAGE_QUOTE_TTL=2m\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// godotenv only fills unset variables; an empty value still counts as set.
	_ = os.Unsetenv("SWAPSAGE_LISTEN")
	_ = os.Unsetenv("SWAPSAGE_QUOTE_TTL")
	t.Cleanup(func() {
		_ = os.Unsetenv("SWAPSAGE_LISTEN")
		_ = os.Unsetenv("SWAPSAGE_QUOTE_TTL")
	})

	settings, err := Load(GlobalFlags{EnvFile: envPath, Retries: -1, ListenAddr: ":7000"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.ListenAddr != ":7000" {
		t.Fatalf("expected flag listen addr, got %s", settings.ListenAddr)
	}
	if settings.QuoteTTL != 2*time.Minute {
		t.Fatalf("expected quote ttl from env file, got %s", settings.QuoteTTL)
	}
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	tmp := isolate(t)
	if _, err := Load(GlobalFlags{EnvFile: filepath.Join(tmp, "missing.env"), Retries: -1}); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	isolate(t)
	if _, err := Load(GlobalFlags{Timeout: "soon", Retries: -1}); err == nil {
		t.Fatal("expected error for invalid --timeout")
	}
	if _, err := Load(GlobalFlags{QuoteTTL: "-", Retries: -1}); err == nil {
		t.Fatal("expected error for invalid --quote-ttl")
	}
}
