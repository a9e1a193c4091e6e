package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.APIBaseURL != "https://api.singly.com" {
		t.Fatalf("api_base_url = %s", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("http timeout = %v", cfg.HTTPTimeout)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Fatalf("session ttl = %v", cfg.SessionTTL)
	}
	if cfg.StorageType != "bbolt" {
		t.Fatalf("storage type = %s", cfg.StorageType)
	}
	if cfg.StorageCleanupInterval != 12*time.Hour {
		t.Fatalf("storage cleanup interval = %v", cfg.StorageCleanupInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SINGLY_API_BASE_URL", "http://localhost:8042")
	t.Setenv("SINGLY_HTTP_TIMEOUT", "5")
	t.Setenv("SINGLY_ACCESS_TOKEN", "  tok  ")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8042" {
		t.Fatalf("api_base_url = %s", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("http timeout = %v", cfg.HTTPTimeout)
	}
	if cfg.AccessToken != "tok" {
		t.Fatalf("access token = %q", cfg.AccessToken)
	}
}

func TestLoadStorageCleanupInterval(t *testing.T) {
	t.Setenv("SINGLY_STORAGE_CLEANUP_INTERVAL_SECONDS", "90")
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.StorageCleanupInterval != 90*time.Second {
		t.Fatalf("storage cleanup interval = %v", cfg.StorageCleanupInterval)
	}

	t.Setenv("SINGLY_STORAGE_CLEANUP_INTERVAL_SECONDS", "-1")
	if _, err := LoadFrom(""); err == nil {
		t.Fatalf("expected error for negative cleanup interval")
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SINGLY_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SINGLY_LOG_LEVEL") })

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %s", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SINGLY_HTTP_TIMEOUT", "0")
	if _, err := LoadFrom(""); err == nil {
		t.Fatalf("expected error for zero timeout")
	}

	t.Setenv("SINGLY_HTTP_TIMEOUT", "5")
	t.Setenv("SINGLY_API_BASE_URL", "not-a-url")
	if _, err := LoadFrom(""); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}
