package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadConfigWriteTimeoutDefaultsOff(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/videogen")
	t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	// Generation responses block for minutes; a bounded default would cut
	// every real one off mid-body.
	if cfg.HTTPWriteTimeout != 0 {
		t.Errorf("write timeout = %v, want 0 (unlimited)", cfg.HTTPWriteTimeout)
	}
	if cfg.HTTPReadTimeout != 15*time.Second {
		t.Errorf("read timeout = %v, want 15s", cfg.HTTPReadTimeout)
	}
}

func TestLoadConfigTimeoutOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/videogen")
	t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "45")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPWriteTimeout != 45*time.Second {
		t.Errorf("write timeout = %v, want 45s", cfg.HTTPWriteTimeout)
	}
}
