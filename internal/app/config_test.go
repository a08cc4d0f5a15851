package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("CacheTTL = %s", cfg.CacheTTL)
	}
	if cfg.CacheSweepTTL != time.Hour {
		t.Fatalf("CacheSweepTTL = %s", cfg.CacheSweepTTL)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("LogFormat = %q", cfg.LogFormat)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("SEARCH_CACHE_TTL_SECONDS", "60")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SEARCH_TIMEOUT_SECONDS", "not-a-number")

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.CacheTTL != time.Minute {
		t.Fatalf("CacheTTL = %s", cfg.CacheTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %s", cfg.RequestTimeout)
	}
}
