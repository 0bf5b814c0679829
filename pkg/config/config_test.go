package config

import (
	"testing"
	"time"
)

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NATS_URL", "")
	t.Setenv("USERS_SERVICE_URL", "http://users.test")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("ENFORCE_DATE_ORDER", "true")

	cfg := Load()

	if cfg.Services.Users != "http://users.test" {
		t.Fatalf("expected users URL override, got %q", cfg.Services.Users)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.HTTP.Timeout)
	}
	if cfg.Session.Backend != SessionBackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.Session.Backend)
	}
	if !cfg.Validation.EnforceDateOrder {
		t.Fatal("expected date order enforcement")
	}
	if cfg.NATS.URL != "" {
		t.Fatalf("expected NATS disabled, got %q", cfg.NATS.URL)
	}
}

func TestGetHelpers_FallbackOnGarbage(t *testing.T) {
	t.Setenv("ROOMSTAY_TEST_INT", "abc")
	t.Setenv("ROOMSTAY_TEST_BOOL", "maybe")
	t.Setenv("ROOMSTAY_TEST_DURATION", "soon")

	if got := getInt("ROOMSTAY_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	if got := getBool("ROOMSTAY_TEST_BOOL", true); !got {
		t.Fatal("expected fallback true")
	}
	if got := getDuration("ROOMSTAY_TEST_DURATION", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback 1m, got %s", got)
	}
}
