package config

import (
	"testing"
	"time"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("HTTPSCHED_TEST_STRING", "value")
	if got := getEnvString("HTTPSCHED_TEST_STRING", "default"); got != "value" {
		t.Errorf("expected env value, got %q", got)
	}
	if got := getEnvString("HTTPSCHED_TEST_STRING_UNSET", "default"); got != "default" {
		t.Errorf("expected default when unset, got %q", got)
	}
}

func TestGetEnvInt64(t *testing.T) {
	t.Setenv("HTTPSCHED_TEST_INT", "42")
	if got := getEnvInt64("HTTPSCHED_TEST_INT", 1); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("HTTPSCHED_TEST_INT_BAD", "not-a-number")
	if got := getEnvInt64("HTTPSCHED_TEST_INT_BAD", 7); got != 7 {
		t.Errorf("expected fallback to default on parse failure, got %d", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("HTTPSCHED_TEST_DURATION_SECS", "30")
	if got := getEnvDuration("HTTPSCHED_TEST_DURATION_SECS", time.Second); got != 30*time.Second {
		t.Errorf("expected 30s from bare integer seconds, got %v", got)
	}
	t.Setenv("HTTPSCHED_TEST_DURATION_GO", "2m")
	if got := getEnvDuration("HTTPSCHED_TEST_DURATION_GO", time.Second); got != 2*time.Minute {
		t.Errorf("expected 2m from a Go duration string, got %v", got)
	}
}
