package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret-for-tests")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret-for-tests")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.MongoDatabase != "vidtube" {
		t.Fatalf("unexpected database %q", cfg.MongoDatabase)
	}
	if cfg.AccessTokenTTL != time.Hour || cfg.RefreshTokenTTL != 10*24*time.Hour {
		t.Fatalf("unexpected ttls %v %v", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}
	if cfg.StorageProvider != "filesystem" {
		t.Fatalf("unexpected storage provider %q", cfg.StorageProvider)
	}
}

func TestLoadRequiresTokenSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected missing secrets to fail validation")
	}
	if !strings.Contains(err.Error(), "ACCESS_TOKEN_SECRET") || !strings.Contains(err.Error(), "REFRESH_TOKEN_SECRET") {
		t.Fatalf("expected both secrets reported, got %v", err)
	}
}

func TestLoadRejectsSharedSecret(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "same-secret-value")
	t.Setenv("REFRESH_TOKEN_SECRET", "same-secret-value")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected shared secret rejection, got %v", err)
	}
}

func TestLoadRejectsRefreshTTLNotExceedingAccess(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "2h")
	t.Setenv("REFRESH_TOKEN_TTL", "1h")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "REFRESH_TOKEN_TTL") {
		t.Fatalf("expected ttl ordering rejection, got %v", err)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-duration")

	if _, err := Load(""); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("NEGATIVE_CACHE_TTL", "90s")
	t.Setenv("API_RATE_LIMIT_RPM", "42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected addrs %q %q", cfg.HTTPAddr, cfg.RedisAddr)
	}
	if cfg.NegativeCacheTTL != 90*time.Second {
		t.Fatalf("unexpected negative cache ttl %v", cfg.NegativeCacheTTL)
	}
	if cfg.APIRateLimitRPM != 42 {
		t.Fatalf("unexpected rate limit %d", cfg.APIRateLimitRPM)
	}
}
