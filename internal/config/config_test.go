package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("IAM_JWT_SECRET", "testsecret123456789012345678901234")
	defer os.Unsetenv("IAM_JWT_SECRET")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.IAM.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("default access token TTL = %v, want 15m", cfg.IAM.AccessTokenTTL)
	}
	if cfg.IAM.MaxSessionTTL != 24*time.Hour {
		t.Fatalf("default max session TTL = %v, want 24h", cfg.IAM.MaxSessionTTL)
	}
	if cfg.IAM.Provider != "local" {
		t.Fatalf("default provider = %q, want local", cfg.IAM.Provider)
	}
	// cookie secret falls back to the JWT secret when unset
	if cfg.IAM.CookieSecret != cfg.IAM.JWTSecret {
		t.Fatalf("cookie secret should default to JWT secret")
	}
}

func TestLoadConfig_RequiresJWTSecret(t *testing.T) {
	os.Unsetenv("IAM_JWT_SECRET")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when IAM_JWT_SECRET is missing")
	}
}
