package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the immutable application configuration. It is loaded once
// at process start and threaded through constructors; nothing re-reads the
// environment after that.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	IAM       IAMConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// IAMConfig drives token issuance and the guard pipeline.
type IAMConfig struct {
	// Provider selects the auth provider strategy; only "local" is
	// registered today.
	Provider string
	// JWTSecret signs access tokens (HS256).
	JWTSecret string
	// CookieSecret signs the accessToken/refreshToken cookies.
	CookieSecret string
	// AccessTokenTTL bounds a single access token (default 15m).
	AccessTokenTTL time.Duration
	// MaxSessionTTL bounds the absolute lifetime of a session family
	// across refresh rotations (default 24h).
	MaxSessionTTL time.Duration
}

// RateLimitConfig drives the login-attempt limiter.
type RateLimitConfig struct {
	Enabled     bool
	UseRedis    bool
	MaxAttempts int
	Window      time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5002")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "saasforge")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("IAM_AUTH_PROVIDER", "local")
	viper.SetDefault("IAM_ACCESS_TOKEN_TTL", 900)
	viper.SetDefault("IAM_MAX_SESSION_TTL", 86400)
	viper.SetDefault("LOGIN_RATE_LIMIT_ENABLED", true)
	viper.SetDefault("LOGIN_RATE_LIMIT_USE_REDIS", true)
	viper.SetDefault("LOGIN_MAX_ATTEMPTS", 10)
	viper.SetDefault("LOGIN_LOCKOUT_SECONDS", 900)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		IAM: IAMConfig{
			Provider:       viper.GetString("IAM_AUTH_PROVIDER"),
			JWTSecret:      os.Getenv("IAM_JWT_SECRET"),
			CookieSecret:   os.Getenv("IAM_COOKIE_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("IAM_ACCESS_TOKEN_TTL")) * time.Second,
			MaxSessionTTL:  time.Duration(viper.GetInt("IAM_MAX_SESSION_TTL")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:     viper.GetBool("LOGIN_RATE_LIMIT_ENABLED"),
			UseRedis:    viper.GetBool("LOGIN_RATE_LIMIT_USE_REDIS"),
			MaxAttempts: viper.GetInt("LOGIN_MAX_ATTEMPTS"),
			Window:      time.Duration(viper.GetInt("LOGIN_LOCKOUT_SECONDS")) * time.Second,
		},
	}

	if cfg.IAM.JWTSecret == "" {
		return nil, fmt.Errorf("IAM_JWT_SECRET is required")
	}
	if cfg.IAM.CookieSecret == "" {
		// fall back so dev setups with a single secret keep working
		cfg.IAM.CookieSecret = cfg.IAM.JWTSecret
	}
	if cfg.IAM.AccessTokenTTL >= cfg.IAM.MaxSessionTTL {
		return nil, fmt.Errorf("IAM_ACCESS_TOKEN_TTL must be shorter than IAM_MAX_SESSION_TTL")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings
// (drives the Secure attribute on auth cookies).
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
