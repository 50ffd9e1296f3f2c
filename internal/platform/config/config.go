package config

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageBolt     = "bolt"
	StoragePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	LogLevel       slog.Level
	StorageDriver  string
	BoltPath       string
	MigrationsPath string

	// RedisURL switches account locking from in-process to redis when set.
	RedisURL string

	LockTimeout     time.Duration
	LockExpiry      time.Duration
	PostTimeout     time.Duration
	MaxPostAttempts int
	RetryBaseDelay  time.Duration

	SupportedCurrencies []string

	// JWTSecret enables bearer-token auth on /api/v1 when non-empty.
	JWTSecret          string
	RateLimit          string
	CORSAllowedOrigins []string

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()
	return loadFrom(viper.New())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_DRIVER", StorageMemory)
	v.SetDefault("BOLT_PATH", "ledger.db")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOCK_TIMEOUT", "5s")
	v.SetDefault("LOCK_EXPIRY", "10s")
	v.SetDefault("POST_TIMEOUT", "10s")
	v.SetDefault("MAX_POST_ATTEMPTS", 5)
	v.SetDefault("RETRY_BASE_DELAY", "10ms")
	v.SetDefault("SUPPORTED_CURRENCIES", "KES,UGX,USD")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("RATE_LIMIT", "1000-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("BREAKER_MAX_FAILURES", 5)
	v.SetDefault("BREAKER_OPEN_TIMEOUT", "30s")
}

func loadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:        v.GetString("PGSQL_URL"),
		Port:               v.GetString("PORT"),
		IsProduction:       v.GetBool("IS_PRODUCTION"),
		StorageDriver:      strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
		BoltPath:           v.GetString("BOLT_PATH"),
		MigrationsPath:     v.GetString("MIGRATIONS_PATH"),
		RedisURL:           v.GetString("REDIS_URL"),
		MaxPostAttempts:    v.GetInt("MAX_POST_ATTEMPTS"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		RateLimit:          v.GetString("RATE_LIMIT"),
		BreakerMaxFailures: v.GetUint32("BREAKER_MAX_FAILURES"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch cfg.StorageDriver {
	case StorageMemory, StorageBolt:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL is required when STORAGE_DRIVER is %s", StoragePostgres)
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q, want one of %s, %s, %s", cfg.StorageDriver, StorageMemory, StorageBolt, StoragePostgres)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LOCK_TIMEOUT", &cfg.LockTimeout},
		{"LOCK_EXPIRY", &cfg.LockExpiry},
		{"POST_TIMEOUT", &cfg.PostTimeout},
		{"RETRY_BASE_DELAY", &cfg.RetryBaseDelay},
		{"BREAKER_OPEN_TIMEOUT", &cfg.BreakerOpenTimeout},
	}
	for _, d := range durations {
		raw := v.GetString(d.key)
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid value for %s (%q): expected a duration such as 5s", d.key, raw)
		}
		*d.dst = parsed
	}

	if cfg.MaxPostAttempts < 1 {
		log.Printf("Warning: MAX_POST_ATTEMPTS is %d. Defaulting to 1.\n", cfg.MaxPostAttempts)
		cfg.MaxPostAttempts = 1
	}

	cfg.SupportedCurrencies = splitList(v.GetString("SUPPORTED_CURRENCIES"), strings.ToUpper)
	if len(cfg.SupportedCurrencies) == 0 {
		return nil, fmt.Errorf("SUPPORTED_CURRENCIES must name at least one currency")
	}
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"), nil)

	if cfg.JWTSecret == "" {
		if cfg.IsProduction {
			log.Println("Warning: JWT_SECRET not set in production. The API is unauthenticated.")
		}
	}

	return cfg, nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(raw string, normalize func(string) string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if normalize != nil {
			part = normalize(part)
		}
		out = append(out, part)
	}
	return out
}
