package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	AutoMigrate       bool
	JWTSecret          string
	JWTAccessTokenTTL  time.Duration
	JWTRefreshTokenTTL time.Duration
	BcryptCost         int
	LogLevel           string
	StoragePath        string

	RedisAddr          string
	RateLimitPerMinute int

	KafkaBrokers     []string
	KafkaNotifyTopic string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64

	BookingMaxTries int
}

// fileConfig is the optional TOML overlay named by APP_CONFIG_FILE.
type fileConfig struct {
	Booking struct {
		MaxTries int `toml:"max_tries"`
	} `toml:"booking"`
	RateLimit struct {
		PerMinute int `toml:"per_minute"`
	} `toml:"rate_limit"`
	Notify struct {
		Topic string `toml:"topic"`
	} `toml:"notify"`
}

// Load loads configuration from .env (optional), an optional TOML file and
// environment variables. Environment variables win over the file.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	var file fileConfig
	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return nil, fmt.Errorf("invalid APP_CONFIG_FILE %s: %w", path, err)
		}
	}

	cfg := &Config{}
	var err error

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	cfg.IsProduction = getEnv("APP_ENV", "dev") == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	if cfg.AutoMigrate, err = getEnvAsBool("AUTO_MIGRATE", true); err != nil {
		return nil, err
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTokenTTL, err = getEnvAsDuration("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}

	// Bcrypt cost for password hashing (default: 12)
	if cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.StoragePath = getEnv("STORAGE_PATH", "./data")

	// Empty REDIS_ADDR selects the in-process limiter.
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	if cfg.RateLimitPerMinute, err = getEnvAsInt("RATE_LIMIT_PER_MINUTE", orDefault(file.RateLimit.PerMinute, 120)); err != nil {
		return nil, err
	}

	// Empty KAFKA_BROKERS selects the log notifier.
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.KafkaNotifyTopic = getEnv("KAFKA_NOTIFY_TOPIC", orDefault(file.Notify.Topic, "appointment-notifications"))

	if cfg.OTelEnabled, err = getEnvAsBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.OTelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	if cfg.OTelSampleRatio, err = getEnvAsFloat("OTEL_SAMPLING_RATIO", 1); err != nil {
		return nil, err
	}

	if cfg.BookingMaxTries, err = getEnvAsInt("BOOKING_MAX_TRIES", orDefault(file.Booking.MaxTries, 3)); err != nil {
		return nil, err
	}
	if cfg.BookingMaxTries < 1 {
		return nil, fmt.Errorf("BOOKING_MAX_TRIES must be at least 1, got %d", cfg.BookingMaxTries)
	}

	return cfg, nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}
	return val, nil
}

// getEnvAsDuration parses values such as "15m" or "1h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid boolean: %w", key, valStr, err)
	}
	return val, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid number: %w", key, valStr, err)
	}
	return val, nil
}
