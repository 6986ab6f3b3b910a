package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds the application configuration, populated from environment
// variables
type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Sweeper  SweeperConfig
	SeedDemo bool
}

type AppConfig struct {
	Environment string // development, production
	Port        string
	LogLevel    string
}

type StorageConfig struct {
	Driver string // memory, postgres
	DSN    string
}

// RedisConfig is optional; an empty Addr disables the Redis notifier
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SweeperConfig struct {
	Schedule string // robfig/cron spec, e.g. "@every 30s"
}

// Load reads .env when present, then the process environment
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	seed, err := getEnvBool("SEED_DEMO_DATA", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("PORT", "8080"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
			DSN:    getEnv("DATABASE_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Sweeper:  SweeperConfig{Schedule: getEnv("SWEEP_SCHEDULE", "@every 30s")},
		SeedDemo: seed,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	return validation.Errors{
		"APP_ENV":        validation.Validate(c.App.Environment, validation.In("development", "test", "production")),
		"PORT":           validation.Validate(c.App.Port, validation.Required, validation.By(isPort)),
		"STORAGE_DRIVER": validation.Validate(c.Storage.Driver, validation.Required, validation.In(DriverMemory, DriverPostgres)),
		"DATABASE_DSN":   validation.Validate(c.Storage.DSN, validation.When(c.Storage.Driver == DriverPostgres, validation.Required)),
		"REDIS_DB":       validation.Validate(c.Redis.DB, validation.Min(0), validation.Max(15)),
		"SWEEP_SCHEDULE": validation.Validate(c.Sweeper.Schedule, validation.Required),
	}.Filter()
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.App.Port
}

func isPort(value any) error {
	s, _ := value.(string)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, raw)
	}
	return b, nil
}
