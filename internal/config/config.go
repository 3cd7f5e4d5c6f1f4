package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/cart-api/internal/repository"
)

const (
	CatalogPostgres = "postgres"
	CatalogSQLite   = "sqlite"
)

type Config struct {
	Env      string
	LogLevel string

	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string

	CatalogDriver         string
	CatalogDBPath         string
	CatalogMigrationsPath string

	RedisAddr     string
	RedisPassword string
	UserCacheTTL  time.Duration

	KafkaBrokers    []string
	CartEventsTopic string
	CheckoutTopic   string

	JWTKey        string
	JWTIssuer     string
	JWTAudience   string
	JWTExpiration time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort: getEnv("HTTP_PORT", "8080"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "cart"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations/postgres"),

		CatalogDriver:         getEnv("CATALOG_DRIVER", CatalogPostgres),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/repository/migrations/sqlite"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		CartEventsTopic: getEnv("CART_EVENTS_TOPIC", "cart-events"),
		CheckoutTopic:   getEnv("CHECKOUT_TOPIC", "checkout-outbox"),

		JWTKey:      getEnv("JWT_KEY", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "cart-api"),
		JWTAudience: getEnv("JWT_AUDIENCE", "cart-clients"),

		ShutdownTimeout: 10 * time.Second,
	}

	var errs []error
	var err error

	if cfg.DBPort, err = strconv.Atoi(getEnv("DB_PORT", "5432")); err != nil {
		errs = append(errs, fmt.Errorf("invalid DB_PORT: %w", err))
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s")); err != nil {
		errs = append(errs, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err))
	}
	if cfg.UserCacheTTL, err = time.ParseDuration(getEnv("USER_CACHE_TTL", "15m")); err != nil {
		errs = append(errs, fmt.Errorf("invalid USER_CACHE_TTL: %w", err))
	}
	hours, err := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	if err != nil || hours <= 0 {
		errs = append(errs, fmt.Errorf("invalid JWT_EXPIRATION_HOURS %q", os.Getenv("JWT_EXPIRATION_HOURS")))
	}
	cfg.JWTExpiration = time.Duration(hours) * time.Hour

	if cfg.CatalogDriver != CatalogPostgres && cfg.CatalogDriver != CatalogSQLite {
		errs = append(errs, fmt.Errorf("invalid CATALOG_DRIVER %q: want %s or %s", cfg.CatalogDriver, CatalogPostgres, CatalogSQLite))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Credentials() *repository.Credentials {
	return &repository.Credentials{
		Host:              c.DBHost,
		Port:              c.DBPort,
		User:              c.DBUser,
		Password:          c.DBPassword,
		DBName:            c.DBName,
		MigrationsDirPath: c.MigrationsPath,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
