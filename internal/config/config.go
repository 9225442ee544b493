package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	Environment string
	Port        string

	StorageDriver string
	MongoURI      string
	MongoDatabase string

	StripeSecret  string
	StripeBaseURL string
	SiteDomain    string

	AuthJWTSecret string

	LogLevel         string
	LogFormat        string
	LogIncludeCaller bool

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Load reads the .env file (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Error loading .env: %s", err)
	}

	return Config{
		AppName:          getenv("APP_SERVICE", "zapshift"),
		Environment:      getenv("ENVIRONMENT", "development"),
		Port:             getenv("PORT", "8080"),
		StorageDriver:    normalizeDriver(getenv("STORAGE_DRIVER", StorageMongo)),
		MongoURI:         strings.TrimSpace(os.Getenv("MONGOURI")),
		MongoDatabase:    getenv("MONGO_DATABASE", "zap_shift_db"),
		StripeSecret:     strings.TrimSpace(os.Getenv("STRIPE_SECRET")),
		StripeBaseURL:    strings.TrimRight(getenv("STRIPE_BASE_URL", "https://api.stripe.com"), "/"),
		SiteDomain:       strings.TrimRight(getenv("SITE_DOMAIN", "http://localhost:5173"), "/"),
		AuthJWTSecret:    strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogFormat:        getenv("LOG_FORMAT", "json"),
		LogIncludeCaller: getenvBool("LOG_INCLUDE_CALLER", false),
		RequestTimeout:   getenvDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout:  getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports configuration that would make the server unusable.
func (c Config) Validate() error {
	var errs []error
	if c.StorageDriver == StorageMongo && c.MongoURI == "" {
		errs = append(errs, errors.New("MONGOURI environment variable not set"))
	}
	if c.StripeSecret == "" {
		errs = append(errs, errors.New("STRIPE_SECRET environment variable not set"))
	}
	if c.AuthJWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET environment variable not set"))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, errors.New("PORT must be numeric"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StorageMemory:
		return StorageMemory
	default:
		return StorageMongo
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
