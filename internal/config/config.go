package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration for both the storefront client and
// the development backend.
type Config struct {
	// Client settings
	BackendURL     string
	DataDir        string
	RequestTimeout time.Duration

	// Dev backend settings
	Port               string
	TokenSigningSecret string
	AccessTokenTTL     time.Duration
	OpenAPISpecPath    string

	// Pricing rules applied by the totals calculator
	FreeShippingThreshold float64
	ShippingFee           float64

	LogLevel    string
	LogFormat   string
	Environment string // development, staging, production
}

// Load loads configuration from environment variables and validates for production
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		BackendURL:            getEnv("BACKEND_URL", "http://localhost:8080"),
		DataDir:               getEnv("DATA_DIR", defaultDataDir()),
		RequestTimeout:        getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		Port:                  getEnv("PORT", "8080"),
		TokenSigningSecret:    getEnv("TOKEN_SIGNING_SECRET", ""),
		AccessTokenTTL:        getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		OpenAPISpecPath:       getEnv("OPENAPI_SPEC_PATH", "api/openapi.yaml"),
		FreeShippingThreshold: getEnvFloat("FREE_SHIPPING_THRESHOLD", 50),
		ShippingFee:           getEnvFloat("SHIPPING_FEE", 4.90),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		Environment:           getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.TokenSigningSecret == "" || c.TokenSigningSecret == "change-this-in-production" {
			return fmt.Errorf("TOKEN_SIGNING_SECRET must be set to a strong random value in production")
		}

		if len(c.TokenSigningSecret) < 32 {
			return fmt.Errorf("TOKEN_SIGNING_SECRET must be at least 32 characters in production (got %d)", len(c.TokenSigningSecret))
		}
	} else if c.TokenSigningSecret == "" {
		c.TokenSigningSecret = "dev-secret-not-for-production"
		log.Println("Using default TOKEN_SIGNING_SECRET for development")
	}

	if c.ShippingFee < 0 || c.FreeShippingThreshold < 0 {
		return fmt.Errorf("shipping configuration must not be negative")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pantry"
	}
	return filepath.Join(home, ".pantry")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid duration for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("invalid number for %s: %q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}
