package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	StoragePath    string
	LoginPath      string
	RatePerSecond  float64 // outbound request rate limit, 0 disables
	RateBurst      int
	DevServerPort  string
	AllowedOrigins string
	Environment    string // development, staging, production
}

// Load loads configuration from environment variables and validates for production
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8081/api"),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 10*time.Second),
		StoragePath:    getEnv("STORAGE_PATH", defaultStoragePath()),
		LoginPath:      getEnv("LOGIN_PATH", "/auth"),
		RatePerSecond:  getFloatEnv("RATE_PER_SECOND", 0),
		RateBurst:      getIntEnv("RATE_BURST", 5),
		DevServerPort:  getEnv("DEVSERVER_PORT", "8081"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
	}

	// Validate production configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive (got %v)", c.RequestTimeout)
	}

	if c.IsProduction() {
		if !strings.HasPrefix(c.APIBaseURL, "https://") {
			return fmt.Errorf("API_BASE_URL must use HTTPS in production (got %s)", c.APIBaseURL)
		}
		if c.AllowedOrigins != "" {
			log.Println("WARNING: Ensure ALLOWED_ORIGINS uses HTTPS in production")
		}
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

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(home, ".lostfound", "session.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s: %q, using default %v", key, value, defaultValue)
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid number for %s: %q, using default %v", key, value, defaultValue)
	}
	return defaultValue
}
