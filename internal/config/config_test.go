package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"dev", "dev", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			if got := cfg.IsProduction(); got != tt.expected {
				t.Errorf("IsProduction() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"development", "development", true},
		{"dev", "dev", true},
		{"empty", "", true},
		{"production", "production", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			if got := cfg.IsDevelopment(); got != tt.expected {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		wantError     bool
		errorContains string
	}{
		{
			name: "valid_development",
			cfg: Config{
				APIBaseURL:     "http://localhost:8081/api",
				RequestTimeout: 10 * time.Second,
				Environment:    "development",
			},
		},
		{
			name: "empty_base_url",
			cfg: Config{
				RequestTimeout: 10 * time.Second,
			},
			wantError:     true,
			errorContains: "API_BASE_URL",
		},
		{
			name: "non_positive_timeout",
			cfg: Config{
				APIBaseURL: "http://localhost:8081/api",
			},
			wantError:     true,
			errorContains: "REQUEST_TIMEOUT",
		},
		{
			name: "production_requires_https",
			cfg: Config{
				APIBaseURL:     "http://api.example.com/api",
				RequestTimeout: 10 * time.Second,
				Environment:    "production",
			},
			wantError:     true,
			errorContains: "HTTPS",
		},
		{
			name: "production_with_https",
			cfg: Config{
				APIBaseURL:     "https://api.example.com/api",
				RequestTimeout: 10 * time.Second,
				Environment:    "production",
			},
		},
		{
			name: "staging_allows_http",
			cfg: Config{
				APIBaseURL:     "http://staging.example.com/api",
				RequestTimeout: 10 * time.Second,
				Environment:    "staging",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			if tt.wantError {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error containing %q, got %q", tt.errorContains, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{"env_set", "TEST_KEY", "default", "custom", "custom"},
		{"env_not_set", "TEST_KEY_NOT_SET", "default", "", "default"},
		{"empty_default", "TEST_KEY_EMPTY", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.expected {
				t.Errorf("getEnv() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetDurationEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{"valid_duration", "30s", 30 * time.Second},
		{"invalid_falls_back", "not-a-duration", 10 * time.Second},
		{"unset_falls_back", "", 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_DURATION", tt.envValue)
			}

			got := getDurationEnv("TEST_DURATION", 10*time.Second)
			if got != tt.expected {
				t.Errorf("getDurationEnv() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetFloatEnv(t *testing.T) {
	t.Setenv("TEST_RATE", "2.5")
	if got := getFloatEnv("TEST_RATE", 0); got != 2.5 {
		t.Errorf("getFloatEnv() = %v, want 2.5", got)
	}

	t.Setenv("TEST_RATE", "nope")
	if got := getFloatEnv("TEST_RATE", 1.5); got != 1.5 {
		t.Errorf("getFloatEnv() = %v, want fallback 1.5", got)
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Setenv("TEST_BURST", "10")
	if got := getIntEnv("TEST_BURST", 5); got != 10 {
		t.Errorf("getIntEnv() = %v, want 10", got)
	}

	t.Setenv("TEST_BURST", "nope")
	if got := getIntEnv("TEST_BURST", 5); got != 5 {
		t.Errorf("getIntEnv() = %v, want fallback 5", got)
	}
}
