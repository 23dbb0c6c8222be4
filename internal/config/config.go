package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigurationError marks a missing or malformed required setting. The
// service refuses to start rather than degrade.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Upstream price-calendar API
	VendorBaseURL string
	VendorAPIKey  string
	FetchTimeout  time.Duration

	// Scan window defaults
	ScanStartOffsetDays int
	ScanNumDays         int
	ScanMinStay         int
	ScanMaxStay         int
	ScanNumWorkers      int

	// Live query cache
	LiveCacheTTL time.Duration

	// Good-price badge thresholds. Defaults follow the product decision
	// (>=50 historical samples, fare at or under 70% of p10).
	GoodPriceMinSamples int
	GoodPriceRatio      float64
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		VendorBaseURL: getEnv("VENDOR_BASE_URL", ""),
		VendorAPIKey:  getEnv("VENDOR_API_KEY", ""),
		FetchTimeout:  getDuration("FETCH_TIMEOUT", 5*time.Second),

		ScanStartOffsetDays: getInt("SCAN_START_OFFSET_DAYS", 7),
		ScanNumDays:         getInt("SCAN_NUM_DAYS", 60),
		ScanMinStay:         getInt("SCAN_MIN_STAY", 2),
		ScanMaxStay:         getInt("SCAN_MAX_STAY", 5),
		ScanNumWorkers:      getInt("SCAN_NUM_WORKERS", 8),

		LiveCacheTTL: getDuration("LIVE_CACHE_TTL", 10*time.Minute),

		GoodPriceMinSamples: getInt("GOOD_PRICE_MIN_SAMPLES", 50),
		GoodPriceRatio:      getFloat("GOOD_PRICE_RATIO", 0.70),
	}
}

// Validate checks the settings without which no upstream or store call can
// succeed.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return &ConfigurationError{Key: "DATABASE_URL", Reason: "required"}
	}
	if c.VendorBaseURL == "" {
		return &ConfigurationError{Key: "VENDOR_BASE_URL", Reason: "required"}
	}
	if c.ScanMinStay < 1 || c.ScanMaxStay < c.ScanMinStay {
		return &ConfigurationError{Key: "SCAN_MIN_STAY/SCAN_MAX_STAY", Reason: "must satisfy 1 <= min <= max"}
	}
	if c.ScanNumWorkers < 1 {
		return &ConfigurationError{Key: "SCAN_NUM_WORKERS", Reason: "must be positive"}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
