package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/carbonwatch/carbon-intensity-etl/internal/intensity"
)

type AppConfig struct {
	// Hosted database coordinates, both required.
	StorageURL        string
	StorageServiceKey string

	// Base URL of the carbon-intensity API.
	APIBaseURL string

	// Timeout for each outbound API request.
	HTTPTimeout time.Duration

	// Rows older than this are removed by the retention sweeper.
	RetentionWindow time.Duration

	// FetchInterval controls the ETL cadence in serve mode.
	FetchInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults. The
// storage URL and service key have no defaults; credentials are never
// hardcoded.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.StorageURL = os.Getenv("STORAGE_URL")
	cfg.StorageServiceKey = os.Getenv("STORAGE_SERVICE_KEY")
	if cfg.StorageURL == "" || cfg.StorageServiceKey == "" {
		return nil, fmt.Errorf("STORAGE_URL and STORAGE_SERVICE_KEY must be set")
	}

	cfg.APIBaseURL = getenvDefault("CARBON_API_BASE_URL", intensity.DefaultBaseURL)

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	// Retention window: default one week, matching the daily sweep cadence.
	retention, err := getenvDuration("RETENTION_WINDOW", "168h")
	if err != nil {
		return nil, err
	}
	cfg.RetentionWindow = retention

	// Fetch interval: the API publishes half-hour windows; hourly is plenty.
	interval, err := getenvDuration("FETCH_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	cfg.FetchInterval = interval

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	raw := getenvDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
