// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	DatabasePath string

	// Usage budget
	MonthlyQuota  int
	ReserveBudget int
	PollingFloor  float64

	// Primary provider
	PrimaryBaseURL      string
	PrimaryAPIKey       string
	PrimaryTokenURL     string
	PrimaryClientID     string
	PrimaryClientSecret string
	PrimaryTimeout      time.Duration
	CacheSize           int
	CacheTTL            time.Duration

	// Fallback providers
	FlightAwareBaseURL  string
	FlightStatsBaseURL  string
	ScoreStatusWeight   int
	ScoreDelayWeight    int
	ScoreGateWeight     int
	ScoreTerminalWeight int

	// Polling
	PollWakeInterval  time.Duration
	PollLookahead     time.Duration
	FarInterval       time.Duration
	NearThreshold     time.Duration
	NearInterval      time.Duration
	ImminentThreshold time.Duration
	ImminentInterval  time.Duration
	FlightTimeout     time.Duration

	// Cleanup
	CleanupInterval time.Duration
	GraceWindow     time.Duration
	Retention       time.Duration

	// Telegram
	TelegramBotToken string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		DatabasePath: getEnv("DATABASE_PATH", "flightwatch.db"),

		MonthlyQuota:  getEnvAsInt("MONTHLY_QUOTA", 100),
		ReserveBudget: getEnvAsInt("RESERVE_BUDGET", 5),
		PollingFloor:  getEnvAsFloat("POLLING_FLOOR", 0.3),

		PrimaryBaseURL:      getEnv("PRIMARY_BASE_URL", ""),
		PrimaryAPIKey:       getEnv("PRIMARY_API_KEY", ""),
		PrimaryTokenURL:     getEnv("PRIMARY_TOKEN_URL", ""),
		PrimaryClientID:     getEnv("PRIMARY_CLIENT_ID", ""),
		PrimaryClientSecret: getEnv("PRIMARY_CLIENT_SECRET", ""),
		PrimaryTimeout:      time.Duration(getEnvAsInt("PRIMARY_TIMEOUT", 15)) * time.Second,
		CacheSize:           getEnvAsInt("CACHE_SIZE", 64),
		CacheTTL:            time.Duration(getEnvAsInt("CACHE_TTL", 90)) * time.Second,

		FlightAwareBaseURL:  getEnv("FLIGHTAWARE_BASE_URL", "https://www.flightaware.com"),
		FlightStatsBaseURL:  getEnv("FLIGHTSTATS_BASE_URL", "https://www.flightstats.com"),
		ScoreStatusWeight:   getEnvAsInt("SCORE_STATUS_WEIGHT", 2),
		ScoreDelayWeight:    getEnvAsInt("SCORE_DELAY_WEIGHT", 3),
		ScoreGateWeight:     getEnvAsInt("SCORE_GATE_WEIGHT", 1),
		ScoreTerminalWeight: getEnvAsInt("SCORE_TERMINAL_WEIGHT", 1),

		PollWakeInterval:  time.Duration(getEnvAsInt("POLL_WAKE_INTERVAL", 60)) * time.Second,
		PollLookahead:     time.Duration(getEnvAsInt("POLL_LOOKAHEAD_HOURS", 6)) * time.Hour,
		FarInterval:       time.Duration(getEnvAsInt("POLL_FAR_INTERVAL", 30)) * time.Minute,
		NearThreshold:     time.Duration(getEnvAsInt("POLL_NEAR_THRESHOLD", 120)) * time.Minute,
		NearInterval:      time.Duration(getEnvAsInt("POLL_NEAR_INTERVAL", 10)) * time.Minute,
		ImminentThreshold: time.Duration(getEnvAsInt("POLL_IMMINENT_THRESHOLD", 30)) * time.Minute,
		ImminentInterval:  time.Duration(getEnvAsInt("POLL_IMMINENT_INTERVAL", 5)) * time.Minute,
		FlightTimeout:     time.Duration(getEnvAsInt("POLL_FLIGHT_TIMEOUT", 45)) * time.Second,

		CleanupInterval: time.Duration(getEnvAsInt("CLEANUP_INTERVAL", 60)) * time.Minute,
		GraceWindow:     time.Duration(getEnvAsInt("GRACE_WINDOW_HOURS", 24)) * time.Hour,
		Retention:       time.Duration(getEnvAsInt("RETENTION_DAYS", 7)) * 24 * time.Hour,

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	if config.PrimaryBaseURL == "" {
		return nil, fmt.Errorf("PRIMARY_BASE_URL is required")
	}
	if config.PrimaryAPIKey == "" && config.PrimaryTokenURL == "" {
		return nil, fmt.Errorf("either PRIMARY_API_KEY or PRIMARY_TOKEN_URL is required")
	}
	if config.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
