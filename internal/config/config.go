package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	GenesysRegion       string
	GenesysClientID     string
	GenesysClientSecret string
	QueueName           string
	PollInterval        time.Duration

	GeminiAPIKey string
	MOSThreshold float64

	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		GenesysRegion:       getEnv("GENESYS_REGION", "mypurecloud.de"),
		GenesysClientID:     os.Getenv("GENESYS_CLIENT_ID"),
		GenesysClientSecret: os.Getenv("GENESYS_CLIENT_SECRET"),
		QueueName:           getEnv("QUEUE_NAME", "Support"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
	}

	if config.GenesysClientID == "" {
		return nil, fmt.Errorf("GENESYS_CLIENT_ID is required")
	}
	if config.GenesysClientSecret == "" {
		return nil, fmt.Errorf("GENESYS_CLIENT_SECRET is required")
	}

	pollInterval, err := strconv.Atoi(getEnv("POLL_INTERVAL", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	config.PollInterval = time.Duration(pollInterval) * time.Second

	mosThreshold, err := strconv.ParseFloat(getEnv("MOS_THRESHOLD", "4.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MOS_THRESHOLD: %w", err)
	}
	config.MOSThreshold = mosThreshold

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
