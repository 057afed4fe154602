package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the crimewatch service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Gemini configuration
	GeminiAPIKey string
	GeminiModel  string

	// Analysis configuration
	ClassifyTimeout  time.Duration
	FallbackCategory string

	// Reward configuration
	EthNetworkURL  string
	EthPrivateKey  string
	RewardAmount   float64
	RewardTimeout  time.Duration
	ExplorerURLFmt string

	// RabbitMQ configuration (optional; empty URL disables publishing)
	AMQPURL         string
	AMQPExchange    string
	AMQPAnalyzedKey string
	AMQPVerifiedKey string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "crimewatch"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Gemini defaults
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		// Analysis defaults (30 seconds)
		ClassifyTimeout:  getDurationEnv("CLASSIFY_TIMEOUT", 30*time.Second),
		FallbackCategory: getEnv("FALLBACK_CATEGORY", "OTHER"),

		// Reward defaults (0.6 native units, 15 seconds)
		EthNetworkURL:  getEnv("ETH_NETWORK_URL", ""),
		EthPrivateKey:  getEnv("ETH_PRIVATE_KEY", ""),
		RewardAmount:   getFloatEnv("REWARD_AMOUNT", 0.6),
		RewardTimeout:  getDurationEnv("REWARD_TIMEOUT", 15*time.Second),
		ExplorerURLFmt: getEnv("EXPLORER_URL_FMT", "https://etherscan.io/tx/%s"),

		// RabbitMQ defaults
		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "crimewatch"),
		AMQPAnalyzedKey: getEnv("AMQP_ANALYZED_KEY", "report.analyzed"),
		AMQPVerifiedKey: getEnv("AMQP_VERIFIED_KEY", "report.verified"),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable or returns a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
