package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Payment coordinator timing
	Coordinator CoordinatorConfig

	// Support chat configuration
	Chat ChatConfig

	// Domain event publishing
	Events EventsConfig

	// Distributed tracing
	Tracing TracingConfig
}

// PaymentConfig holds Razorpay configuration
type PaymentConfig struct {
	Mode          string // "live" or "mock" - mock returns placeholder orders without calling Razorpay
	KeyID         string // Razorpay key id (public, sent to the checkout modal)
	KeySecret     string // Razorpay key secret (SECRET - never expose to client)
	WebhookSecret string // Razorpay webhook signing secret
	APIURL        string
	Currency      string
	MerchantName  string
}

// CoordinatorConfig holds payment attempt timing
type CoordinatorConfig struct {
	PollInterval  time.Duration
	RedirectDelay time.Duration
	AttemptTTL    time.Duration
	SweepInterval time.Duration
}

// ChatConfig holds support chat configuration
type ChatConfig struct {
	MaxSessions    int
	ResponderDelay time.Duration
}

// EventsConfig holds RabbitMQ configuration. Publishing is disabled when URL is empty.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

// TracingConfig holds OpenTelemetry configuration. Tracing is disabled when Endpoint is empty.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
		Payment: PaymentConfig{
			Mode:          getEnv("PAYMENT_MODE", "mock"),
			KeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			APIURL:        getEnv("RAZORPAY_API_URL", "https://api.razorpay.com/v1"),
			Currency:      getEnv("PAYMENT_CURRENCY", "INR"),
			MerchantName:  getEnv("MERCHANT_NAME", "EventMaster"),
		},
		Coordinator: CoordinatorConfig{
			PollInterval:  time.Duration(getEnvAsInt("PAYMENT_POLL_INTERVAL_SECONDS", 5)) * time.Second,
			RedirectDelay: time.Duration(getEnvAsInt("PAYMENT_REDIRECT_DELAY_SECONDS", 3)) * time.Second,
			AttemptTTL:    time.Duration(getEnvAsInt("PAYMENT_ATTEMPT_TTL_SECONDS", 1800)) * time.Second,
			SweepInterval: time.Duration(getEnvAsInt("PAYMENT_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		},
		Chat: ChatConfig{
			MaxSessions:    getEnvAsInt("CHAT_MAX_SESSIONS", 1000),
			ResponderDelay: time.Duration(getEnvAsInt("CHAT_RESPONDER_DELAY_MS", 1000)) * time.Millisecond,
		},
		Events: EventsConfig{
			AMQPURL:  getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "event_booking"),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "event-booking-backend"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	switch c.Payment.Mode {
	case "live":
		if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in live payment mode")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("RAZORPAY_WEBHOOK_SECRET is required in live payment mode")
		}
	case "mock":
	default:
		return fmt.Errorf("invalid PAYMENT_MODE: %s (must be 'live' or 'mock')", c.Payment.Mode)
	}

	if c.Coordinator.PollInterval <= 0 {
		return fmt.Errorf("PAYMENT_POLL_INTERVAL_SECONDS must be positive")
	}

	if c.Chat.MaxSessions <= 0 {
		return fmt.Errorf("CHAT_MAX_SESSIONS must be positive")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
