package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/limiter"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Geolocation API
	GeoAPIURL      string `validate:"required,url"`
	GeoAPIKey      string // When set, used instead of Secret Manager
	GeoAPIFields   string
	GeoHTTPTimeout int `validate:"min=1"` // seconds

	// Rate limiting
	RateLimitType   string `validate:"oneof=window redis"`
	RateLimit       int    `validate:"min=1"` // calls allowed per window
	RateLimitWindow int    `validate:"min=1"` // window length in seconds

	// Local run
	InputCSV  string
	OutputCSV string
	SinkType  string `validate:"oneof=csv mysql redis"`

	// MySQL configuration
	MySQLDSN string `validate:"required_if=SinkType mysql"`

	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"min=0"`

	// Triggered variant
	GCPProjectID  string
	SecretName    string
	SecretVersion string
	OutputBucket  string
	OutputPrefix  string `validate:"required"`
	Port          string

	// Logging
	LogLevel  string
	LogPretty bool
	LogFile   string
}

// Load reads configuration from environment variables
// with sensible defaults
func Load() *Config {
	// Load .env file if it exists (for local development)
	// In production, environment variables are set directly
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		GeoAPIURL:      getEnv("GEO_API_URL", "https://api.ipgeolocation.io/ipgeo"),
		GeoAPIKey:      getEnv("GEO_API_KEY", ""),
		GeoAPIFields:   getEnv("GEO_API_FIELDS", "geo"),
		GeoHTTPTimeout: getEnvAsInt("GEO_HTTP_TIMEOUT", 10),

		// Free plan: 60 calls per minute
		RateLimitType:   getEnv("RATE_LIMITER_TYPE", "window"),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 60),
		RateLimitWindow: getEnvAsInt("RATE_LIMIT_WINDOW", 60),

		InputCSV:  getEnv("INPUT_CSV", "ip-addresses.csv"),
		OutputCSV: getEnv("OUTPUT_CSV", "geocoded_ip_addresses.csv"),
		SinkType:  getEnv("SINK_TYPE", "csv"),

		MySQLDSN: getEnv("MYSQL_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		GCPProjectID:  getEnv("GCP_PROJECT_ID", ""),
		SecretName:    getEnv("SECRET_NAME", "ipgeolocation-api-key"),
		SecretVersion: getEnv("SECRET_VERSION", "latest"),
		OutputBucket:  getEnv("OUTPUT_BUCKET", "output-bucket"),
		OutputPrefix:  getEnv("OUTPUT_PREFIX", "geocoded_"),
		Port:          getEnv("PORT", "8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// Validate checks value constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// HTTPTimeout returns the per-call timeout
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.GeoHTTPTimeout) * time.Second
}

// Window returns the rate window length
func (c *Config) Window() time.Duration {
	return time.Duration(c.RateLimitWindow) * time.Second
}

// LimiterConfig builds the rate limiter settings
func (c *Config) LimiterConfig(onPause limiter.PauseFunc) limiter.LimiterConfig {
	return limiter.LimiterConfig{
		Type:          c.RateLimitType,
		Limit:         c.RateLimit,
		Window:        c.Window(),
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		OnPause:       onPause,
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer
// Returns default if not set or invalid
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as a boolean
// Returns default if not set or invalid
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}

	return value
}
