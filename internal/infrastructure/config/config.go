// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Postgres holds the provider call ledger; empty disables it
	PostgresURI string

	// Vehicle data provider
	ProviderName        string
	ProviderBaseURL     string
	ProviderAPIKey      string
	ProviderTimeout     time.Duration
	ProviderRatePerSec  float64
	ProviderRateBurst   int
	ProviderMaxAttempts int
	ProviderTestMode    bool

	// Unit cost per successful call, GBP
	CostHistory   decimal.Decimal
	CostSpecs     decimal.Decimal
	CostMOT       decimal.Decimal
	CostValuation decimal.Decimal

	// MOT history API (OAuth2 client credentials); empty client id falls
	// back to the main provider's MOT endpoint
	MOTBaseURL      string
	MOTAPIKey       string
	MOTClientID     string
	MOTClientSecret string
	MOTTokenURL     string
	MOTScope        string

	// Aggregation
	CacheTTL      time.Duration
	FanOutEnabled bool

	// Listing enrichment loop
	EnrichInterval  time.Duration
	EnrichBatchSize int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "vehicles"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresURI: getEnv("POSTGRES_DSN", ""),

		ProviderName:        getEnv("PROVIDER_NAME", "checkcardetails"),
		ProviderBaseURL:     getEnv("PROVIDER_BASE_URL", "https://api.checkcardetails.co.uk/vehicledata"),
		ProviderAPIKey:      getEnv("PROVIDER_API_KEY", ""),
		ProviderTimeout:     time.Duration(getEnvAsInt("PROVIDER_TIMEOUT_SECONDS", 15)) * time.Second,
		ProviderRatePerSec:  getEnvAsFloat("PROVIDER_RATE_PER_SECOND", 5),
		ProviderRateBurst:   getEnvAsInt("PROVIDER_RATE_BURST", 5),
		ProviderMaxAttempts: getEnvAsInt("PROVIDER_MAX_ATTEMPTS", 2),
		ProviderTestMode:    getEnvAsBool("PROVIDER_TEST_MODE", false),

		MOTBaseURL:      getEnv("MOT_BASE_URL", ""),
		MOTAPIKey:       getEnv("MOT_API_KEY", ""),
		MOTClientID:     getEnv("MOT_CLIENT_ID", ""),
		MOTClientSecret: getEnv("MOT_CLIENT_SECRET", ""),
		MOTTokenURL:     getEnv("MOT_TOKEN_URL", ""),
		MOTScope:        getEnv("MOT_SCOPE", "https://tapi.dvsa.gov.uk/.default"),

		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_DAYS", 30)) * 24 * time.Hour,
		FanOutEnabled: getEnvAsBool("FANOUT_ENABLED", true),

		EnrichInterval:  time.Duration(getEnvAsInt("ENRICH_INTERVAL_SECONDS", 60)) * time.Second,
		EnrichBatchSize: getEnvAsInt("ENRICH_BATCH_SIZE", 20),
	}

	var err error
	if config.CostHistory, err = getEnvAsDecimal("COST_HISTORY", "1.82"); err != nil {
		return nil, err
	}
	if config.CostSpecs, err = getEnvAsDecimal("COST_SPECS", "0.05"); err != nil {
		return nil, err
	}
	if config.CostMOT, err = getEnvAsDecimal("COST_MOT", "0.02"); err != nil {
		return nil, err
	}
	if config.CostValuation, err = getEnvAsDecimal("COST_VALUATION", "0.12"); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the aggregator cannot run with
func (c *Config) Validate() error {
	for name, cost := range map[string]decimal.Decimal{
		"COST_HISTORY":   c.CostHistory,
		"COST_SPECS":     c.CostSpecs,
		"COST_MOT":       c.CostMOT,
		"COST_VALUATION": c.CostValuation,
	} {
		if cost.IsNegative() {
			return fmt.Errorf("%s must not be negative, got %s", name, cost)
		}
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_DAYS must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// MOTOAuthEnabled reports whether the dedicated MOT API is configured
func (c *Config) MOTOAuthEnabled() bool {
	return c.MOTClientID != "" && c.MOTClientSecret != "" && c.MOTTokenURL != ""
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) (decimal.Decimal, error) {
	valueStr := getEnv(key, defaultValue)
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, valueStr, err)
	}
	return value, nil
}
