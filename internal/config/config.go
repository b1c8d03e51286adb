package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Log       LogConfig
	Quote     QuoteConfig
	Ledger    LedgerConfig
	Reconcile ReconcileConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Pretty bool
}

// QuoteConfig selects and configures the quote provider.
type QuoteConfig struct {
	Provider string // yahoo, iex or static
	APIKey   string
	BaseURL  string
	Timeout  time.Duration

	// StaticPrices is only used by the static provider, e.g. "ABC=20.00,XYZ=5.5".
	StaticPrices string
}

// LedgerConfig holds settings of the portfolio engine.
type LedgerConfig struct {
	DefaultCash          string
	ValuationConcurrency int

	// CursorKey is a base64 encoded 32 byte fernet key used to seal pagination cursors.
	// A random key is generated when empty, which invalidates cursors on restart.
	CursorKey string
}

// ReconcileConfig configures the periodic ledger reconciliation.
type ReconcileConfig struct {
	Enabled  bool
	Schedule string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/ledger.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
		Quote: QuoteConfig{
			Provider:     strings.ToLower(getEnv("QUOTE_PROVIDER", "yahoo")),
			APIKey:       getEnv("QUOTE_API_KEY", ""),
			BaseURL:      getEnv("QUOTE_BASE_URL", ""),
			Timeout:      getEnvAsDuration("QUOTE_TIMEOUT", 10*time.Second),
			StaticPrices: getEnv("QUOTE_STATIC_PRICES", ""),
		},
		Ledger: LedgerConfig{
			DefaultCash:          getEnv("DEFAULT_CASH", "10000.00"),
			ValuationConcurrency: getEnvAsInt("VALUATION_CONCURRENCY", 4),
			CursorKey:            getEnv("CURSOR_KEY", ""),
		},
		Reconcile: ReconcileConfig{
			Enabled:  getEnvAsBool("RECONCILE_ENABLED", true),
			Schedule: getEnv("RECONCILE_SCHEDULE", "@hourly"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}

	switch c.Quote.Provider {
	case "yahoo", "static":
	case "iex":
		if c.Quote.APIKey == "" {
			return fmt.Errorf("QUOTE_API_KEY not set")
		}
	default:
		return fmt.Errorf("unknown QUOTE_PROVIDER %q", c.Quote.Provider)
	}

	cash, err := decimal.NewFromString(c.Ledger.DefaultCash)
	if err != nil || cash.IsNegative() {
		return fmt.Errorf("DEFAULT_CASH must be a non-negative amount, got %q", c.Ledger.DefaultCash)
	}

	if c.Ledger.ValuationConcurrency < 1 {
		return fmt.Errorf("VALUATION_CONCURRENCY must be at least 1")
	}

	if c.Ledger.CursorKey != "" {
		if _, err := fernet.DecodeKey(c.Ledger.CursorKey); err != nil {
			return fmt.Errorf("CURSOR_KEY must be a base64 encoded 32 byte key")
		}
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
