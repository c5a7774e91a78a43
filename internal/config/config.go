package config

import (
	"fmt"     // Error wrapping
	"strings" // String manipulation

	"github.com/caarlos0/env/v11" // Struct-tag environment parsing
	"github.com/joho/godotenv"    // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"8080"`  // Application port
	IsProd   bool   `env:"IS_PROD" envDefault:"false"`  // Is production environment
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // Logrus level name

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"` // postgres or mysql
	DBUser     string `env:"DB_USER"`                         // Database user
	DBPassword string `env:"DB_PASSWORD"`                     // Database password
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`  // Database host
	DBPort     string `env:"DB_PORT"`                         // Database port
	DBName     string `env:"DB_NAME"`                         // Database name
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"` // Postgres sslmode

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"` // JWT secret key

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"` // Redis server address
	RedisPass string `env:"REDIS_PASS"`                             // Redis password
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`                // Redis database number

	TrustedProxies []string `env:"TRUSTED_PROXIES" envDefault:"127.0.0.1" envSeparator:","` // Proxies gin may trust

	GeocodeURL       string `env:"GEOCODE_URL" envDefault:"https://nominatim.openstreetmap.org"` // Geocoding upstream
	GeocodeUserAgent string `env:"GEOCODE_USER_AGENT" envDefault:"marketplace-api"`              // Required by Nominatim

	PaymentBaseURL   string `env:"PAYMENT_BASE_URL" envDefault:"https://api.paystack.co"` // Payment verification API
	PaymentSecretKey string `env:"PAYMENT_SECRET_KEY"`                                    // Payment provider secret
	PaymentCurrency  string `env:"PAYMENT_CURRENCY" envDefault:"NGN"`                     // Expected currency

	GenAIAPIKey string `env:"GENAI_API_KEY"`                             // Gemini API key, empty disables /ai
	GenAIModel  string `env:"GENAI_MODEL" envDefault:"gemini-2.5-flash"` // Gemini model

	SentryDSN string `env:"SENTRY_DSN"` // Error telemetry DSN, empty disables shipping
}

// LoadConfig loads configuration from a .env file (if present) and the environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	if cfg.DBPort == "" {
		cfg.DBPort = defaultPort(cfg.DBDriver)
	}
	return &cfg, nil
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "mysql":
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
	}
}

func defaultPort(driver string) string {
	if driver == "mysql" {
		return "3306"
	}
	return "5432"
}
