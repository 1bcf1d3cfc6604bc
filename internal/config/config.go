package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database    DatabaseConfig
	JWT         JWTConfig
	App         AppConfig
	Storage     StorageConfig
	Daybook     DaybookConfig
	Redis       RedisConfig
	Payroll     PayrollConfig
	Conventions Conventions
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
}

type StorageConfig struct {
	Type          string // local | cloudinary
	BasePath      string
	BaseURL       string
	SigningKey    string
	URLExpiry     time.Duration
	CloudinaryURL string
	Folder        string
}

// DaybookConfig points at the external bookkeeping service. An empty BaseURL disables posting.
type DaybookConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
	DrainEvery   time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QueueKey string
}

type PayrollConfig struct {
	AdvanceDeleteWindow time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading configuration from environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "homecare_payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Receipt storage
	urlExpiry, err := time.ParseDuration(getEnv("RECEIPT_URL_EXPIRY", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECEIPT_URL_EXPIRY: %w", err)
	}
	config.Storage = StorageConfig{
		Type:          getEnv("STORAGE_TYPE", "local"),
		BasePath:      getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:       getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
		SigningKey:    getEnv("STORAGE_SIGNING_KEY", ""),
		URLExpiry:     urlExpiry,
		CloudinaryURL: getEnv("CLOUDINARY_URL", ""),
		Folder:        getEnv("STORAGE_FOLDER", "advance-receipts"),
	}

	// Daybook
	daybookTimeout, err := time.ParseDuration(getEnv("DAYBOOK_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DAYBOOK_TIMEOUT: %w", err)
	}
	drainEvery, err := time.ParseDuration(getEnv("DAYBOOK_DRAIN_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DAYBOOK_DRAIN_INTERVAL: %w", err)
	}
	config.Daybook = DaybookConfig{
		BaseURL:      strings.TrimRight(getEnv("DAYBOOK_BASE_URL", ""), "/"),
		TokenURL:     getEnv("DAYBOOK_TOKEN_URL", ""),
		ClientID:     getEnv("DAYBOOK_CLIENT_ID", ""),
		ClientSecret: getEnv("DAYBOOK_CLIENT_SECRET", ""),
		Scopes:       getEnvSlice("DAYBOOK_SCOPES"),
		Timeout:      daybookTimeout,
		DrainEvery:   drainEvery,
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		QueueKey: getEnv("REDIS_DAYBOOK_QUEUE", "daybook:outbox"),
	}

	deleteWindow, err := time.ParseDuration(getEnv("ADVANCE_DELETE_WINDOW", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADVANCE_DELETE_WINDOW: %w", err)
	}
	config.Payroll = PayrollConfig{AdvanceDeleteWindow: deleteWindow}

	conventions, err := LoadConventions(getEnv("ORG_CONVENTIONS_PATH", ""))
	if err != nil {
		return nil, err
	}
	if symbol := getEnv("CURRENCY_SYMBOL", ""); symbol != "" {
		conventions.CurrencySymbol = symbol
	}
	config.Conventions = conventions

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.Storage.Type {
	case "local":
		if c.Storage.SigningKey == "" {
			return fmt.Errorf("STORAGE_SIGNING_KEY is required for local storage")
		}
	case "cloudinary":
		if c.Storage.CloudinaryURL == "" {
			return fmt.Errorf("CLOUDINARY_URL is required for cloudinary storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.Daybook.BaseURL != "" && c.Daybook.TokenURL != "" && c.Daybook.ClientID == "" {
		return fmt.Errorf("DAYBOOK_CLIENT_ID is required when DAYBOOK_TOKEN_URL is set")
	}
	if c.Payroll.AdvanceDeleteWindow <= 0 {
		return fmt.Errorf("ADVANCE_DELETE_WINDOW must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
