package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	// ConnectTimeoutSec bounds each connection attempt.
	ConnectTimeoutSec int
	// ConnectRetries is how many times startup pings Postgres before giving up.
	ConnectRetries int
}

// MinIOConfig holds object storage settings for the product image host.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL is prepended to object keys when building image URLs.
	// When empty, images are served by the API under /images/.
	PublicBaseURL string
}

// RedisConfig holds settings for guest carts and the catalog cache.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	ProductCacheTTL time.Duration
	GuestCartTTL    time.Duration
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// PricingConfig holds checkout pricing rules. All amounts are in cents.
type PricingConfig struct {
	ShippingFlatCents          int64
	FreeShippingThresholdCents int64
	TaxRateBasisPoints         int64
	Currency                   string
}

// CartConfig holds cart limits.
type CartConfig struct {
	MaxQuantityPerLine int
	LowStockThreshold  int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Timezone string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Pricing  PricingConfig
	Cart     CartConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
			ConnectRetries:     getEnvInt("DB_CONNECT_RETRIES", 5),
		},
		MinIO: MinIOConfig{
			Endpoint:      getEnv("MINIO_ENDPOINT", ""),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", "product-images"),
			UseSSL:        getEnvBool("MINIO_USE_SSL", false),
			PublicBaseURL: getEnv("MINIO_PUBLIC_BASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvInt("REDIS_DB", 0),
			ProductCacheTTL: getEnvDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
			GuestCartTTL:    getEnvDuration("GUEST_CART_TTL", 30*24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "furnistore"),
		},
		Pricing: PricingConfig{
			ShippingFlatCents:          getEnvInt64("SHIPPING_FLAT_CENTS", 4999),
			FreeShippingThresholdCents: getEnvInt64("FREE_SHIPPING_THRESHOLD_CENTS", 50000),
			TaxRateBasisPoints:         getEnvInt64("TAX_RATE_BP", 800),
			Currency:                   getEnv("CURRENCY", "USD"),
		},
		Cart: CartConfig{
			MaxQuantityPerLine: getEnvInt("CART_MAX_QTY_PER_LINE", 20),
			LowStockThreshold:  getEnvInt("LOW_STOCK_THRESHOLD", 5),
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
