package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/markdave123-py/contexta-sources/internal/logger"
)

type Config struct {
	Port      string
	JWTSecret string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	AwsEndpoint  string

	DatabaseURL string
	RedisURL    string
	BadgerPath  string

	AzureSearchEndpoint string
	AzureSearchAPIKey   string
	GCSCredentialsFile  string

	DefaultPageSize  int
	SessionTTL       time.Duration
	SessionCapacity  int
	BatchErrorPolicy string

	LogLevel string
	LogJSON  bool
}

// LoadConfig reads .env when present, then the process environment. Every
// backend is optional; one left unset is simply not wired.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		AwsEndpoint:  getEnv("AWS_ENDPOINT", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		BadgerPath:  getEnv("BADGER_PATH", ""),

		AzureSearchEndpoint: getEnv("AZURE_SEARCH_ENDPOINT", ""),
		AzureSearchAPIKey:   getEnv("AZURE_SEARCH_API_KEY", ""),
		GCSCredentialsFile:  getEnv("GCS_CREDENTIALS_FILE", ""),

		DefaultPageSize:  getEnvInt("DEFAULT_PAGE_SIZE", 50),
		SessionTTL:       getEnvDuration("SESSION_TTL", 15*time.Minute),
		SessionCapacity:  getEnvInt("SESSION_CAPACITY", 256),
		BatchErrorPolicy: getEnv("BATCH_ERROR_POLICY", "stop"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),
	}
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.GetDefault().Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.GetDefault().Warn("env value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.GetDefault().Warn("env value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
