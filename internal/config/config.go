package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress    string
	DatabaseURL      string
	MaxDBConnections int

	// MongoURI switches social account storage to MongoDB when set.
	MongoURI string
	MongoDB  string

	JWTSecret               string
	JWTExpiration           time.Duration
	FirebaseProjectID       string
	FirebaseCredentialsJSON string

	BitlyAPIURL  string
	BitlyLogin   string
	BitlyAPIKey  string
	BitlyTimeout time.Duration

	PermissionCacheTTL time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string
}

const DefaultBitlyAPIURL = "https://api-ssl.bitly.com/v3/shorten"

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	return &Config{
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", "sqlite://data/support.db"),
		MaxDBConnections:        getEnvInt("MAX_DB_CONNECTIONS", 20),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDB:                 getEnv("MONGO_DB", "support"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		JWTExpiration:           getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		BitlyAPIURL:             getEnv("BITLY_API_URL", DefaultBitlyAPIURL),
		BitlyLogin:              getEnv("BITLY_LOGIN", ""),
		BitlyAPIKey:             getEnv("BITLY_API_KEY", ""),
		BitlyTimeout:            getEnvDuration("BITLY_TIMEOUT", 10*time.Second),
		PermissionCacheTTL:      getEnvDuration("PERMISSION_CACHE_TTL", 30*time.Second),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "text"),
		LogFile:                 getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring invalid integer env var", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("ignoring invalid duration env var", "key", key, "value", value)
		return defaultValue
	}
	return d
}
