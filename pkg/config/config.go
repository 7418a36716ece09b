package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"
)

// Secondary store selectors for CACHE_SECONDARY
const (
	SecondaryNone      = ""
	SecondaryFirestore = "firestore"
	SecondaryRedis     = "redis"
)

// DefaultSessionSecret signs sessions when SESSION_SECRET is unset. It is
// rejected in production.
const DefaultSessionSecret = "dev-secret-key"

// ErrInsecureSessionSecret is returned by Validate for a production config
// still signing sessions with the development secret.
var ErrInsecureSessionSecret = errors.New("SESSION_SECRET must be set in production")

type Config struct {
	Port      string
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Browser origins allowed to make credentialed requests; "*" allows any
	// origin without credentials.
	AllowedOrigins []string

	// Product search API
	RapidAPIKey      string
	RapidAPIHost     string
	SearchAPIURL     string
	SearchTimeout    time.Duration
	SearchMaxRetries int

	// Session
	SessionSecret string
	SessionTTL    time.Duration

	// Relational store
	DatabaseURL string

	// Cache
	CacheTTL       time.Duration
	CacheSecondary string
	ReaperInterval time.Duration
	HistoryLimit   int

	// Secondary stores
	FirebaseCredentials string
	FirebaseProjectID   string
	RedisURL            string

	production bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		RapidAPIKey:      getEnv("RAPIDAPI_KEY", ""),
		RapidAPIHost:     getEnv("RAPIDAPI_HOST", "real-time-product-search.p.rapidapi.com"),
		SearchAPIURL:     getEnv("SEARCH_API_URL", "https://real-time-product-search.p.rapidapi.com"),
		SearchTimeout:    getEnvAsDuration("SEARCH_TIMEOUT", 30*time.Second),
		SearchMaxRetries: getEnvAsInt("SEARCH_MAX_RETRIES", 2),

		SessionSecret: getEnv("SESSION_SECRET", DefaultSessionSecret),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		DatabaseURL: getDatabaseURL(),

		CacheTTL:       getEnvAsDuration("CACHE_TTL", 24*time.Hour),
		CacheSecondary: strings.ToLower(getEnv("CACHE_SECONDARY", SecondaryNone)),
		ReaperInterval: getEnvAsDuration("REAPER_INTERVAL", time.Hour),
		HistoryLimit:   getEnvAsInt("HISTORY_LIMIT", 10),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		RedisURL:            getEnv("REDIS_URL", ""),

		production: getEnvAsBool("PRODUCTION", false),
	}
}

// IsProduction reports whether background workers such as the cache reaper
// should run.
func (c *Config) IsProduction() bool {
	return c.production || strings.EqualFold(c.AppEnv, "production")
}

// Validate rejects settings that are only acceptable during development.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.SessionSecret == "" || c.SessionSecret == DefaultSessionSecret) {
		return ErrInsecureSessionSecret
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blank items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnvAsDuration accepts Go durations as well as day/week units ("1d").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := str2duration.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// getDatabaseURL prefers the five discrete PG* variables when all of them are
// set, and falls back to DATABASE_URL otherwise.
func getDatabaseURL() string {
	keys := []string{"PGUSER", "PGPASSWORD", "PGHOST", "PGPORT", "PGDATABASE"}
	complete := true
	for _, k := range keys {
		if os.Getenv(k) == "" {
			complete = false
			break
		}
	}

	if complete {
		u := &url.URL{
			Scheme:   "postgresql",
			User:     url.UserPassword(os.Getenv("PGUSER"), os.Getenv("PGPASSWORD")),
			Host:     fmt.Sprintf("%s:%s", os.Getenv("PGHOST"), os.Getenv("PGPORT")),
			Path:     "/" + os.Getenv("PGDATABASE"),
			RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "require"),
		}
		return u.String()
	}

	return os.Getenv("DATABASE_URL")
}
