// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"

	// DriverMemory keeps everything in process; data is lost on exit.
	DriverMemory = "memory"
)

// DevJWTSecret signs tokens in development when JWT_SECRET is unset.
const DevJWTSecret = "dev-secret-change-me"

type Config struct {
	Port        string
	Env         string
	StoreDriver string
	DatabaseURL string
	MongoURI    string
	MongoDB     string
	JWTSecret   string
	CORSOrigins []string
	RateRPS     float64
	RateBurst   int

	// TrustedProxies lists the proxies whose X-Forwarded-For is believed.
	// Empty means the socket peer is the client.
	TrustedProxies []string
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads .env files if present, then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:        get("PORT", "8080"),
		Env:         get("APP_ENV", "development"),
		DatabaseURL: get("DATABASE_URL", postgresDSN(get)),
		MongoURI:    get("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     get("MONGO_DB", "campus_forum"),
		JWTSecret:   get("JWT_SECRET", ""),
		CORSOrigins: splitList(get("CORS_ORIGINS", "*")),

		TrustedProxies: splitList(get("TRUSTED_PROXIES", "")),
	}

	cfg.StoreDriver = get("STORE_DRIVER", driverFor(cfg.DatabaseURL))
	switch cfg.StoreDriver {
	case DriverPostgres, DriverSQLite, DriverMongo, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	var err error
	if cfg.RateRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "5"), 64); err != nil || cfg.RateRPS <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q", getenv("RATE_LIMIT_RPS"))
	}
	if cfg.RateBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "10")); err != nil || cfg.RateBurst < 1 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST %q", getenv("RATE_LIMIT_BURST"))
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = DevJWTSecret
	}
	return cfg, nil
}

// postgresDSN builds a URL from the DB_* keys, or falls back to a local
// SQLite file when none are set.
func postgresDSN(get func(string, string) string) string {
	host := get("DB_HOST", "")
	if host == "" {
		return "sqlite://campus_forum.db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		get("DB_USER", "postgres"),
		get("DB_PASSWORD", ""),
		host,
		get("DB_PORT", "5432"),
		get("DB_NAME", "campus_forum"),
		get("DB_SSLMODE", "disable"),
	)
}

func driverFor(url string) string {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return DriverMongo
	default:
		return DriverPostgres
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
