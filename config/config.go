// Package config loads runtime settings from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string // empty disables the result cache
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int // seconds
	Timeout     int // seconds
	Prefix      string
}

type ForecastConfig struct {
	Concurrency      int
	CacheTTL         time.Duration
	SnapshotInterval time.Duration // 0 disables the snapshot scheduler
}

type AppConfig struct {
	Port       string
	DBDriver   string // "sqlite" or "postgres"
	SQLitePath string
	Postgres   PostgresConfig
	Redis      RedisConfig
	Forecast   ForecastConfig
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

// Load reads .env (if any) and the process environment.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Config] .env not loaded: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() AppConfig {
	return AppConfig{
		Port:       getenv("APP_PORT", "8080"),
		DBDriver:   getenv("DB_DRIVER", "sqlite"),
		SQLitePath: getenv("SQLITE_PATH", "revenue.db"),
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     mustAtoi(getenv("PG_PORT", "5432")),
			User:     getenv("PG_USER", "postgres"),
			Password: getenv("PG_PASSWORD", ""),
			DBName:   getenv("PG_DB", "revenue"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", ""),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          mustAtoi(getenv("REDIS_DB", "0")),
			MaxRetries:  mustAtoi(getenv("REDIS_MAX_RETRIES", "3")),
			DialTimeout: mustAtoi(getenv("REDIS_DIAL_TIMEOUT", "5")),
			Timeout:     mustAtoi(getenv("REDIS_TIMEOUT", "3")),
			Prefix:      getenv("REDIS_PREFIX", "revenue_forecast"),
		},
		Forecast: ForecastConfig{
			Concurrency:      mustAtoi(getenv("FORECAST_CONCURRENCY", "8")),
			CacheTTL:         time.Duration(mustAtoi(getenv("FORECAST_CACHE_TTL", "300"))) * time.Second,
			SnapshotInterval: time.Duration(mustAtoi(getenv("SNAPSHOT_INTERVAL", "0"))) * time.Minute,
		},
	}
}

// CacheEnabled reports whether a redis address is configured.
func (c AppConfig) CacheEnabled() bool { return c.Redis.Addr != "" }
