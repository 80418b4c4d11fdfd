package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	MysqlDSN   string
	JWTSecret  string

	SearchDebounce     time.Duration
	ResolveConcurrency int
	StoreTimeout       time.Duration
}

var Cfg *Config

func Load() {
	Cfg = &Config{
		ServerAddr:         ":" + getEnv("PORT", "8080"),
		MysqlDSN:           getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/friendgraph?charset=utf8mb4&parseTime=True&loc=Local"),
		JWTSecret:          getEnv("JWT_SECRET", "friendgraph-secret-key-change-in-production"),
		SearchDebounce:     time.Duration(getEnvInt("SEARCH_DEBOUNCE_MS", 300)) * time.Millisecond,
		ResolveConcurrency: getEnvInt("RESOLVE_CONCURRENCY", 10),
		StoreTimeout:       time.Duration(getEnvInt("STORE_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
