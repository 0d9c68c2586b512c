package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	// Console
	ServerPort   string
	BackendURL   string
	CookieSecret string
	PageSize     int

	// Session storage. Empty RedisAddr keeps sessions in process memory.
	RedisAddr string
	RedisDB   int
	RedisPass string

	// Reference backend (cmd/stubd)
	StubPort  string
	MySQLDSN  string
	SQLiteDSN string
	JWTSecret string
}

// Load builds Config from environment with sensible defaults. A .env file is
// honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		BackendURL:   getEnv("BACKEND_URL", "http://localhost:3001/api"),
		CookieSecret: getEnv("COOKIE_SECRET", "change-me"),
		PageSize:     getEnvInt("PAGE_SIZE", 10),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		RedisPass:    os.Getenv("REDIS_PASSWORD"),
		StubPort:     getEnv("STUB_PORT", "3001"),
		MySQLDSN:     os.Getenv("MYSQL_DSN"),
		SQLiteDSN:    getEnv("SQLITE_DSN", "railboard.db"),
		JWTSecret:    getEnv("JWT_SECRET", "change-me"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
