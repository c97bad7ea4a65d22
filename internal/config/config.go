package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort        string
	MySQLDSN          string
	MySQLMaxOpenConns int
	RedisAddr         string
	RedisDB           int
	RedisPass         string
	// JWTSecret is the base64 encoding of the HMAC signing key.
	JWTSecret   string
	JWTLifetime time.Duration
	BcryptCost  int
	LogLevel    slog.Level
	SwaggerHost string
	ResetDB     bool
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		MySQLDSN:          getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/tasks?charset=utf8mb4&parseTime=True&loc=Local"),
		MySQLMaxOpenConns: getEnvInt("MYSQL_MAX_OPEN_CONNS", 10),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         getEnv("JWT_SECRET", "Y2hhbmdlLW1lLWNoYW5nZS1tZS1jaGFuZ2UtbWUtY2hhbmdlLW1l"),
		JWTLifetime:       getEnvDuration("JWT_LIFETIME", 24*time.Hour),
		BcryptCost:        getEnvInt("BCRYPT_COST", 10),
		LogLevel:          getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		SwaggerHost:       os.Getenv("SWAGGER_HOST"),
		ResetDB:           os.Getenv("RESET_DB") == "true",
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

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func getEnvLevel(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return level
}
