package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr         string
	GRPCAddr         string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	JWTSecret        string
	JWTIssuer        string
	AccessTokenTTL   time.Duration
	ServiceAuthToken string
	ShutdownTimeout  time.Duration
	SignalBuffer     int
}

// Load reads the process environment. A .env file in the working directory,
// when present, is applied first without overriding variables already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:         getenv("GRPC_ADDR", ":9090"),
		DatabaseURL:      getenv("DATABASE_URL", ""),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		RedisPassword:    getenv("REDIS_PASSWORD", ""),
		JWTSecret:        getenvKey("JWT_SECRET", "dev-secret"),
		JWTIssuer:        getenv("JWT_ISSUER", "teacherconnect"),
		AccessTokenTTL:   getenvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		ServiceAuthToken: getenv("SERVICE_AUTH_TOKEN", ""),
		ShutdownTimeout:  getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		SignalBuffer:     getenvInt("SIGNAL_BUFFER", 32),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getenvKey also honours KEY_FILE so secrets can be mounted as files.
func getenvKey(key, fallback string) string {
	if file := os.Getenv(key + "_FILE"); file != "" {
		if data, err := os.ReadFile(file); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	if val := os.Getenv(key); val != "" {
		return strings.TrimSpace(val)
	}
	return fallback
}
