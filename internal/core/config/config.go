package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// BaseURL is the backend base path, e.g. https://api.lunaalba.example/api/v1.
	// Empty means no remote backend is configured and auth runs against the
	// local fallback authority.
	BaseURL        string
	RequestTimeout time.Duration
	StorePath      string
	RedisURL       string
	StoreBackend   string
	ProbeInterval  time.Duration
	LocalAuthSecret string
	MockPort       string
}

func LoadConfig() Config {
	return Config{
		BaseURL:        os.Getenv("API_BASE_URL"),
		RequestTimeout: getEnvDuration("API_REQUEST_TIMEOUT", 15*time.Second),
		StorePath:      getEnv("STORE_PATH", "lunaalba_store.json"),
		RedisURL:       getEnv("REDIS_URL", "redis:6379"),
		StoreBackend:   getEnv("STORE_BACKEND", "file"),
		ProbeInterval:  getEnvDuration("HEALTH_PROBE_INTERVAL", 30*time.Second),
		LocalAuthSecret: getEnv("LOCAL_AUTH_SECRET", "dev-secret-change"),
		MockPort:       getEnv("MOCK_PORT", "4000"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// Plain numbers are treated as seconds.
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
