package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr string
}

type AppConfig struct {
	ServiceName string
	Env         string
	LogLevel    string
	HTTP        HTTPConfig

	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	// ModerationPrescreen holds new comments in the moderation queue
	// instead of auto-approving them.
	ModerationPrescreen bool
}

func (c AppConfig) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from the environment, with an optional .env file
// for local development.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		ServiceName: getenv("SERVICE_NAME"),
		Env:         getenv("APP_ENV"),
		LogLevel:    getenv("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Addr: getenv("HTTP_ADDR"),
		},
		DatabaseURL:         getenv("DATABASE_URL"),
		RedisURL:            getenv("REDIS_URL"),
		NATSURL:             getenv("NATS_URL"),
		JWTSecret:           getenv("JWT_SECRET"),
		ModerationPrescreen: boolenv("MODERATION_PRESCREEN"),
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func boolenv(key string) bool {
	switch strings.ToLower(getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
