package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the fulfillment service. All values
// come from the environment, with an optional .env file loaded first.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogFile         string
	AdminEmail      string
	AdminPassword   string
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		LogFile:         os.Getenv("LOG_FILE"),
		AdminEmail:      getEnv("ADMIN_EMAIL", "admin@localhost"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		ShutdownTimeout: 10 * time.Second,
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("config: invalid SHUTDOWN_TIMEOUT_SECONDS %q", v)
		}
		cfg.ShutdownTimeout = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
