// Package config loads server configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/parking-permit-manager/backend/internal/policy"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Addr    string
	DataDir string

	NightStartHour int
	NightEndHour   int

	ZoneGraceDuration time.Duration
	HistoryRetention  time.Duration

	ReconcileInterval time.Duration
	SweepInterval     time.Duration
	PruneInterval     time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := &Config{
		Addr:              getEnv("PARKING_ADDR", ":8080"),
		DataDir:           getEnv("PARKING_DATA_DIR", "./data"),
		NightStartHour:    getEnvInt("PARKING_NIGHT_START_HOUR", 19),
		NightEndHour:      getEnvInt("PARKING_NIGHT_END_HOUR", 6),
		ZoneGraceDuration: getEnvDuration("PARKING_ZONE_GRACE", 30*time.Minute),
		HistoryRetention:  getEnvDuration("PARKING_HISTORY_RETENTION", 24*time.Hour),
		ReconcileInterval: getEnvDuration("PARKING_RECONCILE_INTERVAL", time.Minute),
		SweepInterval:     getEnvDuration("PARKING_SWEEP_INTERVAL", time.Minute),
		PruneInterval:     getEnvDuration("PARKING_PRUNE_INTERVAL", time.Hour),
	}

	if cfg.NightStartHour < 0 || cfg.NightStartHour > 23 || cfg.NightEndHour < 0 || cfg.NightEndHour > 23 {
		return nil, fmt.Errorf("night window hours must be 0-23, got %d-%d", cfg.NightStartHour, cfg.NightEndHour)
	}

	return cfg, nil
}

// NightWindow returns the configured day/night boundary.
func (c *Config) NightWindow() policy.NightWindow {
	return policy.NightWindow{StartHour: c.NightStartHour, EndHour: c.NightEndHour}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %s", key, value, fallback)
		return fallback
	}
	return d
}
