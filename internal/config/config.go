// Package config provides runtime configuration values for the controller.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "PIVEND"

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Hardware drivers. Only the simulated driver ships today; a GPIO-backed
// driver would register a new mode here.
const (
	HardwareMock = "mock"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"pivend"`
	Env         string `envconfig:"ENV" default:"dev"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	Store      string `envconfig:"STORE" default:"memory"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/vending.db"`

	HardwareMode string `envconfig:"HARDWARE_MODE" default:"mock"`

	LowStockThreshold int           `envconfig:"LOW_STOCK_THRESHOLD" default:"2"`
	TelemetryEnabled  bool          `envconfig:"TELEMETRY_ENABLED" default:"true"`
	TelemetryInterval time.Duration `envconfig:"TELEMETRY_INTERVAL" default:"30m"`
}

// Load collects configuration from the environment, honoring an optional
// .env file for local development.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	default:
		return Config{}, fmt.Errorf("config: unknown store %q", cfg.Store)
	}
	switch cfg.HardwareMode {
	case HardwareMock:
	default:
		return Config{}, fmt.Errorf("config: unknown hardware mode %q", cfg.HardwareMode)
	}
	return cfg, nil
}
