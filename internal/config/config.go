// Package config loads server configuration from an optional YAML file
// and AIRPORT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/airport-simulator/internal/observability"
	"github.com/signalsfoundry/airport-simulator/internal/storage"
	"github.com/signalsfoundry/airport-simulator/model"
	"github.com/signalsfoundry/airport-simulator/timectrl"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all server configuration.
type Config struct {
	Balance model.Balance               `yaml:"balance"`
	Server  ServerConfig                `yaml:"server"`
	Storage StorageConfig               `yaml:"storage"`
	Tracing observability.TracingConfig `yaml:"tracing"`
	Auth    AuthConfig                  `yaml:"auth"`
}

// ServerConfig covers listeners and the game clock.
type ServerConfig struct {
	GRPCAddr    string        `yaml:"grpcAddr"`
	HTTPAddr    string        `yaml:"httpAddr"`
	MetricsAddr string        `yaml:"metricsAddr"`
	Frame       time.Duration `yaml:"frame"`
	ClockMode   string        `yaml:"clockMode"` // realtime | accelerated
	// Seed fixes the random source; 0 draws a fresh one per process.
	Seed int64 `yaml:"seed"`
}

// StorageConfig selects the save-game store. An empty driver keeps saves
// in memory.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "" | sqlite3 | mysql
	DSN    string `yaml:"dsn"`
	Slot   string `yaml:"slot"`
}

// AuthConfig enables bearer tokens on the HTTP API when Secret is set.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Balance: model.DefaultBalance(),
		Server: ServerConfig{
			GRPCAddr:    ":50051",
			HTTPAddr:    ":8080",
			MetricsAddr: ":9090",
			Frame:       timectrl.DefaultFrame,
			ClockMode:   "realtime",
		},
		Storage: StorageConfig{
			Slot: storage.DefaultSlot,
		},
		Tracing: observability.DefaultTracingConfig(),
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if
// path is non-empty, then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.GRPCAddr = getEnv("AIRPORT_GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("AIRPORT_HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.MetricsAddr = getEnv("AIRPORT_METRICS_ADDR", c.Server.MetricsAddr)
	c.Server.Frame = getDurationEnv("AIRPORT_FRAME", c.Server.Frame)
	c.Server.ClockMode = getEnv("AIRPORT_CLOCK_MODE", c.Server.ClockMode)
	c.Server.Seed = getInt64Env("AIRPORT_SEED", c.Server.Seed)

	c.Storage.Driver = getEnv("AIRPORT_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DSN = getEnv("AIRPORT_STORAGE_DSN", c.Storage.DSN)
	c.Storage.Slot = getEnv("AIRPORT_SAVE_SLOT", c.Storage.Slot)

	c.Auth.Secret = getEnv("AIRPORT_AUTH_SECRET", c.Auth.Secret)
	c.Auth.TokenTTL = getDurationEnv("AIRPORT_AUTH_TOKEN_TTL", c.Auth.TokenTTL)

	c.Balance.StartingCash = getIntEnv("AIRPORT_STARTING_CASH", c.Balance.StartingCash)
	c.Balance.DayLength = getDurationEnv("AIRPORT_DAY_LENGTH", c.Balance.DayLength)

	c.Tracing = observability.TracingConfigFromEnv(c.Tracing)
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if err := c.Balance.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Server.Frame <= 0 {
		return fmt.Errorf("%w: server.frame must be positive", ErrInvalidConfig)
	}
	switch c.Server.ClockMode {
	case "realtime", "accelerated":
	default:
		return fmt.Errorf("%w: server.clockMode %q", ErrInvalidConfig, c.Server.ClockMode)
	}
	switch c.Storage.Driver {
	case "", "memory":
	case storage.DriverSQLite, storage.DriverMySQL:
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: storage.dsn required for driver %s", ErrInvalidConfig, c.Storage.Driver)
		}
	default:
		return fmt.Errorf("%w: storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Storage.Slot == "" {
		return fmt.Errorf("%w: storage.slot must not be empty", ErrInvalidConfig)
	}
	if c.Auth.Secret != "" && c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.tokenTTL must be positive", ErrInvalidConfig)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sampleRatio must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

// ClockMode maps the configured mode name onto the clock.
func (c Config) ClockMode() timectrl.Mode {
	return timectrl.ParseMode(c.Server.ClockMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
