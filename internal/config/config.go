// Package config loads tsfeatures settings from an optional YAML file,
// TSFEATURES_* environment variables and built-in defaults.
package config

import (
	"errors"
	"time"
)

// Defaults.
const (
	DefaultServerAddr     = "localhost:5123"
	DefaultMaxBodyBytes   = 16 << 20
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultLogLevel       = "info"
	DefaultServiceName    = "tsfeatures"
	DefaultCollectDB      = ".tsfeatures.db"
	DefaultBridgeAttempts = 10
	DefaultBridgeBackoff  = 10 * time.Millisecond
)

// Validation errors.
var (
	ErrInvalidAddr         = errors.New("server.addr must not be empty")
	ErrInvalidMaxBodyBytes = errors.New("server.max_body_bytes must be positive")
	ErrInvalidTimeout      = errors.New("server timeouts must not be negative")
	ErrInvalidLogLevel     = errors.New("log.level must be one of debug, info, warn, error")
	ErrInvalidWorkers      = errors.New("collect.workers must not be negative")
	ErrInvalidAttempts     = errors.New("bridge.attempts must be at least 1")
	ErrInvalidBackoff      = errors.New("bridge.backoff must not be negative")
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Collect   CollectConfig   `mapstructure:"collect"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
}

// ServerConfig configures the HTTP analysis service.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig configures trace export. An empty OTLPEndpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name"`
}

// CollectConfig configures directory collection. Workers of 0 means
// GOMAXPROCS.
type CollectConfig struct {
	DB      string   `mapstructure:"db"`
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
	Workers int      `mapstructure:"workers"`
}

// BridgeConfig configures the retrying client for a remote service.
type BridgeConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return ErrInvalidAddr
	case c.Server.MaxBodyBytes <= 0:
		return ErrInvalidMaxBodyBytes
	case c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0:
		return ErrInvalidTimeout
	case c.Collect.Workers < 0:
		return ErrInvalidWorkers
	case c.Bridge.Attempts < 1:
		return ErrInvalidAttempts
	case c.Bridge.Backoff < 0:
		return ErrInvalidBackoff
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return ErrInvalidLogLevel
	}
}
