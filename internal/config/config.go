// Package config provides configuration loading for reliefd.
//
// Configuration precedence (highest to lowest): environment variables,
// YAML config file (~/.config/reliefd/config.yaml), hardcoded defaults.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete reliefd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	NATS          NATSConfig          `koanf:"nats"`
	Observability ObservabilityConfig `koanf:"observability"`
	Ops           OpsConfig           `koanf:"ops"`
	Planner       ModelConfig         `koanf:"planner"`
	Interpreter   ModelConfig         `koanf:"interpreter"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// CommandRatePerMinute throttles POST /v1/command.
	CommandRatePerMinute int `koanf:"command_rate_per_minute"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	// Level is trace, debug, info, warn, or error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`
}

// NATSConfig holds event fan-out configuration. When URL is empty an
// in-process NATS server is started instead.
type NATSConfig struct {
	URL  string `koanf:"url"`
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	Enabled        bool   `koanf:"enabled"`
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
	Endpoint       string `koanf:"endpoint"`
	Protocol       string `koanf:"protocol"` // grpc or http/protobuf
	Insecure       bool   `koanf:"insecure"`
}

// OpsConfig holds orchestration engine timing.
type OpsConfig struct {
	TaskDelay          Duration `koanf:"task_delay"`
	PlannerTimeout     Duration `koanf:"planner_timeout"`
	InterpreterTimeout Duration `koanf:"interpreter_timeout"`
}

// ModelConfig holds an OpenAI-compatible chat model endpoint.
type ModelConfig struct {
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	APIKey      Secret  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
}

// applyDefaults fills zero values with production defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9520
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.CommandRatePerMinute == 0 {
		cfg.Server.CommandRatePerMinute = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.NATS.Host == "" {
		cfg.NATS.Host = "127.0.0.1"
	}
	if cfg.NATS.Port == 0 {
		cfg.NATS.Port = 4222
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "reliefd"
	}
	if cfg.Observability.Protocol == "" {
		cfg.Observability.Protocol = "grpc"
	}
	if cfg.Ops.TaskDelay == 0 {
		cfg.Ops.TaskDelay = Duration(4 * time.Second)
	}
	if cfg.Ops.PlannerTimeout == 0 {
		cfg.Ops.PlannerTimeout = Duration(45 * time.Second)
	}
	if cfg.Ops.InterpreterTimeout == 0 {
		cfg.Ops.InterpreterTimeout = Duration(30 * time.Second)
	}
	if cfg.Planner.Model == "" {
		cfg.Planner.Model = "gpt-4o-mini"
	}
	if cfg.Interpreter.Model == "" {
		cfg.Interpreter.Model = "gpt-4o-mini"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.CommandRatePerMinute < 1 {
		return fmt.Errorf("command rate must be >= 1 per minute, got %d", c.Server.CommandRatePerMinute)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	switch c.Observability.Protocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("observability protocol must be 'grpc' or 'http/protobuf', got %q", c.Observability.Protocol)
	}
	if c.Observability.Enabled && c.Observability.Endpoint == "" {
		return fmt.Errorf("observability endpoint required when telemetry is enabled")
	}
	if c.Ops.TaskDelay.Duration() <= 0 {
		return fmt.Errorf("ops task delay must be > 0")
	}
	if c.Planner.Model == "" {
		return fmt.Errorf("planner model required")
	}
	if c.Interpreter.Model == "" {
		return fmt.Errorf("interpreter model required")
	}
	return nil
}
