package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/reliefd/internal/config"
)

// Config holds exporter and provider settings.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP collector address, host:port.
	Endpoint string

	// Protocol selects the OTLP transport: "grpc" or "http/protobuf".
	Protocol string

	// Insecure disables TLS. Only allowed for local endpoints.
	Insecure bool

	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64

	// MetricInterval is the periodic reader export interval.
	MetricInterval time.Duration

	// ShutdownTimeout bounds provider shutdown when the caller's context
	// has no deadline.
	ShutdownTimeout time.Duration
}

// NewDefaultConfig returns local-development defaults. Telemetry stays
// off until an operator points it at a collector.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:         false,
		ServiceName:     "reliefd",
		ServiceVersion:  "0.1.0",
		Endpoint:        "localhost:4317",
		Protocol:        "grpc",
		Insecure:        true,
		SampleRate:      1.0,
		MetricInterval:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// FromApp builds a telemetry Config from the daemon's observability
// section, filling the knobs the daemon config does not expose.
func FromApp(oc config.ObservabilityConfig) *Config {
	cfg := NewDefaultConfig()
	cfg.Enabled = oc.Enabled
	if oc.ServiceName != "" {
		cfg.ServiceName = oc.ServiceName
	}
	if oc.ServiceVersion != "" {
		cfg.ServiceVersion = oc.ServiceVersion
	}
	if oc.Endpoint != "" {
		cfg.Endpoint = oc.Endpoint
	}
	if oc.Protocol != "" {
		cfg.Protocol = oc.Protocol
	}
	cfg.Insecure = oc.Insecure
	return cfg
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}
	switch c.Protocol {
	case "", "grpc", "http/protobuf":
	default:
		return fmt.Errorf("protocol must be grpc or http/protobuf, got %q", c.Protocol)
	}
	if c.Insecure && !isLocalEndpoint(c.Endpoint) {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed; use TLS or a localhost endpoint")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %f", c.SampleRate)
	}
	if c.MetricInterval <= 0 {
		return fmt.Errorf("metric interval must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// isLocalEndpoint reports whether the endpoint points at this host.
func isLocalEndpoint(endpoint string) bool {
	host := endpoint
	if strings.HasPrefix(host, "[") {
		// Bracketed IPv6 such as [::1]:4317.
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
	}

	return host == "localhost" ||
		host == "::1" ||
		host == "127.0.0.1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(endpoint, "::1")
}
