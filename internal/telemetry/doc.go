// Package telemetry wires OpenTelemetry tracing and metrics for reliefd.
//
// Providers are optional: when disabled, or when an exporter cannot be
// built, the rest of the daemon keeps running and instrumentation falls
// back to no-op implementations.
package telemetry
