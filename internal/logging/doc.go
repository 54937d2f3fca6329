// Package logging provides structured logging for reliefd.
//
// It wraps Zap with context-aware methods that attach correlation
// fields (OpenTelemetry trace/span IDs, request IDs) to every entry,
// supports a custom trace level below debug, and can tee output to an
// OpenTelemetry log bridge alongside stdout.
package logging
