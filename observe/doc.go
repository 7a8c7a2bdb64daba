// Package observe provides observability primitives for tool dispatch.
//
// It carries the structured logger used across the service, OpenTelemetry
// tracing and metrics setup, and a Middleware that wraps each dispatched tool
// with a span, counters and a log line. It never sees credentials: fields
// whose keys appear in RedactedFields are masked before encoding.
package observe
