package health

import (
	"context"
	"time"
)

// Status orders component health from best to worst.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded means the service answers, with some tools failing.
	StatusDegraded
	// StatusUnhealthy means the service cannot answer queries.
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of one check. Duration and CheckedAt are filled in
// by the Aggregator.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Error     error
	Duration  time.Duration
	CheckedAt time.Time
}

func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

// Unhealthy carries the error that made the dependency unusable.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes one dependency.
//
// Contract:
//   - Concurrency: Check may be called concurrently.
//   - Context: Check must return once ctx is done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type funcChecker struct {
	name string
	fn   func(context.Context) Result
}

// Func turns fn into a Checker called name.
func Func(name string, fn func(context.Context) Result) Checker {
	return funcChecker{name: name, fn: fn}
}

func (f funcChecker) Name() string                     { return f.name }
func (f funcChecker) Check(ctx context.Context) Result { return f.fn(ctx) }
