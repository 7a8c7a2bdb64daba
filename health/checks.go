package health

import (
	"context"
	"fmt"

	"github.com/PeterSurowski/ai-event-search/resilience"
)

// Pinger is implemented by backends that can verify their connection, such
// as the database and the cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports a backend unhealthy when its Ping fails.
type PingChecker struct {
	name   string
	pinger Pinger
}

// NewPingChecker creates a checker named name over p.
func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, pinger: p}
}

// Name returns the name of this checker.
func (c *PingChecker) Name() string { return c.name }

// Check pings the backend.
func (c *PingChecker) Check(ctx context.Context) Result {
	if err := c.pinger.Ping(ctx); err != nil {
		return Unhealthy(c.name+" unreachable", fmt.Errorf("%w: %w", ErrCheckFailed, err))
	}
	return Healthy(c.name + " reachable")
}

// CircuitChecker reports the state of a collaborator's circuit breaker. An
// open circuit is unhealthy; a half-open one is degraded.
type CircuitChecker struct {
	cb *resilience.CircuitBreaker
}

// NewCircuitChecker creates a checker over cb.
func NewCircuitChecker(cb *resilience.CircuitBreaker) *CircuitChecker {
	return &CircuitChecker{cb: cb}
}

// Name returns the breaker's name.
func (c *CircuitChecker) Name() string { return c.cb.Name() }

// Check reads the breaker state without calling the collaborator.
func (c *CircuitChecker) Check(context.Context) Result {
	m := c.cb.Metrics()
	details := map[string]any{
		"state":    m.State.String(),
		"failures": m.Failures,
	}
	if !m.LastFailure.IsZero() {
		details["last_failure"] = m.LastFailure.UTC()
	}

	switch m.State {
	case resilience.StateOpen:
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit probing").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}
