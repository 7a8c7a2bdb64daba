package health

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/PeterSurowski/ai-event-search/resilience"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	err := errors.New("boom")
	tests := []struct {
		name   string
		result Result
		want   Status
	}{
		{"healthy", Healthy("ok"), StatusHealthy},
		{"degraded", Degraded("slow"), StatusDegraded},
		{"unhealthy", Unhealthy("down", err), StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Status != tt.want {
				t.Errorf("Status = %v, want %v", tt.result.Status, tt.want)
			}
		})
	}
	if r := Unhealthy("down", err); !errors.Is(r.Error, err) {
		t.Errorf("Error = %v", r.Error)
	}
	if r := Healthy("ok").WithDetails(map[string]any{"k": 1}); r.Details["k"] != 1 {
		t.Errorf("Details = %v", r.Details)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPingChecker(t *testing.T) {
	down := errors.New("connection refused")
	tests := []struct {
		name   string
		pinger fakePinger
		want   Status
	}{
		{"reachable", fakePinger{}, StatusHealthy},
		{"unreachable", fakePinger{err: down}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewPingChecker("database", tt.pinger)
			if c.Name() != "database" {
				t.Errorf("Name() = %q", c.Name())
			}
			r := c.Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %v, want %v", r.Status, tt.want)
			}
			if tt.pinger.err != nil && (!errors.Is(r.Error, ErrCheckFailed) || !errors.Is(r.Error, down)) {
				t.Errorf("Error = %v", r.Error)
			}
		})
	}
}

func TestCircuitChecker(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "embedding",
		MaxFailures:  1,
		ResetTimeout: time.Minute,
		Now:          func() time.Time { return now },
	})
	c := NewCircuitChecker(cb)
	ctx := context.Background()

	if c.Name() != "embedding" {
		t.Errorf("Name() = %q", c.Name())
	}
	if r := c.Check(ctx); r.Status != StatusHealthy || r.Details["state"] != "closed" {
		t.Errorf("closed: %+v", r)
	}

	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("down") })
	r := c.Check(ctx)
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, resilience.ErrCircuitOpen) {
		t.Errorf("open: %+v", r)
	}
	if _, ok := r.Details["last_failure"]; !ok {
		t.Error("last_failure missing")
	}

	now = now.Add(time.Minute)
	if r := c.Check(ctx); r.Status != StatusDegraded || r.Details["state"] != "half-open" {
		t.Errorf("half-open: %+v", r)
	}
}

func TestStatus_MarshalText(t *testing.T) {
	b, err := json.Marshal(map[string]Status{"db": StatusDegraded})
	if err != nil || string(b) != `{"db":"degraded"}` {
		t.Errorf("Marshal = %s, %v", b, err)
	}
}
