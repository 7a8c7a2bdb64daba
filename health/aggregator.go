package health

import (
	"context"
	"sync"
	"time"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds one CheckAll run.
	// Default: 5 seconds
	Timeout time.Duration
}

type registration struct {
	checker  Checker
	optional bool
}

// Aggregator combines named checkers into one status.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]registration
	order    []string
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]registration),
	}
}

// Register adds a required checker. Its failure makes the service unhealthy.
func (a *Aggregator) Register(name string, checker Checker) {
	a.register(name, checker, false)
}

// RegisterOptional adds a checker whose failure only degrades the service.
func (a *Aggregator) RegisterOptional(name string, checker Checker) {
	a.register(name, checker, true)
}

func (a *Aggregator) register(name string, checker Checker, optional bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = registration{checker: checker, optional: optional}
}

// CheckerNames returns registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs a single named check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	reg, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, reg.checker), nil
}

// Report is the outcome of CheckAll.
type Report struct {
	Status  Status
	Results map[string]Result
}

// CheckAll runs every checker in parallel and folds the results.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	a.mu.RLock()
	regs := make(map[string]registration, len(a.checkers))
	for name, reg := range a.checkers {
		regs[name] = reg
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make(map[string]Result, len(regs))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, reg := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := runCheck(ctx, reg.checker)
			mu.Lock()
			results[name] = r
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusHealthy
	for name, r := range results {
		s := r.Status
		if regs[name].optional && s == StatusUnhealthy {
			s = StatusDegraded
		}
		if s > status {
			status = s
		}
	}
	return Report{Status: status, Results: results}
}

// runCheck runs checker, giving up when ctx ends even if the checker does
// not return.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	ch := make(chan Result, 1)
	go func() {
		ch <- checker.Check(ctx)
	}()

	select {
	case r := <-ch:
		r.Duration = time.Since(start)
		r.CheckedAt = start
		return r
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			CheckedAt: start,
		}
	}
}
