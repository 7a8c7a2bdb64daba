// Package resilience protects calls to remote collaborators such as the
// embedding and summarization APIs.
//
// An Executor composes a rate limiter, a bulkhead, a circuit breaker and a
// per-call timeout. Calls are never retried: a failed collaborator call
// surfaces to the gate, which fails the whole operation and audits it.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 20, Burst: 5})),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "embedding"})),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	vec, err := resilience.Do(ctx, exec, func(ctx context.Context) ([]float32, error) {
//	    return client.Embed(ctx, text)
//	})
package resilience
