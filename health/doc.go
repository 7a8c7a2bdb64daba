// Package health reports whether the service's dependencies are usable.
//
// An Aggregator runs named Checkers in parallel under a deadline. Required
// checkers (the database) make the service unhealthy when they fail;
// optional ones (the embedding cache, the embedding API circuit) only
// degrade it, because keyword search keeps working without them.
//
//	agg := health.NewAggregator()
//	agg.Register("database", health.NewPingChecker("database", db))
//	agg.RegisterOptional("cache", health.NewPingChecker("cache", redisCache))
//	agg.RegisterOptional("embedding", health.NewCircuitChecker(breaker))
//	health.RegisterRoutes(router, agg)
package health
