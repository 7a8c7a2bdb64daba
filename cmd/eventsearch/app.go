package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/PeterSurowski/ai-event-search/audit"
	"github.com/PeterSurowski/ai-event-search/auth"
	"github.com/PeterSurowski/ai-event-search/cache"
	"github.com/PeterSurowski/ai-event-search/config"
	"github.com/PeterSurowski/ai-event-search/events"
	"github.com/PeterSurowski/ai-event-search/health"
	"github.com/PeterSurowski/ai-event-search/llm"
	"github.com/PeterSurowski/ai-event-search/observe"
	"github.com/PeterSurowski/ai-event-search/resilience"
	"github.com/PeterSurowski/ai-event-search/server"
	"github.com/PeterSurowski/ai-event-search/store"
)

// app owns every long-lived client of a serving process.
type app struct {
	observer observe.Observer
	logger   observe.Logger
	db       *store.DB
	redis    *cache.RedisCache
	resolver *auth.Resolver
	health   *health.Aggregator
	server   *server.Server
}

// newApp constructs the clients once and wires them together. auditOut
// receives the audit stream when audit.stdout is set.
func newApp(ctx context.Context, cfg *config.Config, auditOut io.Writer) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close(context.WithoutCancel(ctx))
		}
	}()

	a.observer, err = observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	a.logger = a.observer.Logger()

	a.db, err = store.Open(ctx, cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	if err := a.db.Migrate(ctx); err != nil {
		return nil, err
	}

	recorder := newAuditRecorder(cfg.Audit, a.db, auditOut)
	a.resolver = auth.NewResolver(store.NewCredentialStore(a.db), recorder, a.logger, auth.ResolverConfig{
		FallbackCredential: cfg.FallbackCredential(),
		TouchTimeout:       cfg.Auth.TouchTimeout,
	})
	if cfg.FallbackCredential() != "" {
		a.logger.Warn(ctx, "fallback credential enabled for calls without authToken")
	}

	a.health = health.NewAggregator()
	a.health.Register("database", health.NewPingChecker("database", a.db))

	var (
		embedder   events.Embedder
		summarizer events.Summarizer
	)
	if cfg.LLM.Enabled {
		embedder, summarizer, err = a.newCollaborators(ctx, cfg)
		if err != nil {
			return nil, err
		}
	} else {
		a.logger.Info(ctx, "llm disabled; semantic search and impact summaries will fail")
	}

	gate := events.NewGate(store.NewEventStore(a.db), embedder, summarizer, recorder, events.GateConfig{
		DefaultLimit:   cfg.Query.DefaultLimit,
		MaxLimit:       cfg.Query.MaxLimit,
		SummaryLimit:   cfg.Query.SummaryLimit,
		MaxQueryLength: cfg.Query.MaxQueryLength,
		Logger:         a.logger,
	})

	mw, err := observe.MiddlewareFromObserver(a.observer)
	if err != nil {
		return nil, fmt.Errorf("observe middleware: %w", err)
	}
	a.server = server.New(cfg.Server, server.Options{
		Dispatcher: server.NewDispatcher(gate, a.resolver, mw),
		Health:     a.health,
		Logger:     a.logger,
	})
	return a, nil
}

func newAuditRecorder(cfg config.AuditConfig, db *store.DB, out io.Writer) audit.Recorder {
	var sinks []audit.Recorder
	if cfg.Stdout {
		sinks = append(sinks, audit.NewStreamRecorder(out))
	}
	if cfg.Database {
		sinks = append(sinks, store.NewChainRecorder(db))
	}
	return audit.NewFanout(sinks...)
}

// newCollaborators builds the embedding and summarization clients, each
// behind its own executor, with the embedder optionally cached.
func (a *app) newCollaborators(ctx context.Context, cfg *config.Config) (events.Embedder, events.Summarizer, error) {
	client, err := llm.NewClient(cfg.LLM.Config)
	if err != nil {
		return nil, nil, err
	}

	onStateChange := func(name string, from, to resilience.State) {
		a.logger.Warn(context.Background(), "circuit state changed",
			observe.F("circuit", name), observe.F("from", from.String()), observe.F("to", to.String()))
	}
	embedExec := llm.NewExecutor("embedding", cfg.LLM.Config, onStateChange)
	chatExec := llm.NewExecutor("summarizer", cfg.LLM.Config, onStateChange)
	a.health.RegisterOptional("embedding", health.NewCircuitChecker(embedExec.CircuitBreaker()))
	a.health.RegisterOptional("summarizer", health.NewCircuitChecker(chatExec.CircuitBreaker()))

	base := llm.NewEmbedder(client, embedExec, cfg.LLM.Config)
	summarizer := llm.NewSummarizer(client, chatExec, cfg.LLM.Config)

	var c cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheMemory:
		c = cache.NewMemoryCache(cache.WithMaxEntries(cfg.Cache.MaxEntries))
	case config.CacheRedis:
		a.redis, err = cache.DialRedis(ctx, cfg.Cache.Redis)
		if err != nil {
			return nil, nil, err
		}
		c = a.redis
	default:
		return base, summarizer, nil
	}
	a.health.RegisterOptional("cache", health.NewPingChecker("cache", c))
	return llm.NewCachedEmbedder(base, base.Model(), c, cfg.Cache.Policy(), a.logger), summarizer, nil
}

// close releases everything newApp acquired, in reverse order. Pending
// lastUsedAt updates finish before the database closes.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.resolver != nil {
		errs = append(errs, a.resolver.Close(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.observer != nil {
		errs = append(errs, a.observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
