package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature of a dispatched tool.
type ExecuteFunc func(ctx context.Context, tool ToolMeta, input any) (any, error)

// Middleware wraps tool execution with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
//     A ToolMeta without a Name fails with ErrMissingToolName and fn is not called.
//   - Ownership: input and output values pass through without modification;
//     input is never logged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components fall back to no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Wrap wraps fn with observability.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, tool ToolMeta, input any) (any, error) {
		if tool.Name == "" {
			return nil, ErrMissingToolName
		}
		ctx, span := m.tracer.StartSpan(ctx, tool)
		start := time.Now()

		result, err := fn(ctx, tool, input)

		duration := time.Since(start)
		m.tracer.EndSpan(span, result, err)
		m.metrics.RecordExecution(ctx, tool, duration, result, err)

		fields := []Field{
			F("duration_ms", float64(duration.Milliseconds())),
		}
		if caller := CallerIDFromContext(ctx); caller != "" {
			fields = append(fields, F("caller_id", caller))
		}
		if rc, ok := result.(ResultCounter); ok {
			fields = append(fields, F("result_count", rc.ResultCount()))
		}

		toolLogger := m.logger.WithTool(tool)
		if err != nil {
			fields = append(fields, F("error", err.Error()))
			toolLogger.Error(ctx, "tool execution failed", fields...)
		} else {
			toolLogger.Info(ctx, "tool execution completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
