package auth

import "context"

type contextKey int

const callerKey contextKey = iota

// WithCaller returns a context carrying the resolved caller. Transport layers
// use it to hand the caller between middleware and handlers; query
// operations still take the caller as an explicit argument.
func WithCaller(ctx context.Context, c CallerContext) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext returns the caller attached by WithCaller, or the
// anonymous context when none is present.
func CallerFromContext(ctx context.Context) CallerContext {
	if c, ok := ctx.Value(callerKey).(CallerContext); ok {
		return c
	}
	return Anonymous()
}
