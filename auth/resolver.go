package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/PeterSurowski/ai-event-search/audit"
	"github.com/PeterSurowski/ai-event-search/observe"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// FallbackCredential substitutes for a missing per-call credential.
	// Empty disables the fallback, which is the default.
	FallbackCredential string

	// TouchTimeout bounds the detached lastUsedAt update.
	// Default: 5s
	TouchTimeout time.Duration

	// Now overrides the clock. Default: time.Now
	Now func() time.Time
}

// Resolver turns raw credentials into caller contexts.
//
// Contract:
//   - Resolve never fails; every outcome is a CallerContext plus one audit entry.
//   - Concurrency: safe for concurrent use.
//   - Close waits for pending lastUsedAt updates.
type Resolver struct {
	store    CredentialStore
	recorder audit.Recorder
	logger   observe.Logger
	config   ResolverConfig

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewResolver creates a Resolver. Nil recorder and logger fall back to no-ops.
func NewResolver(store CredentialStore, recorder audit.Recorder, logger observe.Logger, config ResolverConfig) *Resolver {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	if config.TouchTimeout <= 0 {
		config.TouchTimeout = 5 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Resolver{
		store:    store,
		recorder: recorder,
		logger:   logger,
		config:   config,
	}
}

// Resolve derives the caller context for credential. An empty credential
// means none was presented.
func (r *Resolver) Resolve(ctx context.Context, credential string) CallerContext {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		credential = r.config.FallbackCredential
	}
	if credential == "" {
		caller := Anonymous()
		r.record(ctx, audit.AuthenticationFailure(caller.CallerID, audit.ReasonMissingToken, nil))
		return caller
	}

	digest := HashCredential(credential)
	rec, err := r.store.FindByHash(ctx, digest)
	if err != nil {
		caller := Invalid()
		entry := audit.AuthenticationFailure(caller.CallerID, audit.ReasonInvalidToken,
			map[string]any{"credentialHash": digest})
		if !errors.Is(err, ErrCredentialNotFound) {
			entry.Level = audit.LevelError
			entry.Metadata["error"] = err.Error()
			r.logger.Error(ctx, "credential lookup failed", observe.F("error", err.Error()))
		}
		r.record(ctx, entry)
		return caller
	}

	if rec.Expired(r.config.Now()) {
		caller := CallerContext{CallerID: rec.ID, CallerName: rec.Name, CallerType: CallerTypeToken}
		r.record(ctx, audit.AuthenticationFailure(caller.CallerID, audit.ReasonExpiredToken,
			map[string]any{"expiresAt": rec.ExpiresAt.UTC().Format(audit.TimestampFormat)}))
		return caller
	}

	caller := CallerContext{
		CallerID:           rec.ID,
		CallerName:         rec.Name,
		AuthorizedServices: slices.Clone(rec.AuthorizedServices),
		CallerType:         CallerTypeToken,
	}
	r.touch(ctx, rec.ID)

	entry := audit.AuthenticationSuccess(caller.CallerID, caller.CallerName, caller.AuthorizedServices)
	if !r.record(ctx, entry) {
		// No evidence of the grant exists, so the grant is withdrawn.
		caller.AuthorizedServices = nil
	}
	return caller
}

// record emits entry and reports whether it was persisted.
func (r *Resolver) record(ctx context.Context, entry audit.Entry) bool {
	if err := r.recorder.Record(ctx, entry); err != nil {
		r.logger.Error(ctx, "audit record failed",
			observe.F("action", string(entry.Action)),
			observe.F("caller_id", entry.CallerID),
			observe.F("error", err.Error()),
		)
		return false
	}
	return true
}

// touch updates lastUsedAt without blocking the caller.
func (r *Resolver) touch(ctx context.Context, id string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending.Add(1)
	r.mu.Unlock()

	at := r.config.Now().UTC()
	detached := context.WithoutCancel(ctx)
	go func() {
		defer r.pending.Done()
		tctx, cancel := context.WithTimeout(detached, r.config.TouchTimeout)
		defer cancel()
		if err := r.store.TouchLastUsed(tctx, id, at); err != nil {
			r.logger.Warn(tctx, "lastUsedAt update failed",
				observe.F("caller_id", id),
				observe.F("error", err.Error()),
			)
		}
	}()
}

// Close stops accepting lastUsedAt updates and waits for pending ones or
// until ctx is done.
func (r *Resolver) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
