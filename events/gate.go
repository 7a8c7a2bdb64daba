package events

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/PeterSurowski/ai-event-search/audit"
	"github.com/PeterSurowski/ai-event-search/auth"
	"github.com/PeterSurowski/ai-event-search/observe"
)

const (
	resourceEvent   = "event"
	resourceService = "service"
)

// GateConfig configures a Gate.
type GateConfig struct {
	// DefaultLimit applies when a request has no positive limit.
	// Default: 10
	DefaultLimit int

	// MaxLimit caps every requested limit.
	// Default: 100
	MaxLimit int

	// SummaryLimit is the number of events fed to the summarizer.
	// Default: 50
	SummaryLimit int

	// MaxQueryLength bounds search text in characters.
	// Default: 1000
	MaxQueryLength int

	// Logger receives enforcement anomalies. Default: no-op.
	Logger observe.Logger
}

// Gate enforces caller entitlements on every event read and audits each
// outcome.
//
// Contract:
//   - Every operation takes the caller as an explicit final argument.
//   - Every operation emits exactly one audit entry.
//   - A caller without entitlements gets zero records and no collaborator
//     is called.
//   - Collaborator and audit failures are returned as errors, never retried.
type Gate struct {
	store      Store
	embedder   Embedder
	summarizer Summarizer
	recorder   audit.Recorder
	config     GateConfig
}

// NewGate creates a Gate. embedder and summarizer may be nil, in which case
// the operations needing them fail with ErrEmbedding or ErrSummarize.
func NewGate(store Store, embedder Embedder, summarizer Summarizer, recorder audit.Recorder, config GateConfig) *Gate {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 10
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	if config.DefaultLimit > config.MaxLimit {
		config.DefaultLimit = config.MaxLimit
	}
	if config.SummaryLimit <= 0 {
		config.SummaryLimit = 50
	}
	if config.MaxQueryLength <= 0 {
		config.MaxQueryLength = 1000
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Gate{
		store:      store,
		embedder:   embedder,
		summarizer: summarizer,
		recorder:   recorder,
		config:     config,
	}
}

// Search dispatches to KeywordSearch or SimilaritySearch by req.Mode. An
// empty mode is keyword.
func (g *Gate) Search(ctx context.Context, req SearchRequest, caller auth.CallerContext) ([]Event, error) {
	switch req.Mode {
	case ModeKeyword, "":
		return g.KeywordSearch(ctx, req, caller)
	case ModeSemantic:
		return g.SimilaritySearch(ctx, req, caller)
	default:
		err := fmt.Errorf("%w: unknown search mode %q", ErrInvalidRequest, req.Mode)
		return nil, g.fail(ctx, g.searchFailure(req, caller, err), err)
	}
}

// KeywordSearch returns events whose title or description contains
// req.Query as a literal, case-insensitive substring.
func (g *Gate) KeywordSearch(ctx context.Context, req SearchRequest, caller auth.CallerContext) ([]Event, error) {
	req.Mode = ModeKeyword
	if err := g.validateSearch(req); err != nil {
		return nil, g.fail(ctx, g.searchFailure(req, caller, err), err)
	}

	scope, ok := g.searchScope(req, caller)
	if !ok {
		return g.finishSearch(ctx, req, caller, []Event{})
	}

	results, err := g.store.KeywordSearch(ctx, KeywordQuery{
		Text:    req.Query,
		Filters: req.Filters,
		Scope:   scope,
		Limit:   g.limit(req.Limit),
	})
	if err != nil {
		err = fmt.Errorf("%w: keyword search: %w", ErrStorage, err)
		return nil, g.fail(ctx, g.searchFailure(req, caller, err), err)
	}
	return g.finishSearch(ctx, req, caller, g.postCheck(ctx, caller, results))
}

// SimilaritySearch embeds req.Query and returns the most similar embedded
// events under the same scope as KeywordSearch.
func (g *Gate) SimilaritySearch(ctx context.Context, req SearchRequest, caller auth.CallerContext) ([]Event, error) {
	req.Mode = ModeSemantic
	if err := g.validateSearch(req); err != nil {
		return nil, g.fail(ctx, g.searchFailure(req, caller, err), err)
	}
	if req.Query == "" {
		err := fmt.Errorf("%w: semantic search requires query text", ErrInvalidRequest)
		return nil, g.fail(ctx, g.searchFailure(req, caller, err), err)
	}

	scope, ok := g.searchScope(req, caller)
	if !ok {
		return g.finishSearch(ctx, req, caller, []Event{})
	}

	if g.embedder == nil {
		err := fmt.Errorf("%w: no embedder configured", ErrEmbedding)
		return nil, g.fail(ctx, g.searchFailure(req, caller, err), err)
	}
	vector, err := g.embedder.Embed(ctx, req.Query)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEmbedding, err)
		return nil, g.fail(ctx, g.searchFailure(req, caller, err), err)
	}

	results, err := g.store.SimilaritySearch(ctx, VectorQuery{
		Vector:  vector,
		Filters: req.Filters,
		Scope:   scope,
		Limit:   g.limit(req.Limit),
	})
	if err != nil {
		err = fmt.Errorf("%w: similarity search: %w", ErrStorage, err)
		return nil, g.fail(ctx, g.searchFailure(req, caller, err), err)
	}
	return g.finishSearch(ctx, req, caller, g.postCheck(ctx, caller, results))
}

// GetByID returns the event with id if the caller may see it. Absent and
// unauthorized events both yield NotFound.
func (g *Gate) GetByID(ctx context.Context, id string, caller auth.CallerContext) (Lookup, error) {
	if !caller.HasEntitlements() {
		entry := audit.AuthorizationDenied(caller.CallerID, caller.CallerName,
			resourceEvent, id, "", "caller has no entitlements")
		return NotFound(), g.emit(ctx, entry)
	}

	ev, err := g.store.GetByID(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		entry := audit.Access(audit.ActionGetDetails, caller.CallerID, caller.CallerName, 0)
		entry.ResourceType = resourceEvent
		entry.ResourceID = id
		entry.Message = "event not found"
		return NotFound(), g.emit(ctx, entry)
	case err != nil:
		err = fmt.Errorf("%w: get event: %w", ErrStorage, err)
		entry := audit.Failure(audit.ActionGetDetails, caller.CallerID, caller.CallerName, err)
		entry.ResourceType = resourceEvent
		entry.ResourceID = id
		return NotFound(), g.fail(ctx, entry, err)
	}

	if !auth.IsAuthorizedFor(caller, ev.ServiceID) {
		entry := audit.AuthorizationDenied(caller.CallerID, caller.CallerName,
			resourceEvent, id, ev.ServiceID, "event outside caller entitlements")
		return NotFound(), g.emit(ctx, entry)
	}

	entry := audit.Access(audit.ActionGetDetails, caller.CallerID, caller.CallerName, 1)
	entry.ResourceType = resourceEvent
	entry.ResourceID = id
	entry.ServiceID = ev.ServiceID
	if err := g.emit(ctx, entry); err != nil {
		return NotFound(), err
	}
	return found(*ev), nil
}

// GetServiceTimeline returns serviceID's events within r, newest first.
// Storage is not touched unless the caller is authorized for serviceID.
func (g *Gate) GetServiceTimeline(ctx context.Context, serviceID string, r DateRange, limit int, caller auth.CallerContext) ([]Event, error) {
	if !auth.IsAuthorizedFor(caller, serviceID) {
		return []Event{}, g.emit(ctx, g.serviceDenied(serviceID, caller))
	}
	if err := r.Validate(); err != nil {
		return nil, g.fail(ctx, g.serviceFailure(audit.ActionGetTimeline, serviceID, caller, err), err)
	}

	results, err := g.store.Timeline(ctx, TimelineQuery{ServiceID: serviceID, Range: r, Limit: g.limit(limit)})
	if err != nil {
		err = fmt.Errorf("%w: timeline: %w", ErrStorage, err)
		return nil, g.fail(ctx, g.serviceFailure(audit.ActionGetTimeline, serviceID, caller, err), err)
	}
	results = g.postCheck(ctx, caller, results)

	entry := audit.Access(audit.ActionGetTimeline, caller.CallerID, caller.CallerName, len(results))
	entry.ResourceType = resourceService
	entry.ResourceID = serviceID
	entry.ServiceID = serviceID
	if err := g.emit(ctx, entry); err != nil {
		return nil, err
	}
	return results, nil
}

// GetImpactSummary summarizes serviceID's most recent events within r.
// Authorization is checked before storage, as for GetServiceTimeline.
func (g *Gate) GetImpactSummary(ctx context.Context, serviceID string, r DateRange, caller auth.CallerContext) (ImpactSummary, error) {
	summary := ImpactSummary{ServiceID: serviceID, Range: r}
	if !auth.IsAuthorizedFor(caller, serviceID) {
		return summary, g.emit(ctx, g.serviceDenied(serviceID, caller))
	}
	if err := r.Validate(); err != nil {
		return summary, g.fail(ctx, g.serviceFailure(audit.ActionGetImpactSummary, serviceID, caller, err), err)
	}

	results, err := g.store.Timeline(ctx, TimelineQuery{ServiceID: serviceID, Range: r, Limit: g.config.SummaryLimit})
	if err != nil {
		err = fmt.Errorf("%w: timeline: %w", ErrStorage, err)
		return summary, g.fail(ctx, g.serviceFailure(audit.ActionGetImpactSummary, serviceID, caller, err), err)
	}
	results = g.postCheck(ctx, caller, results)

	summary.EventCount = len(results)
	if len(results) > 0 {
		summary.BySeverity = make(map[string]int)
		for _, ev := range results {
			summary.BySeverity[ev.Severity]++
		}
		if g.summarizer == nil {
			err := fmt.Errorf("%w: no summarizer configured", ErrSummarize)
			return ImpactSummary{ServiceID: serviceID, Range: r},
				g.fail(ctx, g.serviceFailure(audit.ActionGetImpactSummary, serviceID, caller, err), err)
		}
		text, err := g.summarizer.Summarize(ctx, serviceID, results)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSummarize, err)
			return ImpactSummary{ServiceID: serviceID, Range: r},
				g.fail(ctx, g.serviceFailure(audit.ActionGetImpactSummary, serviceID, caller, err), err)
		}
		summary.Summary = text
	} else {
		summary.Summary = "No events recorded for " + serviceID + " in the requested period."
	}

	entry := audit.Access(audit.ActionGetImpactSummary, caller.CallerID, caller.CallerName, len(results))
	entry.ResourceType = resourceService
	entry.ResourceID = serviceID
	entry.ServiceID = serviceID
	if err := g.emit(ctx, entry); err != nil {
		return ImpactSummary{ServiceID: serviceID, Range: r}, err
	}
	return summary, nil
}

// searchScope derives the tenant filter for a search. ok is false when the
// scope admits nothing, including a service filter outside the scope.
func (g *Gate) searchScope(req SearchRequest, caller auth.CallerContext) (auth.Scope, bool) {
	scope := auth.FilterClause(caller)
	if scope.Empty() {
		return scope, false
	}
	if req.Filters.ServiceID != "" && !scope.Allows(req.Filters.ServiceID) {
		return scope, false
	}
	return scope, true
}

// postCheck drops any record the caller may not see. A drop means a Store
// ignored its scope, so it is logged as an error.
func (g *Gate) postCheck(ctx context.Context, caller auth.CallerContext, in []Event) []Event {
	out := make([]Event, 0, len(in))
	for _, ev := range in {
		if !auth.IsAuthorizedFor(caller, ev.ServiceID) {
			g.config.Logger.Error(ctx, "store returned event outside caller scope",
				observe.F("caller_id", caller.CallerID),
				observe.F("event_id", ev.ID),
				observe.F("service_id", ev.ServiceID),
			)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (g *Gate) validateSearch(req SearchRequest) error {
	if utf8.RuneCountInString(req.Query) > g.config.MaxQueryLength {
		return fmt.Errorf("%w: query exceeds %d characters", ErrInvalidRequest, g.config.MaxQueryLength)
	}
	return req.Filters.Range.Validate()
}

func (g *Gate) limit(n int) int {
	switch {
	case n <= 0:
		return g.config.DefaultLimit
	case n > g.config.MaxLimit:
		return g.config.MaxLimit
	default:
		return n
	}
}

func (g *Gate) finishSearch(ctx context.Context, req SearchRequest, caller auth.CallerContext, results []Event) ([]Event, error) {
	entry := audit.Access(audit.ActionSearch, caller.CallerID, caller.CallerName, len(results))
	entry.ResourceType = resourceEvent
	entry.ServiceID = req.Filters.ServiceID
	entry.Metadata["mode"] = string(req.Mode)
	entry.Metadata["query"] = req.Query
	if !caller.HasEntitlements() {
		entry.Message = "caller has no entitlements"
	}
	if err := g.emit(ctx, entry); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Gate) searchFailure(req SearchRequest, caller auth.CallerContext, err error) audit.Entry {
	entry := audit.Failure(audit.ActionSearch, caller.CallerID, caller.CallerName, err)
	entry.ResourceType = resourceEvent
	entry.ServiceID = req.Filters.ServiceID
	entry.Metadata["mode"] = string(req.Mode)
	entry.Metadata["query"] = req.Query
	if errors.Is(err, ErrInvalidRequest) {
		entry.Level = audit.LevelWarning
	}
	return entry
}

func (g *Gate) serviceDenied(serviceID string, caller auth.CallerContext) audit.Entry {
	msg := "service outside caller entitlements"
	if !caller.HasEntitlements() {
		msg = "caller has no entitlements"
	}
	return audit.AuthorizationDenied(caller.CallerID, caller.CallerName,
		resourceService, serviceID, serviceID, msg)
}

func (g *Gate) serviceFailure(action audit.Action, serviceID string, caller auth.CallerContext, err error) audit.Entry {
	entry := audit.Failure(action, caller.CallerID, caller.CallerName, err)
	entry.ResourceType = resourceService
	entry.ResourceID = serviceID
	entry.ServiceID = serviceID
	if errors.Is(err, ErrInvalidRequest) {
		entry.Level = audit.LevelWarning
	}
	return entry
}

// emit records entry. An unrecorded outcome is an error.
func (g *Gate) emit(ctx context.Context, entry audit.Entry) error {
	if err := g.recorder.Record(ctx, entry); err != nil {
		g.config.Logger.Error(ctx, "audit record failed",
			observe.F("action", string(entry.Action)),
			observe.F("caller_id", entry.CallerID),
			observe.F("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", ErrAudit, err)
	}
	return nil
}

// fail records entry and returns cause, joined with any audit error.
func (g *Gate) fail(ctx context.Context, entry audit.Entry, cause error) error {
	if err := g.emit(ctx, entry); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
