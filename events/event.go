package events

import (
	"fmt"
	"time"
)

// Event is one operational event owned by a tenant (ServiceID).
type Event struct {
	ID            string    `json:"id"`
	ServiceID     string    `json:"serviceId"`
	EventType     string    `json:"eventType"`
	Severity      string    `json:"severity"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Source        string    `json:"source,omitempty"`

	// Embedding is the vector representation used by similarity search.
	Embedding []float32 `json:"-"`

	// Similarity is set on similarity search results only.
	Similarity float64 `json:"similarity,omitempty"`
}

// HasEmbedding reports whether the event can take part in similarity search.
func (e *Event) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// DateRange bounds OccurredAt. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

// Contains reports whether t lies within the range, bounds inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Validate rejects inverted ranges.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return fmt.Errorf("%w: date range starts after it ends", ErrInvalidRequest)
	}
	return nil
}

// Filters are the optional narrowing conditions shared by both search modes.
type Filters struct {
	ServiceID string    `json:"serviceId,omitempty"`
	EventType string    `json:"eventType,omitempty"`
	Severity  string    `json:"severity,omitempty"`
	Range     DateRange `json:"range,omitzero"`
}

// Match reports whether e satisfies every set filter.
func (f Filters) Match(e *Event) bool {
	if f.ServiceID != "" && e.ServiceID != f.ServiceID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	return f.Range.Contains(e.OccurredAt)
}

// SearchMode selects the matching technique.
type SearchMode string

const (
	ModeKeyword  SearchMode = "keyword"
	ModeSemantic SearchMode = "semantic"
)

// SearchRequest is the input to Gate.Search.
type SearchRequest struct {
	Query   string     `json:"query"`
	Mode    SearchMode `json:"mode,omitempty"`
	Filters Filters    `json:"filters,omitzero"`
	Limit   int        `json:"limit,omitempty"`
}

// ImpactSummary is the prose digest of a tenant's recent events.
type ImpactSummary struct {
	ServiceID  string         `json:"serviceId"`
	Range      DateRange      `json:"range,omitzero"`
	EventCount int            `json:"eventCount"`
	BySeverity map[string]int `json:"bySeverity,omitempty"`
	Summary    string         `json:"summary"`
}
