package events

import (
	"context"

	"github.com/PeterSurowski/ai-event-search/auth"
)

// KeywordQuery is a literal substring search. Text is raw user input; the
// Store must match it as literal characters only.
type KeywordQuery struct {
	Text    string
	Filters Filters
	Scope   auth.Scope
	Limit   int
}

// VectorQuery ranks embedded events by cosine similarity to Vector.
type VectorQuery struct {
	Vector  []float32
	Filters Filters
	Scope   auth.Scope
	Limit   int
}

// TimelineQuery lists one tenant's events.
type TimelineQuery struct {
	ServiceID string
	Range     DateRange
	Limit     int
}

// Store is the storage collaborator.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Scope: KeywordSearch and SimilaritySearch must AND the Scope with every
//     other condition; an empty non-All scope matches nothing.
//   - Ordering: keyword and timeline results are newest first; similarity
//     results are most similar first, with Similarity set.
//   - Errors: GetByID returns ErrNotFound for unknown ids.
type Store interface {
	KeywordSearch(ctx context.Context, q KeywordQuery) ([]Event, error)
	SimilaritySearch(ctx context.Context, q VectorQuery) ([]Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	Timeline(ctx context.Context, q TimelineQuery) ([]Event, error)
}

// Embedder converts text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer converts a tenant's events into prose.
type Summarizer interface {
	Summarize(ctx context.Context, serviceID string, events []Event) (string, error)
}
