package events

import "errors"

// Sentinel errors returned by the gate and stores.
var (
	// ErrNotFound is returned by a Store when no event has the requested id.
	// The gate never surfaces it; callers receive a not-found Lookup.
	ErrNotFound = errors.New("events: not found")

	// ErrInvalidRequest indicates malformed input such as an unknown search
	// mode or an inverted date range.
	ErrInvalidRequest = errors.New("events: invalid request")

	// ErrStorage wraps failures of the storage collaborator.
	ErrStorage = errors.New("events: storage failure")

	// ErrEmbedding wraps failures of the embedding collaborator.
	ErrEmbedding = errors.New("events: embedding failure")

	// ErrSummarize wraps failures of the summarization collaborator.
	ErrSummarize = errors.New("events: summarization failure")

	// ErrAudit is returned when the outcome of an operation could not be
	// recorded. No data is returned with it.
	ErrAudit = errors.New("events: audit failure")
)
