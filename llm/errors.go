package llm

import "errors"

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("llm: api key is required")

	// ErrEmptyResponse is returned when the API answers without content.
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrDimensionMismatch is returned when an embedding has an unexpected
	// length.
	ErrDimensionMismatch = errors.New("llm: embedding dimension mismatch")
)
