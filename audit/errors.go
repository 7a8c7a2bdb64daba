package audit

import "errors"

// Sentinel errors for audit recording.
var (
	// ErrInvalidAction indicates an action outside the fixed vocabulary.
	ErrInvalidAction = errors.New("audit: invalid action")

	// ErrChainBroken indicates a persisted audit chain failed verification.
	ErrChainBroken = errors.New("audit: chain verification failed")
)
