package health

import "errors"

var (
	// ErrCheckFailed wraps the error of a dependency that did not answer.
	ErrCheckFailed = errors.New("health: dependency unreachable")

	// ErrCheckTimeout is the error of a check still running at the deadline.
	ErrCheckTimeout = errors.New("health: check deadline exceeded")

	// ErrCheckerNotFound is returned by Aggregator.Check for an unknown name.
	ErrCheckerNotFound = errors.New("health: no such checker")
)
