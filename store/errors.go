package store

import "errors"

var (
	// ErrUnsupportedDriver is returned by Open for unknown driver names.
	ErrUnsupportedDriver = errors.New("store: unsupported driver")

	// ErrMissingDSN is returned by Open when no DSN is configured.
	ErrMissingDSN = errors.New("store: missing dsn")
)
