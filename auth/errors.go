package auth

import "errors"

// Sentinel errors for credential storage.
var (
	// ErrCredentialNotFound is returned by a CredentialStore when no record
	// matches the digest or id.
	ErrCredentialNotFound = errors.New("auth: credential not found")

	// ErrDuplicateCredential is returned when a record with the same digest
	// already exists.
	ErrDuplicateCredential = errors.New("auth: duplicate credential")

	// ErrInvalidRecord is returned when a record is missing required fields.
	ErrInvalidRecord = errors.New("auth: invalid credential record")
)
