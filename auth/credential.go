package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync"
	"time"
)

// CredentialRecord maps a hashed secret to an entitlement set. The raw
// secret is never stored.
type CredentialRecord struct {
	ID                 string
	CredentialHash     string
	Name               string
	AuthorizedServices []string
	CreatedBy          string
	ExpiresAt          *time.Time
	LastUsedAt         *time.Time
	CreatedAt          time.Time
}

// Expired reports whether the record has an expiry at or before now.
func (r *CredentialRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Validate checks the fields every stored record must carry.
func (r *CredentialRecord) Validate() error {
	if r.ID == "" || r.CredentialHash == "" {
		return ErrInvalidRecord
	}
	return nil
}

// CredentialStore looks up and maintains credential records.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: FindByHash returns ErrCredentialNotFound when nothing matches;
//     any other error is a storage failure.
//   - TouchLastUsed is bookkeeping only and must not alter scope.
type CredentialStore interface {
	FindByHash(ctx context.Context, credentialHash string) (*CredentialRecord, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// HashCredential returns the SHA-256 hex digest of a raw credential.
func HashCredential(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// MemoryCredentialStore is an in-memory CredentialStore.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	records map[string]*CredentialRecord // keyed by hash
}

// NewMemoryCredentialStore creates an empty in-memory store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{records: make(map[string]*CredentialRecord)}
}

// Add stores a copy of rec.
func (s *MemoryCredentialStore) Add(rec CredentialRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.CredentialHash]; ok {
		return ErrDuplicateCredential
	}
	rec.AuthorizedServices = slices.Clone(rec.AuthorizedServices)
	s.records[rec.CredentialHash] = &rec
	return nil
}

// FindByHash returns a copy of the record stored under credentialHash.
func (s *MemoryCredentialStore) FindByHash(_ context.Context, credentialHash string) (*CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[credentialHash]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	out := *rec
	out.AuthorizedServices = slices.Clone(rec.AuthorizedServices)
	return &out, nil
}

// TouchLastUsed records the time the credential was last resolved.
func (s *MemoryCredentialStore) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			t := at
			rec.LastUsedAt = &t
			return nil
		}
	}
	return ErrCredentialNotFound
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)
