package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHashCredential(t *testing.T) {
	a := HashCredential("secret-one")
	if a != HashCredential("secret-one") {
		t.Fatal("digest must be deterministic")
	}
	if a == HashCredential("secret-two") {
		t.Fatal("distinct inputs must not collide")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(a))
	}
	// sha256("abc")
	if got := HashCredential("abc"); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("HashCredential(abc) = %s", got)
	}
}

func TestCredentialRecord_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "no expiry", expiresAt: nil, want: false},
		{name: "past", expiresAt: &past, want: true},
		{name: "exactly now", expiresAt: &now, want: true},
		{name: "future", expiresAt: &future, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := CredentialRecord{ExpiresAt: tt.expiresAt}
			if got := rec.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryCredentialStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	rec := CredentialRecord{
		ID:                 "tok_1",
		CredentialHash:     HashCredential("s3cret"),
		Name:               "ops agent",
		AuthorizedServices: []string{"svc-a"},
	}

	if err := store.Add(rec); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.Add(rec); !errors.Is(err, ErrDuplicateCredential) {
		t.Fatalf("second Add() error = %v, want ErrDuplicateCredential", err)
	}
	if err := store.Add(CredentialRecord{ID: "x"}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("Add(no hash) error = %v, want ErrInvalidRecord", err)
	}

	got, err := store.FindByHash(ctx, rec.CredentialHash)
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	got.AuthorizedServices[0] = "svc-z"
	again, _ := store.FindByHash(ctx, rec.CredentialHash)
	if again.AuthorizedServices[0] != "svc-a" {
		t.Fatal("FindByHash must return a copy")
	}

	if _, err := store.FindByHash(ctx, HashCredential("other")); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("FindByHash(unknown) error = %v, want ErrCredentialNotFound", err)
	}

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.TouchLastUsed(ctx, "tok_1", at); err != nil {
		t.Fatalf("TouchLastUsed() error = %v", err)
	}
	touched, _ := store.FindByHash(ctx, rec.CredentialHash)
	if touched.LastUsedAt == nil || !touched.LastUsedAt.Equal(at) {
		t.Errorf("LastUsedAt = %v, want %v", touched.LastUsedAt, at)
	}
	if err := store.TouchLastUsed(ctx, "missing", at); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("TouchLastUsed(missing) error = %v", err)
	}
}
