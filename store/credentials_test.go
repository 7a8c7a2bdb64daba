package store

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/PeterSurowski/ai-event-search/auth"
)

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()
	s := NewCredentialStore(openTestDB(t))
	expires := base.Add(24 * time.Hour)
	rec := auth.CredentialRecord{
		ID:                 "01HZX0000000000000000000AA",
		CredentialHash:     auth.HashCredential("secret-a"),
		Name:               "svc-a agent",
		AuthorizedServices: []string{"svc-a", "svc-c"},
		CreatedBy:          "ops@example.com",
		ExpiresAt:          &expires,
		CreatedAt:          base,
	}

	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Create(ctx, rec); !errors.Is(err, auth.ErrDuplicateCredential) {
		t.Fatalf("Create(dup) error = %v, want ErrDuplicateCredential", err)
	}
	if err := s.Create(ctx, auth.CredentialRecord{ID: "x"}); !errors.Is(err, auth.ErrInvalidRecord) {
		t.Fatalf("Create(invalid) error = %v", err)
	}

	got, err := s.FindByHash(ctx, rec.CredentialHash)
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if got.ID != rec.ID || got.Name != rec.Name || got.CreatedBy != rec.CreatedBy {
		t.Errorf("record = %+v", got)
	}
	if !slices.Equal(got.AuthorizedServices, rec.AuthorizedServices) {
		t.Errorf("AuthorizedServices = %v", got.AuthorizedServices)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) || got.LastUsedAt != nil {
		t.Errorf("ExpiresAt/LastUsedAt = %v/%v", got.ExpiresAt, got.LastUsedAt)
	}

	if _, err := s.FindByHash(ctx, auth.HashCredential("nope")); !errors.Is(err, auth.ErrCredentialNotFound) {
		t.Errorf("FindByHash(unknown) error = %v", err)
	}

	touched := base.Add(time.Minute)
	if err := s.TouchLastUsed(ctx, rec.ID, touched); err != nil {
		t.Fatalf("TouchLastUsed() error = %v", err)
	}
	got, _ = s.FindByHash(ctx, rec.CredentialHash)
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(touched) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, touched)
	}
	if !slices.Equal(got.AuthorizedServices, rec.AuthorizedServices) {
		t.Error("touch must not alter scope")
	}
	if err := s.TouchLastUsed(ctx, "missing", touched); !errors.Is(err, auth.ErrCredentialNotFound) {
		t.Errorf("TouchLastUsed(missing) error = %v", err)
	}
}

func TestCredentialStore_WildcardRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewCredentialStore(openTestDB(t))
	rec := auth.CredentialRecord{ID: "admin", CredentialHash: auth.HashCredential("root"), AuthorizedServices: []string{auth.AllServices}}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := s.FindByHash(ctx, rec.CredentialHash)
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if !auth.IsAuthorizedFor(auth.CallerContext{AuthorizedServices: got.AuthorizedServices}, "anything") {
		t.Errorf("wildcard lost: %v", got.AuthorizedServices)
	}
}
