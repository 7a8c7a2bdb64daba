package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/PeterSurowski/ai-event-search/auth"
)

// CredentialStore is the gorm-backed auth.CredentialStore.
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a CredentialStore on db.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Create stores a new record. A digest already on file is rejected.
func (s *CredentialStore) Create(ctx context.Context, rec auth.CredentialRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	row := newCredentialRow(rec)
	return s.db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&credentialRow{}).
			Where("credential_hash = ? OR id = ?", row.CredentialHash, row.ID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("store: check credential: %w", err)
		}
		if n > 0 {
			return auth.ErrDuplicateCredential
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("store: create credential: %w", err)
		}
		return nil
	})
}

// FindByHash returns the record with credentialHash or
// auth.ErrCredentialNotFound.
func (s *CredentialStore) FindByHash(ctx context.Context, credentialHash string) (*auth.CredentialRecord, error) {
	var row credentialRow
	err := s.db.gorm.WithContext(ctx).Where("credential_hash = ?", credentialHash).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find credential: %w", err)
	}
	return row.record(), nil
}

// TouchLastUsed sets last_used_at. Only that column is written.
func (s *CredentialStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	res := s.db.gorm.WithContext(ctx).
		Model(&credentialRow{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at.UTC())
	if res.Error != nil {
		return fmt.Errorf("store: touch credential: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return auth.ErrCredentialNotFound
	}
	return nil
}

var _ auth.CredentialStore = (*CredentialStore)(nil)
