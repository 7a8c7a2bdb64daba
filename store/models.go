package store

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/PeterSurowski/ai-event-search/auth"
	"github.com/PeterSurowski/ai-event-search/events"
)

type eventRow struct {
	ID            string           `gorm:"primaryKey;size:64"`
	ServiceID     string           `gorm:"size:128;not null;index:idx_events_service_time,priority:1"`
	EventType     string           `gorm:"size:64;index"`
	Severity      string           `gorm:"size:32;index"`
	Title         string           `gorm:"type:text;not null"`
	Description   string           `gorm:"type:text"`
	OccurredAt    time.Time        `gorm:"not null;index:idx_events_service_time,priority:2"`
	CorrelationID string           `gorm:"size:128;index"`
	Source        string           `gorm:"size:128"`
	Embedding     *pgvector.Vector `gorm:"type:vector"`
	Similarity    float64          `gorm:"->;-:migration"`
	CreatedAt     time.Time
}

func (eventRow) TableName() string { return "events" }

func newEventRow(ev events.Event) eventRow {
	row := eventRow{
		ID:            ev.ID,
		ServiceID:     ev.ServiceID,
		EventType:     ev.EventType,
		Severity:      ev.Severity,
		Title:         ev.Title,
		Description:   ev.Description,
		OccurredAt:    ev.OccurredAt.UTC(),
		CorrelationID: ev.CorrelationID,
		Source:        ev.Source,
	}
	if len(ev.Embedding) > 0 {
		v := pgvector.NewVector(ev.Embedding)
		row.Embedding = &v
	}
	return row
}

func (r eventRow) event() events.Event {
	ev := events.Event{
		ID:            r.ID,
		ServiceID:     r.ServiceID,
		EventType:     r.EventType,
		Severity:      r.Severity,
		Title:         r.Title,
		Description:   r.Description,
		OccurredAt:    r.OccurredAt.UTC(),
		CorrelationID: r.CorrelationID,
		Source:        r.Source,
		Similarity:    r.Similarity,
	}
	if r.Embedding != nil {
		ev.Embedding = r.Embedding.Slice()
	}
	return ev
}

type credentialRow struct {
	ID                 string                      `gorm:"primaryKey;size:64"`
	CredentialHash     string                      `gorm:"size:64;not null;uniqueIndex"`
	Name               string                      `gorm:"size:255"`
	AuthorizedServices datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedBy          string                      `gorm:"size:255"`
	ExpiresAt          *time.Time
	LastUsedAt         *time.Time
	CreatedAt          time.Time `gorm:"not null"`
}

func (credentialRow) TableName() string { return "credentials" }

func newCredentialRow(rec auth.CredentialRecord) credentialRow {
	row := credentialRow{
		ID:                 rec.ID,
		CredentialHash:     rec.CredentialHash,
		Name:               rec.Name,
		AuthorizedServices: datatypes.JSONSlice[string](rec.AuthorizedServices),
		CreatedBy:          rec.CreatedBy,
		ExpiresAt:          utcPtr(rec.ExpiresAt),
		LastUsedAt:         utcPtr(rec.LastUsedAt),
		CreatedAt:          rec.CreatedAt.UTC(),
	}
	if row.AuthorizedServices == nil {
		row.AuthorizedServices = datatypes.JSONSlice[string]{}
	}
	return row
}

func (r credentialRow) record() *auth.CredentialRecord {
	return &auth.CredentialRecord{
		ID:                 r.ID,
		CredentialHash:     r.CredentialHash,
		Name:               r.Name,
		AuthorizedServices: append([]string(nil), r.AuthorizedServices...),
		CreatedBy:          r.CreatedBy,
		ExpiresAt:          utcPtr(r.ExpiresAt),
		LastUsedAt:         utcPtr(r.LastUsedAt),
		CreatedAt:          r.CreatedAt.UTC(),
	}
}

type auditRow struct {
	Seq          uint64    `gorm:"primaryKey;autoIncrement"`
	Timestamp    time.Time `gorm:"not null;index"`
	Level        string    `gorm:"size:16;not null"`
	Action       string    `gorm:"size:64;not null;index"`
	CallerID     string    `gorm:"size:128;not null;index"`
	CallerName   string    `gorm:"size:255"`
	Success      bool
	ResourceType string `gorm:"size:32"`
	ResourceID   string `gorm:"size:128"`
	ServiceID    string `gorm:"size:128;index"`
	Message      string `gorm:"type:text"`
	Metadata     datatypes.JSON
	Line         string `gorm:"type:text;not null"`
	ChainPrev    string `gorm:"size:64;not null;uniqueIndex"`
	ChainHash    string `gorm:"size:64;not null;uniqueIndex"`
}

func (auditRow) TableName() string { return "audit_log" }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
