package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PeterSurowski/ai-event-search/auth"
	"github.com/PeterSurowski/ai-event-search/events"
)

// EventStore is the gorm-backed events.Store.
type EventStore struct {
	db *DB
}

// NewEventStore creates an EventStore on db.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Put inserts or replaces events.
func (s *EventStore) Put(ctx context.Context, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	rows := make([]eventRow, len(evs))
	for i, ev := range evs {
		rows[i] = newEventRow(ev)
	}
	err := s.db.gorm.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("store: put events: %w", err)
	}
	return nil
}

// KeywordSearch matches q.Text literally against title and description.
func (s *EventStore) KeywordSearch(ctx context.Context, q events.KeywordQuery) ([]events.Event, error) {
	tx := s.scoped(ctx, q.Filters, q.Scope)
	if q.Text != "" {
		pattern := containsPattern(q.Text)
		tx = tx.Where(
			"(LOWER(title) LIKE LOWER(?) ESCAPE '"+likeEscape+"' OR LOWER(description) LIKE LOWER(?) ESCAPE '"+likeEscape+"')",
			pattern, pattern,
		)
	}

	var rows []eventRow
	if err := limited(recent(tx), q.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: keyword search: %w", err)
	}
	return toEvents(rows), nil
}

// SimilaritySearch ranks embedded events by cosine similarity. On Postgres
// ranking runs in pgvector; elsewhere it runs in process over the same
// scoped rows.
func (s *EventStore) SimilaritySearch(ctx context.Context, q events.VectorQuery) ([]events.Event, error) {
	if len(q.Vector) == 0 {
		return []events.Event{}, nil
	}
	tx := s.scoped(ctx, q.Filters, q.Scope).Where("embedding IS NOT NULL")

	var rows []eventRow
	if s.db.dialect == DriverPostgres {
		vec := pgvector.NewVector(q.Vector)
		tx = tx.Select("events.*, 1 - (embedding <=> ?) AS similarity", vec).
			Order(clause.OrderBy{Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []any{vec}}}).
			Order("occurred_at DESC").
			Order("id")
		err := limited(tx, q.Limit).Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("store: similarity search: %w", err)
		}
		return toEvents(rows), nil
	}

	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: similarity search: %w", err)
	}
	ranked := events.RankBySimilarity(toEvents(rows), q.Vector)
	if q.Limit > 0 && len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}
	return ranked, nil
}

// GetByID returns the event with id or events.ErrNotFound.
func (s *EventStore) GetByID(ctx context.Context, id string) (*events.Event, error) {
	var row eventRow
	err := s.db.gorm.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get event: %w", err)
	}
	ev := row.event()
	return &ev, nil
}

// Timeline lists one tenant's events, newest first.
func (s *EventStore) Timeline(ctx context.Context, q events.TimelineQuery) ([]events.Event, error) {
	tx := s.db.gorm.WithContext(ctx).Model(&eventRow{}).Where("service_id = ?", q.ServiceID)
	tx = inRange(tx, q.Range)

	var rows []eventRow
	if err := limited(recent(tx), q.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: timeline: %w", err)
	}
	return toEvents(rows), nil
}

// scoped starts a query restricted to scope and narrowed by f. The scope
// condition is always ANDed; an empty allow-list matches nothing.
func (s *EventStore) scoped(ctx context.Context, f events.Filters, scope auth.Scope) *gorm.DB {
	tx := s.db.gorm.WithContext(ctx).Model(&eventRow{})
	if !scope.All {
		if len(scope.Services) == 0 {
			return tx.Where("1 = 0")
		}
		tx = tx.Where("service_id IN ?", scope.Services)
	}
	if f.ServiceID != "" {
		tx = tx.Where("service_id = ?", f.ServiceID)
	}
	if f.EventType != "" {
		tx = tx.Where("event_type = ?", f.EventType)
	}
	if f.Severity != "" {
		tx = tx.Where("severity = ?", f.Severity)
	}
	return inRange(tx, f.Range)
}

func inRange(tx *gorm.DB, r events.DateRange) *gorm.DB {
	if !r.From.IsZero() {
		tx = tx.Where("occurred_at >= ?", r.From.UTC())
	}
	if !r.To.IsZero() {
		tx = tx.Where("occurred_at <= ?", r.To.UTC())
	}
	return tx
}

func recent(tx *gorm.DB) *gorm.DB {
	return tx.Order("occurred_at DESC").Order("id")
}

// limited applies n as a row cap; n <= 0 leaves the query uncapped.
func limited(tx *gorm.DB, n int) *gorm.DB {
	if n <= 0 {
		return tx
	}
	return tx.Limit(n)
}

func toEvents(rows []eventRow) []events.Event {
	out := make([]events.Event, len(rows))
	for i, r := range rows {
		out[i] = r.event()
	}
	return out
}

var _ events.Store = (*EventStore)(nil)
