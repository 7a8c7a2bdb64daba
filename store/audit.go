package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/PeterSurowski/ai-event-search/audit"
)

// ChainRecorder persists audit entries as a hash chain. Each row stores the
// previous row's hash and SHA-256(previous hash || line), so editing or
// removing a row breaks every later link.
//
// Appends are serialized by the database, so any number of recorders and
// processes may share the table. On Postgres a transaction-scoped advisory
// lock guards the head; SQLite serializes writers itself. The unique index
// on chain_prev rejects a fork at insert.
type ChainRecorder struct {
	db  *DB
	now func() time.Time
}

// auditChainLock is the Postgres advisory lock key guarding the chain head.
const auditChainLock int64 = 0x6576_7473_6175_6474

// NewChainRecorder creates a recorder writing to db.
func NewChainRecorder(db *DB) *ChainRecorder {
	return &ChainRecorder{db: db, now: time.Now}
}

// Record appends entry to the chain inside one transaction.
func (r *ChainRecorder) Record(ctx context.Context, entry audit.Entry) error {
	if !entry.Action.Valid() {
		return fmt.Errorf("%w: %q", audit.ErrInvalidAction, entry.Action)
	}
	ts, ok := audit.TimestampFromContext(ctx)
	if !ok {
		ts = r.now()
	}
	entry.Timestamp = ts.UTC().Truncate(time.Millisecond)
	if entry.Level == "" {
		entry.Level = audit.LevelInfo
	}

	line, err := entry.MarshalJSON()
	if err != nil {
		return fmt.Errorf("store: encode audit entry: %w", err)
	}
	row, err := newAuditRow(entry, line)
	if err != nil {
		return err
	}

	return r.db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.db.dialect == DriverPostgres {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", auditChainLock).Error; err != nil {
				return fmt.Errorf("store: lock audit chain: %w", err)
			}
		}
		var last auditRow
		err := tx.Order("seq DESC").Limit(1).Take(&last).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row.ChainPrev = ""
		case err != nil:
			return fmt.Errorf("store: read audit chain head: %w", err)
		default:
			row.ChainPrev = last.ChainHash
		}
		row.ChainHash = chainHash(row.ChainPrev, row.Line)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("store: append audit entry: %w", err)
		}
		return nil
	})
}

// Verify walks the chain in order and returns the number of intact rows.
// It fails with audit.ErrChainBroken at the first row whose link, hash or
// columns disagree with its sealed line.
func (r *ChainRecorder) Verify(ctx context.Context) (int, error) {
	var (
		rows []auditRow
		prev string
		n    int
	)
	err := r.db.gorm.WithContext(ctx).Order("seq").FindInBatches(&rows, 500, func(tx *gorm.DB, _ int) error {
		for _, row := range rows {
			if row.ChainPrev != prev {
				return fmt.Errorf("%w: seq %d does not link to its predecessor", audit.ErrChainBroken, row.Seq)
			}
			if chainHash(row.ChainPrev, row.Line) != row.ChainHash {
				return fmt.Errorf("%w: seq %d hash mismatch", audit.ErrChainBroken, row.Seq)
			}
			line, err := row.entry().MarshalJSON()
			if err != nil {
				return fmt.Errorf("%w: seq %d: %w", audit.ErrChainBroken, row.Seq, err)
			}
			if string(line) != row.Line {
				return fmt.Errorf("%w: seq %d columns differ from sealed line", audit.ErrChainBroken, row.Seq)
			}
			prev = row.ChainHash
			n++
		}
		return nil
	}).Error
	return n, err
}

func chainHash(prev, line string) string {
	sum := sha256.Sum256([]byte(prev + line))
	return hex.EncodeToString(sum[:])
}

func newAuditRow(e audit.Entry, line []byte) (auditRow, error) {
	row := auditRow{
		Timestamp:    e.Timestamp,
		Level:        string(e.Level),
		Action:       string(e.Action),
		CallerID:     e.CallerID,
		CallerName:   e.CallerName,
		Success:      e.Success,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		ServiceID:    e.ServiceID,
		Message:      e.Message,
		Line:         string(line),
	}
	if len(e.Metadata) > 0 {
		md, err := json.Marshal(e.Metadata)
		if err != nil {
			return auditRow{}, fmt.Errorf("store: encode audit metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(md)
	}
	return row, nil
}

func (r auditRow) entry() audit.Entry {
	e := audit.Entry{
		Timestamp:    r.Timestamp,
		Level:        audit.Level(r.Level),
		Action:       audit.Action(r.Action),
		CallerID:     r.CallerID,
		CallerName:   r.CallerName,
		Success:      r.Success,
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		ServiceID:    r.ServiceID,
		Message:      r.Message,
	}
	if len(r.Metadata) > 0 {
		_ = json.Unmarshal(r.Metadata, &e.Metadata)
	}
	return e
}

var _ audit.Recorder = (*ChainRecorder)(nil)
