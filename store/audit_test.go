package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PeterSurowski/ai-event-search/audit"
)

func newChain(t *testing.T) (*ChainRecorder, *DB) {
	t.Helper()
	db := openTestDB(t)
	rec := NewChainRecorder(db)
	var tick int
	rec.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return rec, db
}

func recordSample(t *testing.T, rec *ChainRecorder) {
	t.Helper()
	ctx := context.Background()
	entries := []audit.Entry{
		audit.AuthenticationSuccess("tok_a", "svc-a agent", []string{"svc-a"}),
		audit.Access(audit.ActionSearch, "tok_a", "svc-a agent", 3),
		audit.AuthorizationDenied("tok_a", "svc-a agent", "event", "b1", "svc-b", "event outside caller entitlements"),
		audit.AuthenticationFailure("invalid", audit.ReasonInvalidToken, map[string]any{"credentialHash": "abc"}),
	}
	for _, e := range entries {
		if err := rec.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
}

func TestChainRecorder_RecordAndVerify(t *testing.T) {
	rec, db := newChain(t)
	recordSample(t, rec)

	n, err := rec.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Verify() = %d, want 4", n)
	}

	var rows []auditRow
	db.Gorm().Order("seq").Find(&rows)
	if rows[0].ChainPrev != "" || rows[1].ChainPrev != rows[0].ChainHash {
		t.Error("rows are not linked")
	}
	if !strings.HasPrefix(rows[0].Line, `{"type":"AUDIT","timestamp":"2026-03-01T12:00:01.000Z"`) {
		t.Errorf("line = %s", rows[0].Line)
	}
	if rows[2].ServiceID != "svc-b" || rows[2].Action != string(audit.ActionAuthorizationDenied) {
		t.Errorf("row columns = %+v", rows[2])
	}
}

func TestChainRecorder_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(t *testing.T, db *DB)
	}{
		{
			name: "edited column",
			tamper: func(t *testing.T, db *DB) {
				if err := db.Gorm().Model(&auditRow{}).Where("seq = ?", 2).Update("caller_id", "someone_else").Error; err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "edited line",
			tamper: func(t *testing.T, db *DB) {
				var row auditRow
				db.Gorm().Where("seq = ?", 3).Take(&row)
				forged := strings.Replace(row.Line, `"success":false`, `"success":true`, 1)
				if err := db.Gorm().Model(&auditRow{}).Where("seq = ?", 3).Update("line", forged).Error; err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "deleted row",
			tamper: func(t *testing.T, db *DB) {
				if err := db.Gorm().Where("seq = ?", 2).Delete(&auditRow{}).Error; err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, db := newChain(t)
			recordSample(t, rec)
			tt.tamper(t, db)

			if _, err := rec.Verify(context.Background()); !errors.Is(err, audit.ErrChainBroken) {
				t.Fatalf("Verify() error = %v, want ErrChainBroken", err)
			}
		})
	}
}

func TestChainRecorder_ConcurrentRecorders(t *testing.T) {
	db := openTestDB(t)
	recorders := []*ChainRecorder{NewChainRecorder(db), NewChainRecorder(db)}
	const perRecorder = 20

	var wg sync.WaitGroup
	errs := make(chan error, len(recorders)*perRecorder)
	for i, rec := range recorders {
		for j := range perRecorder {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- rec.Record(context.Background(), audit.Access(audit.ActionSearch, fmt.Sprintf("tok_%d", i), "", j))
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := recorders[0].Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if want := len(recorders) * perRecorder; n != want {
		t.Errorf("Verify() = %d, want %d", n, want)
	}
}

func TestChainRecorder_RejectsFork(t *testing.T) {
	rec, db := newChain(t)
	recordSample(t, rec)

	var head auditRow
	db.Gorm().Where("seq = ?", 2).Take(&head)
	fork := head
	fork.Seq = 0
	fork.Line = strings.Replace(head.Line, "tok_a", "tok_b", 1)
	fork.ChainHash = chainHash(fork.ChainPrev, fork.Line)
	if err := db.Gorm().Create(&fork).Error; err == nil {
		t.Fatal("second row linked to the same predecessor was accepted")
	}
}

func TestChainRecorder_RejectsUnknownAction(t *testing.T) {
	rec, _ := newChain(t)
	err := rec.Record(context.Background(), audit.Entry{Action: "event_access_delete", CallerID: "x"})
	if !errors.Is(err, audit.ErrInvalidAction) {
		t.Fatalf("Record() error = %v, want ErrInvalidAction", err)
	}
}

func TestChainRecorder_SharesFanoutTimestamp(t *testing.T) {
	rec, db := newChain(t)
	mem := audit.NewMemoryRecorder()
	fan := audit.NewFanout(mem, rec)

	if err := fan.Record(context.Background(), audit.Access(audit.ActionGetTimeline, "tok_a", "", 0)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	var row auditRow
	db.Gorm().Take(&row)
	want := mem.Entries()[0].Timestamp.Truncate(time.Millisecond)
	if !row.Timestamp.Equal(want) {
		t.Errorf("chain timestamp = %v, memory timestamp = %v", row.Timestamp, want)
	}
}
