package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Recorder emits audit entries.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Synchrony: Record returns only once the entry is durable in the sink
//     (or has failed); no batching.
//   - Ownership: Record stamps Timestamp; the caller's value is ignored.
//   - Errors: a non-nil error means the entry was not recorded.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// StreamRecorder writes one JSON line per entry to an operator-visible stream.
type StreamRecorder struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewStreamRecorder creates a recorder writing to w. A nil w writes to stdout.
func NewStreamRecorder(w io.Writer) *StreamRecorder {
	if w == nil {
		w = os.Stdout
	}
	return &StreamRecorder{w: w, now: time.Now}
}

// Record validates, stamps and writes the entry as a single Write call.
func (r *StreamRecorder) Record(ctx context.Context, entry Entry) error {
	if !entry.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, entry.Action)
	}
	if ts, ok := TimestampFromContext(ctx); ok {
		entry.Timestamp = ts
	} else {
		entry.Timestamp = r.now().UTC()
	}

	line, err := entry.Line()
	if err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(line); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	return nil
}

// Fanout records each entry to every backend with one shared timestamp.
// All backends are attempted; failures are joined.
type Fanout struct {
	backends []Recorder
	now      func() time.Time
}

// NewFanout creates a recorder forwarding to backends in order.
func NewFanout(backends ...Recorder) *Fanout {
	return &Fanout{backends: backends, now: time.Now}
}

// Record forwards the entry to all backends.
func (f *Fanout) Record(ctx context.Context, entry Entry) error {
	if !entry.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, entry.Action)
	}
	entry.Timestamp = f.now().UTC()

	var errs []error
	for _, b := range f.backends {
		if err := b.Record(withTimestamp(ctx, entry.Timestamp), entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopRecorder discards all entries.
type NopRecorder struct{}

// Record discards the entry.
func (NopRecorder) Record(context.Context, Entry) error { return nil }

// MemoryRecorder keeps entries in memory. Intended for tests and local runs.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record stores a copy of the entry.
func (m *MemoryRecorder) Record(ctx context.Context, entry Entry) error {
	if !entry.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, entry.Action)
	}
	if ts, ok := TimestampFromContext(ctx); ok {
		entry.Timestamp = ts
	} else {
		entry.Timestamp = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a snapshot of recorded entries in emission order.
func (m *MemoryRecorder) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Reset drops all recorded entries.
func (m *MemoryRecorder) Reset() {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

type timestampKey struct{}

// withTimestamp hands the Fanout stamp to its backends.
func withTimestamp(ctx context.Context, ts time.Time) context.Context {
	return context.WithValue(ctx, timestampKey{}, ts)
}

// TimestampFromContext returns the stamp assigned by an enclosing Fanout.
// Backends use it so every sink records the same generation time.
func TimestampFromContext(ctx context.Context) (time.Time, bool) {
	if ctx == nil {
		return time.Time{}, false
	}
	ts, ok := ctx.Value(timestampKey{}).(time.Time)
	return ts, ok
}

var (
	_ Recorder = (*StreamRecorder)(nil)
	_ Recorder = (*Fanout)(nil)
	_ Recorder = NopRecorder{}
	_ Recorder = (*MemoryRecorder)(nil)
)
