package events

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]Event
}

// NewMemoryStore creates a store holding a copy of seed.
func NewMemoryStore(seed ...Event) *MemoryStore {
	s := &MemoryStore{events: make(map[string]Event, len(seed))}
	for _, ev := range seed {
		s.Put(ev)
	}
	return s
}

// Put inserts or replaces an event.
func (s *MemoryStore) Put(ev Event) {
	ev.Embedding = slices.Clone(ev.Embedding)
	ev.Similarity = 0
	s.mu.Lock()
	s.events[ev.ID] = ev
	s.mu.Unlock()
}

// KeywordSearch matches q.Text as a literal substring of title or
// description, ignoring ASCII case like SQL LOWER() on SQLite.
func (s *MemoryStore) KeywordSearch(_ context.Context, q KeywordQuery) ([]Event, error) {
	needle := lowerASCII(q.Text)
	out := s.collect(func(ev *Event) bool {
		if !q.Scope.Allows(ev.ServiceID) || !q.Filters.Match(ev) {
			return false
		}
		return strings.Contains(lowerASCII(ev.Title), needle) ||
			strings.Contains(lowerASCII(ev.Description), needle)
	})
	sortRecent(out)
	return truncate(out, q.Limit), nil
}

// SimilaritySearch ranks embedded events by cosine similarity.
func (s *MemoryStore) SimilaritySearch(_ context.Context, q VectorQuery) ([]Event, error) {
	out := s.collect(func(ev *Event) bool {
		return ev.HasEmbedding() && q.Scope.Allows(ev.ServiceID) && q.Filters.Match(ev)
	})
	return truncate(RankBySimilarity(out, q.Vector), q.Limit), nil
}

// GetByID returns the event with id or ErrNotFound.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	ev.Embedding = slices.Clone(ev.Embedding)
	return &ev, nil
}

// Timeline lists one tenant's events, newest first.
func (s *MemoryStore) Timeline(_ context.Context, q TimelineQuery) ([]Event, error) {
	out := s.collect(func(ev *Event) bool {
		return ev.ServiceID == q.ServiceID && q.Range.Contains(ev.OccurredAt)
	})
	sortRecent(out)
	return truncate(out, q.Limit), nil
}

func (s *MemoryStore) collect(keep func(*Event) bool) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0)
	for _, ev := range s.events {
		if keep(&ev) {
			ev.Embedding = slices.Clone(ev.Embedding)
			out = append(out, ev)
		}
	}
	return out
}

// sortRecent orders newest first, ties by id.
func sortRecent(evs []Event) {
	slices.SortFunc(evs, func(a, b Event) int {
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// sortSimilar orders most similar first, ties by recency.
func sortSimilar(evs []Event) {
	slices.SortFunc(evs, func(a, b Event) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func truncate(evs []Event, limit int) []Event {
	if limit > 0 && len(evs) > limit {
		return evs[:limit]
	}
	return evs
}

var _ Store = (*MemoryStore)(nil)

func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}
