package models

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryEntries bounds the in-memory journal when no size is given.
const DefaultMemoryEntries = 1024

// MemoryJournal keeps the most recent entries in a fixed-size ring.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []*JournalEntry
	next    int
	size    int
	ids     map[string]struct{}
	closed  bool
	now     func() time.Time
}

// NewMemoryJournal creates a ring holding at most maxEntries rows.
func NewMemoryJournal(maxEntries int) *MemoryJournal {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &MemoryJournal{
		entries: make([]*JournalEntry, maxEntries),
		ids:     make(map[string]struct{}, maxEntries),
		now:     time.Now,
	}
}

func (j *MemoryJournal) Record(ctx context.Context, entry *JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	entry.prepare(j.now())
	if _, exists := j.ids[entry.ID]; exists {
		return ErrDuplicateEntry
	}

	stored := *entry
	if old := j.entries[j.next]; old != nil {
		delete(j.ids, old.ID)
	}
	j.entries[j.next] = &stored
	j.ids[stored.ID] = struct{}{}
	j.next = (j.next + 1) % len(j.entries)
	if j.size < len(j.entries) {
		j.size++
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *MemoryJournal) Recent(ctx context.Context, limit int) ([]*JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	limit = clampLimit(limit, MaxRecent)
	out := make([]*JournalEntry, 0, min(limit, j.size))
	for i := 1; i <= j.size && len(out) < limit; i++ {
		idx := (j.next - i + len(j.entries)) % len(j.entries)
		if e := j.entries[idx]; e != nil {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (j *MemoryJournal) CountByMode(ctx context.Context) (map[string]int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range j.entries {
		if e != nil {
			counts[e.Mode]++
		}
	}
	return counts, nil
}

// Prune drops entries created before the cutoff and compacts the ring.
func (j *MemoryJournal) Prune(ctx context.Context, before time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	// walk oldest to newest so the compacted ring keeps insertion order
	kept := make([]*JournalEntry, 0, j.size)
	var removed int64
	for i := j.size; i >= 1; i-- {
		idx := (j.next - i + len(j.entries)) % len(j.entries)
		e := j.entries[idx]
		if e == nil {
			continue
		}
		if e.CreatedAt.Before(before) {
			delete(j.ids, e.ID)
			removed++
			continue
		}
		kept = append(kept, e)
	}

	clear(j.entries)
	copy(j.entries, kept)
	j.size = len(kept)
	j.next = len(kept) % len(j.entries)

	return removed, nil
}

func (j *MemoryJournal) Health(ctx context.Context) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}
	return nil
}

func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}
