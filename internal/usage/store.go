package usage

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Backend persists the retained log entries. Store owns retention and
// ordering; Backend is just a dumb load/save of the full retained slice, so
// swapping backends never changes observable behavior.
type Backend interface {
	LoadAll(ctx context.Context) ([]LogEntry, error)
	SaveAll(ctx context.Context, entries []LogEntry) error
}

// Store is the Usage & Observability Store. It is the single
// source of truth for sliding-window usage: the Credential Pool reads
// windows through Store.CountInWindow rather than keeping an independent
// counter.
type Store struct {
	mu            sync.RWMutex
	entries       []LogEntry // ordered oldest-first
	nextID        int64
	maxItems      int
	retentionDays int
	backend       Backend
}

// Options configures retention.
type Options struct {
	MaxItems      int
	RetentionDays int
	Backend       Backend
}

const (
	defaultMaxItems      = 2000
	defaultRetentionDays = 30
)

// NewStore constructs a Store and loads any persisted entries from backend.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	retentionDays := opts.RetentionDays
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	s := &Store{
		maxItems:      maxItems,
		retentionDays: retentionDays,
		backend:       opts.Backend,
	}
	if s.backend != nil {
		entries, err := s.backend.LoadAll(ctx)
		if err != nil {
			log.WithError(err).Warn("usage store: failed to load persisted log, starting empty")
		} else {
			s.entries = entries
			for _, e := range entries {
				if e.ID > s.nextID {
					s.nextID = e.ID
				}
			}
		}
	}
	return s, nil
}

// Append assigns a monotonic id, enforces capacity/retention, and persists
// atomically. It blocks briefly and never returns an error the
// caller must act on beyond logging — a failed log append must never
// block the response path.
func (s *Store) Append(ctx context.Context, entry LogEntry) {
	s.mu.Lock()
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, entry)
	s.enforceRetentionLocked()
	snapshot := append([]LogEntry(nil), s.entries...)
	backend := s.backend
	s.mu.Unlock()

	if backend != nil {
		if err := backend.SaveAll(ctx, snapshot); err != nil {
			log.WithError(err).Warn("usage store: failed to persist log append")
		}
	}
}

// enforceRetentionLocked drops entries beyond maxItems or older than
// retentionDays. Must be called with s.mu held.
func (s *Store) enforceRetentionLocked() {
	if len(s.entries) > s.maxItems {
		s.entries = s.entries[len(s.entries)-s.maxItems:]
	}
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	start := 0
	for start < len(s.entries) && s.entries[start].Timestamp.Before(cutoff) {
		start++
	}
	if start > 0 {
		s.entries = s.entries[start:]
	}
}

// RecentLogs returns entries in reverse-chronological order without detail
// bodies.
func (s *Store) RecentLogs(limit int) []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]LogEntry, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i].WithoutDetail())
	}
	return out
}

// GetDetail returns the full entry (including detail) or false if absent.
func (s *Store) GetDetail(id int64) (LogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ID == id {
			return s.entries[i], true
		}
	}
	return LogEntry{}, false
}

// Clear truncates both in-memory state and the persisted backend.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = nil
	backend := s.backend
	s.mu.Unlock()

	if backend != nil {
		return backend.SaveAll(ctx, nil)
	}
	return nil
}

// UsageSummary returns per-project_id totals over the full retained window
//. Counters are derived by scanning, per the algorithmic note.
func (s *Store) UsageSummary() []ProjectSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProject := make(map[string]*ProjectSummary)
	var order []string
	modelSeen := make(map[string]map[string]bool)

	for _, e := range s.entries {
		ps, ok := byProject[e.ProjectID]
		if !ok {
			ps = &ProjectSummary{ProjectID: e.ProjectID}
			byProject[e.ProjectID] = ps
			modelSeen[e.ProjectID] = make(map[string]bool)
			order = append(order, e.ProjectID)
		}
		ps.Total++
		if e.Success {
			ps.Success++
		} else {
			ps.Failed++
		}
		if e.Timestamp.After(ps.LastUsedAt) {
			ps.LastUsedAt = e.Timestamp
		}
		if e.Model != "" && !modelSeen[e.ProjectID][e.Model] {
			modelSeen[e.ProjectID][e.Model] = true
			ps.Models = append(ps.Models, e.Model)
		}
	}

	out := make([]ProjectSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byProject[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out
}

// UsageWithinWindow returns per-project_id counts over the trailing
// duration.
func (s *Store) UsageWithinWindow(d time.Duration) []WindowCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-d)
	byProject := make(map[string]*WindowCount)
	var order []string
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		wc, ok := byProject[e.ProjectID]
		if !ok {
			wc = &WindowCount{ProjectID: e.ProjectID}
			byProject[e.ProjectID] = wc
			order = append(order, e.ProjectID)
		}
		wc.Total++
		if e.Success {
			wc.Success++
		} else {
			wc.Failed++
		}
	}
	out := make([]WindowCount, 0, len(order))
	for _, id := range order {
		out = append(out, *byProject[id])
	}
	return out
}

// CountInWindow answers "how many requests for project_id in the trailing
// duration, and when was it last used" — the exact query the Credential
// Pool's selection algorithm needs, keeping the Store the
// single source of truth for sliding-window usage.
func (s *Store) CountInWindow(projectID string, d time.Duration) (count int64, lastUsedAt time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-d)
	for _, e := range s.entries {
		if e.ProjectID != projectID {
			continue
		}
		if e.Timestamp.After(lastUsedAt) {
			lastUsedAt = e.Timestamp
		}
		if !e.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count, lastUsedAt
}

// nextIDPeek is exposed for tests asserting id monotonicity.
func (s *Store) nextIDPeek() int64 {
	return atomic.LoadInt64(&s.nextID)
}
