package usage

import (
	"context"
	"testing"
	"time"
)

func TestStoreAppendAndRecentLogs(t *testing.T) {
	s, err := NewStore(context.Background(), Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	s.Append(context.Background(), LogEntry{
		Timestamp: time.Now(),
		Model:     "gemini-3-pro",
		ProjectID: "proj-a",
		Success:   true,
		Detail:    &Detail{Request: &RequestDetail{Body: map[string]any{"x": 1}}},
	})
	s.Append(context.Background(), LogEntry{
		Timestamp: time.Now(),
		Model:     "gemini-3-pro",
		ProjectID: "proj-a",
		Success:   false,
	})

	recent := s.RecentLogs(10)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].ID != 2 {
		t.Fatalf("expected newest-first order, got id %d first", recent[0].ID)
	}
	if recent[0].Detail != nil {
		t.Fatalf("RecentLogs must not leak detail bodies")
	}

	detail, ok := s.GetDetail(1)
	if !ok || detail.Detail == nil {
		t.Fatalf("GetDetail should return the full entry including detail")
	}
}

func TestStoreCountInWindow(t *testing.T) {
	s, err := NewStore(context.Background(), Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	now := time.Now()
	s.Append(context.Background(), LogEntry{Timestamp: now.Add(-2 * time.Hour), ProjectID: "p1", Success: true})
	s.Append(context.Background(), LogEntry{Timestamp: now.Add(-1 * time.Minute), ProjectID: "p1", Success: true})
	s.Append(context.Background(), LogEntry{Timestamp: now, ProjectID: "p1", Success: true})

	count, lastUsed := s.CountInWindow("p1", 60*time.Minute)
	if count != 2 {
		t.Fatalf("expected 2 requests within trailing 60m window, got %d", count)
	}
	if lastUsed.Before(now.Add(-time.Second)) {
		t.Fatalf("expected last-used timestamp to reflect the most recent entry")
	}
}

func TestStoreRetentionEnforcesMaxItems(t *testing.T) {
	s, err := NewStore(context.Background(), Options{MaxItems: 3})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for i := 0; i < 5; i++ {
		s.Append(context.Background(), LogEntry{Timestamp: time.Now(), ProjectID: "p1"})
	}
	recent := s.RecentLogs(100)
	if len(recent) != 3 {
		t.Fatalf("expected retention to cap at 3 entries, got %d", len(recent))
	}
}
