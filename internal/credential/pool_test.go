package credential

import (
	"context"
	"testing"
	"time"

	apperrors "antigravity-gateway/internal/errors"
)

type fakeUsage struct {
	counts map[string]int64
}

func (f *fakeUsage) CountInWindow(projectID string, _ time.Duration) (int64, time.Time) {
	return f.counts[projectID], time.Time{}
}

type fakeRefresher struct {
	refreshed map[string]bool
	terminal  map[string]bool
}

func (f *fakeRefresher) Refresh(_ context.Context, cred *Credential) (*Credential, error) {
	if f.terminal[cred.RefreshToken] {
		return nil, apperrors.UpstreamTerminalForCredential("refresh rejected")
	}
	out := cred.Clone()
	out.AccessToken = "refreshed-" + cred.RefreshToken
	out.IssuedAt = time.Now().UnixMilli()
	out.ExpiresIn = 3600
	f.refreshed[cred.RefreshToken] = true
	return out, nil
}

func TestPoolAcquirePicksFewestInWindow(t *testing.T) {
	now := time.Now()
	store := NewFileStore(t.TempDir() + "/creds.json")
	list := []*Credential{
		{RefreshToken: "rt-a", AccessToken: "at-a", ProjectID: "proj-a", Enabled: true, IssuedAt: now.UnixMilli(), ExpiresIn: 3600},
		{RefreshToken: "rt-b", AccessToken: "at-b", ProjectID: "proj-b", Enabled: true, IssuedAt: now.UnixMilli(), ExpiresIn: 3600},
	}
	if err := store.Save(context.Background(), list); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	usage := &fakeUsage{counts: map[string]int64{"proj-a": 5, "proj-b": 1}}
	pool := NewPool(store, usage, &fakeRefresher{refreshed: map[string]bool{}, terminal: map[string]bool{}})
	if err := pool.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	view, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if view.ProjectID != "proj-b" {
		t.Fatalf("expected proj-b (fewest in window), got %s", view.ProjectID)
	}
}

func TestPoolAcquireSkipsOverQuota(t *testing.T) {
	now := time.Now()
	store := NewFileStore(t.TempDir() + "/creds.json")
	list := []*Credential{
		{RefreshToken: "rt-a", AccessToken: "at-a", ProjectID: "proj-a", Enabled: true, IssuedAt: now.UnixMilli(), ExpiresIn: 3600},
	}
	store.Save(context.Background(), list)

	usage := &fakeUsage{counts: map[string]int64{"proj-a": 100}}
	pool := NewPool(store, usage, &fakeRefresher{refreshed: map[string]bool{}, terminal: map[string]bool{}})
	pool.SetHourlyLimit(10)
	if err := pool.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	_, err := pool.Acquire(context.Background())
	if err == nil {
		t.Fatalf("expected NoCredentialAvailable when every candidate is over quota")
	}
}

func TestPoolAcquireRefreshesStaleToken(t *testing.T) {
	stale := time.Now().Add(-2 * time.Hour)
	store := NewFileStore(t.TempDir() + "/creds.json")
	list := []*Credential{
		{RefreshToken: "rt-a", AccessToken: "at-a", ProjectID: "proj-a", Enabled: true, IssuedAt: stale.UnixMilli(), ExpiresIn: 3600},
	}
	store.Save(context.Background(), list)

	refresher := &fakeRefresher{refreshed: map[string]bool{}, terminal: map[string]bool{}}
	pool := NewPool(store, &fakeUsage{counts: map[string]int64{}}, refresher)
	if err := pool.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	view, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !refresher.refreshed["rt-a"] {
		t.Fatalf("expected stale credential to be refreshed before acquisition")
	}
	if view.AccessToken != "refreshed-rt-a" {
		t.Fatalf("expected view to carry the refreshed access token, got %q", view.AccessToken)
	}
}

func TestPoolAcquireDisablesOnTerminalRefreshFailure(t *testing.T) {
	stale := time.Now().Add(-2 * time.Hour)
	fresh := time.Now()
	store := NewFileStore(t.TempDir() + "/creds.json")
	list := []*Credential{
		{RefreshToken: "rt-bad", AccessToken: "at-bad", ProjectID: "proj-bad", Enabled: true, IssuedAt: stale.UnixMilli(), ExpiresIn: 3600},
		{RefreshToken: "rt-good", AccessToken: "at-good", ProjectID: "proj-good", Enabled: true, IssuedAt: fresh.UnixMilli(), ExpiresIn: 3600},
	}
	store.Save(context.Background(), list)

	refresher := &fakeRefresher{refreshed: map[string]bool{}, terminal: map[string]bool{"rt-bad": true}}
	pool := NewPool(store, &fakeUsage{counts: map[string]int64{}}, refresher)
	if err := pool.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	view, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if view.ProjectID != "proj-good" {
		t.Fatalf("expected selection to fall through to the remaining good credential, got %s", view.ProjectID)
	}

	persisted, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, c := range persisted {
		if c.RefreshToken == "rt-bad" && c.Enabled {
			t.Fatalf("expected terminal refresh failure to disable and persist rt-bad")
		}
	}
}
