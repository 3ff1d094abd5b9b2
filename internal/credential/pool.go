package credential

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "antigravity-gateway/internal/errors"
	log "github.com/sirupsen/logrus"
)

// usageWindow is the trailing interval the selection algorithm's quota and
// "fewest requests" tiebreak both operate over.
const usageWindow = 60 * time.Minute

// WindowCounter is the slice of the Usage Store the Pool reads through for
// sliding-window accounting.
type WindowCounter interface {
	CountInWindow(projectID string, window time.Duration) (count int64, lastUsedAt time.Time)
}

// Refresher is the OAuth Client surface the Pool needs for in-line refresh.
type Refresher interface {
	Refresh(ctx context.Context, cred *Credential) (*Credential, error)
}

// Pool is the central concurrency object selecting credentials under load
//. All mutation of the in-memory list and persistence to Store
// happens under mu so concurrent acquirers never race a disable.
type Pool struct {
	mu     sync.Mutex
	store  Store
	usage  WindowCounter
	oauth  Refresher
	coord  *InflightCoordinator
	list   []*Credential
	limit  int
}

// NewPool wires the Pool against its Store, Usage Store window reader, and
// OAuth Client.
func NewPool(store Store, usage WindowCounter, oauth Refresher) *Pool {
	return &Pool{
		store: store,
		usage: usage,
		oauth: oauth,
		coord: NewInflightCoordinator(),
		limit: 0, // 0 means unlimited until SetHourlyLimit is called
	}
}

// Initialize reloads from the Credential Store and rebuilds the in-memory
// view. Idempotent.
func (p *Pool) Initialize(ctx context.Context) error {
	list, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.list = list
	p.mu.Unlock()
	return nil
}

// SetHourlyLimit is runtime-tunable.
func (p *Pool) SetHourlyLimit(n int) {
	p.mu.Lock()
	p.limit = n
	p.mu.Unlock()
}

// Acquire runs the five-step selection algorithm.
func (p *Pool) Acquire(ctx context.Context) (View, error) {
	p.mu.Lock()
	total := len(p.list)
	p.mu.Unlock()

	tried := make(map[string]bool, total)
	for attempt := 0; attempt <= total; attempt++ {
		cred, index, err := p.pickCandidate(tried)
		if err != nil {
			return View{}, err
		}
		if cred == nil {
			return View{}, apperrors.NoCredentialAvailable("no eligible credential: all candidates were exhausted")
		}
		tried[cred.RefreshToken] = true

		fresh, ok := p.ensureFresh(ctx, cred, index)
		if !ok {
			// terminal refresh failure already disabled and persisted; restart
			continue
		}
		p.markUsed(index, fresh)
		return fresh.View(), nil
	}
	return View{}, apperrors.NoCredentialAvailable("no eligible credential: all candidates were exhausted")
}

// AcquireByProjectId bypasses load balancing but still applies quota and
// freshness rules.
func (p *Pool) AcquireByProjectId(ctx context.Context, projectID string) (View, error) {
	p.mu.Lock()
	index := -1
	for i, c := range p.list {
		if c.ProjectID == projectID {
			index = i
			break
		}
	}
	if index == -1 {
		p.mu.Unlock()
		return View{}, apperrors.CredentialNotFound("no credential registered for project_id " + projectID)
	}
	cred := p.list[index].Clone()
	limit := p.limit
	p.mu.Unlock()

	if limit > 0 {
		count, _ := p.usage.CountInWindow(projectID, usageWindow)
		if count >= int64(limit) {
			return View{}, apperrors.NoCredentialAvailable("credential for project_id " + projectID + " is over its hourly quota")
		}
	}

	fresh, ok := p.ensureFresh(ctx, cred, index)
	if !ok {
		return View{}, apperrors.CredentialNotFound("credential for project_id " + projectID + " failed refresh and was disabled")
	}
	p.markUsed(index, fresh)
	return fresh.View(), nil
}

// pickCandidate implements steps 1-3: snapshot enabled credentials, filter
// by hourly quota, then pick fewest-in-window / LRU / positional order.
// tried excludes refresh_tokens already attempted in this Acquire call.
func (p *Pool) pickCandidate(tried map[string]bool) (*Credential, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	type candidate struct {
		cred  *Credential
		index int
		count int64
		last  time.Time
	}
	var candidates []candidate
	for i, c := range p.list {
		if !c.Enabled || tried[c.RefreshToken] {
			continue
		}
		count, lastUsed := int64(0), c.LastUsedAt
		if p.usage != nil {
			count, _ = p.usage.CountInWindow(c.ProjectID, usageWindow)
		}
		if p.limit > 0 && count >= int64(p.limit) {
			continue
		}
		candidates = append(candidates, candidate{cred: c, index: i, count: count, last: lastUsed})
	}
	if len(candidates) == 0 {
		return nil, -1, nil
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].count != candidates[b].count {
			return candidates[a].count < candidates[b].count
		}
		if !candidates[a].last.Equal(candidates[b].last) {
			return candidates[a].last.Before(candidates[b].last)
		}
		return candidates[a].index < candidates[b].index
	})

	best := candidates[0]
	return best.cred.Clone(), best.index, nil
}

// ensureFresh implements step 4: refresh the candidate if its access token
// isn't fresh enough. On terminal failure, disables and persists the
// credential immediately so concurrent acquirers won't see it again.
func (p *Pool) ensureFresh(ctx context.Context, cred *Credential, index int) (*Credential, bool) {
	if cred.FreshEnough(time.Now()) {
		return cred, true
	}

	var refreshed *Credential
	err := p.coord.Do(ctx, cred.RefreshToken, func(ctx context.Context) error {
		r, err := p.oauth.Refresh(ctx, cred)
		if err != nil {
			return err
		}
		refreshed = r
		return nil
	})
	if err != nil {
		if apperrors.IsTerminalForCredential(statusOf(err)) {
			p.disableAndPersist(ctx, index, cred.RefreshToken)
		} else {
			log.WithError(err).WithField("refresh_token_suffix", suffix(cred.RefreshToken)).
				Warn("transient credential refresh failure, trying next candidate")
		}
		return nil, false
	}

	p.mu.Lock()
	if index >= 0 && index < len(p.list) && p.list[index].RefreshToken == cred.RefreshToken {
		p.list[index] = refreshed
	}
	snapshot := append([]*Credential(nil), p.list...)
	p.mu.Unlock()

	if err := p.store.Save(ctx, snapshot); err != nil {
		log.WithError(err).Warn("failed to persist refreshed credential")
	}
	return refreshed, true
}

// disableAndPersist marks a credential disabled by refresh_token identity
// (index may have shifted since the candidate was picked) and saves
// immediately, per the "disabled mid-selection persists immediately"
// failure semantics.
func (p *Pool) disableAndPersist(ctx context.Context, index int, refreshToken string) {
	p.mu.Lock()
	if index >= 0 && index < len(p.list) && p.list[index].RefreshToken == refreshToken {
		p.list[index].Enabled = false
	} else {
		for _, c := range p.list {
			if c.RefreshToken == refreshToken {
				c.Enabled = false
				break
			}
		}
	}
	snapshot := append([]*Credential(nil), p.list...)
	p.mu.Unlock()

	if err := p.store.Save(ctx, snapshot); err != nil {
		log.WithError(err).Warn("failed to persist credential disable")
	}
}

// markUsed updates last_used_at in-memory; the Usage Store (via the
// Orchestrator's log append) remains the system of record for persistence
// of the sliding-window counters themselves.
func (p *Pool) markUsed(index int, cred *Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= 0 && index < len(p.list) && p.list[index].RefreshToken == cred.RefreshToken {
		p.list[index].LastUsedAt = time.Now()
		p.list[index].AccessToken = cred.AccessToken
		p.list[index].ExpiresIn = cred.ExpiresIn
		p.list[index].IssuedAt = cred.IssuedAt
	}
}

// RecordOutcome increments in-memory counters only; persistence of the
// outcome happens through the Usage Store's own Append, invoked by the
// Orchestrator.
func (p *Pool) RecordOutcome(projectID string, success bool, model string) {
	log.WithFields(log.Fields{"project_id": projectID, "success": success, "model": model}).Debug("credential outcome recorded")
}

// Enumerate returns a read-only snapshot for admin listing; indexes are
// positional and stable only within this snapshot.
func (p *Pool) Enumerate() []*Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Credential, len(p.list))
	for i, c := range p.list {
		out[i] = c.Clone()
	}
	return out
}

func suffix(s string) string {
	if len(s) <= 6 {
		return s
	}
	return "..." + s[len(s)-6:]
}

// statusOf extracts the HTTP status an APIError carries, or 0.
func statusOf(err error) int {
	if apiErr, ok := err.(*apperrors.APIError); ok {
		return apiErr.HTTPStatus
	}
	return 0
}
