package medlog

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/medlog/visits"
)

type cachedVisits struct {
	visits  []visits.Visit
	fetched time.Time
}

// VisitCache is an in-memory, per-user cache of visit lists with TTL. It
// sits in front of a visits.Repository and is invalidated by every write made
// through it.
type VisitCache struct {
	mu      sync.RWMutex
	entries map[string]cachedVisits
	ttl     time.Duration
	repo    visits.Repository
	now     func() time.Time
}

var _ visits.Repository = (*VisitCache)(nil)

// NewVisitCache creates a VisitCache backed by repo.
func NewVisitCache(repo visits.Repository, ttl time.Duration) *VisitCache {
	return &VisitCache{
		entries: make(map[string]cachedVisits),
		ttl:     ttl,
		repo:    repo,
		now:     time.Now,
	}
}

func (c *VisitCache) lookup(userID string) ([]visits.Visit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[userID]
	if !ok || c.now().Sub(e.fetched) >= c.ttl {
		return nil, false
	}
	return e.visits, true
}

// Invalidate drops the cached list of userID so the next read reloads it.
func (c *VisitCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// ListVisits returns a snapshot of userID's visits, newest first. Callers
// must not modify the returned slice.
func (c *VisitCache) ListVisits(ctx context.Context, userID string) ([]visits.Visit, error) {
	if vs, ok := c.lookup(userID); ok {
		return vs, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[userID]; ok && c.now().Sub(e.fetched) < c.ttl {
		return e.visits, nil
	}
	vs, err := c.repo.ListVisits(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.entries[userID] = cachedVisits{visits: vs, fetched: c.now()}
	return vs, nil
}

// GetVisit reads through to the repository.
func (c *VisitCache) GetVisit(ctx context.Context, userID, id string) (visits.Visit, error) {
	return c.repo.GetVisit(ctx, userID, id)
}

// SaveVisit writes v and invalidates its owner's list.
func (c *VisitCache) SaveVisit(ctx context.Context, v visits.Visit) error {
	defer c.Invalidate(v.UserID)
	return c.repo.SaveVisit(ctx, v)
}

// DeleteVisit removes a visit and invalidates the owner's list.
func (c *VisitCache) DeleteVisit(ctx context.Context, userID, id string) error {
	defer c.Invalidate(userID)
	return c.repo.DeleteVisit(ctx, userID, id)
}
