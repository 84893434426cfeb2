package cache

import (
	"context"
	"sync"
	"time"

	"opecours/internal/domain/stock"
	"opecours/internal/provider"
)

// entry stores the cached stock for a single symbol with expiry.
type entry struct {
	expiresAt time.Time
	stock     stock.Stock
}

// Provider memoizes batches for a TTL.
// A batch is served from memory only when every requested symbol is fresh;
// otherwise the whole batch is fetched again. A failed fetch returns the
// error, never a partial batch.
type Provider struct {
	P   provider.Provider
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time

	mu    sync.RWMutex
	items map[string]entry
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Fetch returns stocks for operators, using the memo when it covers the batch.
func (c *Provider) Fetch(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error) {
	if c.TTL <= 0 {
		return c.P.Fetch(ctx, operators)
	}

	now := c.now()
	if cached, ok := c.lookup(operators, now); ok {
		return cached, nil
	}

	fresh, err := c.P.Fetch(ctx, operators)
	if err != nil {
		return nil, err
	}

	expiry := now.Add(c.TTL)
	c.mu.Lock()
	if c.items == nil {
		c.items = make(map[string]entry, len(fresh))
	}
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
		}
	}
	for _, s := range fresh {
		c.items[s.Symbol] = entry{expiresAt: expiry, stock: s.Clone()}
	}
	c.mu.Unlock()

	return fresh, nil
}

func (c *Provider) lookup(operators []stock.Operator, now time.Time) ([]stock.Stock, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]stock.Stock, 0, len(operators))
	for _, op := range operators {
		e, ok := c.items[op.Symbol]
		if !ok || !now.Before(e.expiresAt) {
			return nil, false
		}
		out = append(out, e.stock.Clone())
	}
	return out, true
}

// Invalidate drops every memoized entry.
func (c *Provider) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}
