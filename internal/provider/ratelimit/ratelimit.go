package ratelimit

import (
	"context"
	"sync"
	"time"

	"opecours/internal/domain/stock"
	"opecours/internal/provider"
)

// MinInterval spaces batch starts at least Interval apart.
// Each caller reserves the next free slot before sleeping, so concurrent
// callers are serialized in arrival order. A caller whose context ends
// before its slot gives the slot back when nobody queued behind it.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Fetch(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error) {
	if m.Interval <= 0 {
		return m.P.Fetch(ctx, operators)
	}

	slot, prev := m.reserve(time.Now())
	if wait := time.Until(slot); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			m.release(slot, prev)
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return m.P.Fetch(ctx, operators)
}

func (m *MinInterval) reserve(now time.Time) (slot, prev time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev = m.next
	slot = now
	if m.next.After(now) {
		slot = m.next
	}
	m.next = slot.Add(m.Interval)
	return slot, prev
}

func (m *MinInterval) release(slot, prev time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next.Equal(slot.Add(m.Interval)) {
		m.next = prev
	}
}
