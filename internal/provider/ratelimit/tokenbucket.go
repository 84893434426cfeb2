package ratelimit

import (
	"context"
	"sync"
	"time"

	"opecours/internal/domain/stock"
	"opecours/internal/provider"
)

// TokenBucket is a token bucket limiter.
//   - rate: tokens per second
//   - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// PerMinute builds a bucket for an upstream plan quoted in requests per
// minute. The full minute is available as burst.
func PerMinute(rpm int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60, rpm)
}

// Wait takes n tokens at once and blocks until the bucket has paid them
// back. The balance may go negative, so n larger than the burst still
// completes. When ctx ends first the n tokens are returned.
func (tb *TokenBucket) Wait(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	tb.mu.Lock()
	tb.refill(time.Now())
	tb.tokens -= float64(n)
	deficit := -tb.tokens
	tb.mu.Unlock()

	if deficit <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(deficit / tb.rate * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		tb.mu.Lock()
		tb.refill(time.Now())
		tb.tokens = min(tb.tokens+float64(n), tb.capacity)
		tb.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// refill credits the tokens earned since the last call. Callers hold mu.
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.last).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens = min(tb.tokens+elapsed*tb.rate, tb.capacity)
	tb.last = now
}

// TokenBucketProvider wraps a Provider and gates calls using a token bucket.
// CostPerOperator tokens are taken for every operator in the batch, so a
// Finnhub batch (quote + candles) costs 2 per operator.
type TokenBucketProvider struct {
	P               provider.Provider
	TB              *TokenBucket
	CostPerOperator int
}

func (t *TokenBucketProvider) Name() string { return t.P.Name() }

func (t *TokenBucketProvider) Fetch(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error) {
	if t.TB != nil {
		cost := max(t.CostPerOperator, 1) * len(operators)
		if err := t.TB.Wait(ctx, cost); err != nil {
			return nil, err
		}
	}
	return t.P.Fetch(ctx, operators)
}
