package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"opecours/internal/domain/stock"
	"opecours/internal/provider"
	"opecours/internal/provider/cache"
)

type scripted struct {
	calls int
	errs  []error
}

func (s *scripted) provider() provider.Provider {
	return provider.Func{ProviderName: "scripted", F: func(_ context.Context, ops []stock.Operator) ([]stock.Stock, error) {
		s.calls++
		if len(s.errs) >= s.calls && s.errs[s.calls-1] != nil {
			return nil, s.errs[s.calls-1]
		}
		out := make([]stock.Stock, len(ops))
		for i, op := range ops {
			out[i] = stock.Stock{Symbol: op.Symbol, CurrentPrice: float64(s.calls), HistoricalPrices: []float64{1, 2}}
		}
		return out, nil
	}}
}

func TestProvider_ServesWithinTTL(t *testing.T) {
	t.Parallel()

	// Arrange
	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	up := &scripted{}
	c := &cache.Provider{P: up.provider(), TTL: time.Minute, Now: func() time.Time { return now }}
	ops := stock.ActiveOperators()

	// Act
	first, err := c.Fetch(t.Context(), ops)
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	second, err := c.Fetch(t.Context(), ops)
	require.NoError(t, err)
	now = now.Add(time.Minute)
	third, err := c.Fetch(t.Context(), ops)
	require.NoError(t, err)

	// Assert
	require.Equal(t, first, second)
	require.Equal(t, 2.0, third[0].CurrentPrice)
	require.Equal(t, 2, up.calls)
	require.Equal(t, "scripted", c.Name())
}

func TestProvider_PartialCoverageRefetchesWholeBatch(t *testing.T) {
	t.Parallel()

	up := &scripted{}
	c := &cache.Provider{P: up.provider(), TTL: time.Minute}
	ops := stock.ActiveOperators()

	_, err := c.Fetch(t.Context(), ops[:1])
	require.NoError(t, err)
	stocks, err := c.Fetch(t.Context(), ops)
	require.NoError(t, err)

	require.Equal(t, 2, up.calls)
	require.Len(t, stocks, len(ops))
	for _, s := range stocks {
		require.Equal(t, 2.0, s.CurrentPrice)
	}
}

func TestProvider_ErrorNeverReturnsPartialBatch(t *testing.T) {
	t.Parallel()

	boom := errors.New("upstream down")
	up := &scripted{errs: []error{nil, boom}}
	c := &cache.Provider{P: up.provider(), TTL: time.Minute}
	ops := stock.ActiveOperators()

	_, err := c.Fetch(t.Context(), ops[:1])
	require.NoError(t, err)
	stocks, err := c.Fetch(t.Context(), ops)

	require.ErrorIs(t, err, boom)
	require.Nil(t, stocks)
}

func TestProvider_ReturnsCopies(t *testing.T) {
	t.Parallel()

	up := &scripted{}
	c := &cache.Provider{P: up.provider(), TTL: time.Minute}
	ops := stock.ActiveOperators()

	first, err := c.Fetch(t.Context(), ops)
	require.NoError(t, err)
	first[0].HistoricalPrices[0] = 99

	second, err := c.Fetch(t.Context(), ops)
	require.NoError(t, err)
	require.Equal(t, 1.0, second[0].HistoricalPrices[0])
}

func TestProvider_InvalidateAndZeroTTL(t *testing.T) {
	t.Parallel()

	up := &scripted{}
	c := &cache.Provider{P: up.provider(), TTL: time.Minute}
	ops := stock.ActiveOperators()

	_, _ = c.Fetch(t.Context(), ops)
	c.Invalidate()
	_, _ = c.Fetch(t.Context(), ops)
	require.Equal(t, 2, up.calls)

	passthrough := &cache.Provider{P: up.provider()}
	_, _ = passthrough.Fetch(t.Context(), ops)
	_, _ = passthrough.Fetch(t.Context(), ops)
	require.Equal(t, 4, up.calls)
}
