package fallback

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"opecours/internal/domain/stock"
	"opecours/internal/provider"
)

// ErrNoProviders is returned by an empty chain.
var ErrNoProviders = errors.New("fallback: no providers configured")

// Result is a complete batch and the provider that produced it.
type Result struct {
	Provider string
	Stocks   []stock.Stock
}

// Chain tries providers in order for the whole batch.
// The first provider returning a complete batch wins. A provider that
// returns fewer stocks than operators counts as a failure.
type Chain struct {
	providers []provider.Provider
}

// New builds a chain. Nil providers are skipped.
func New(providers ...provider.Provider) *Chain {
	c := &Chain{providers: make([]provider.Provider, 0, len(providers))}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Name lists the providers in order, e.g. "Finnhub>AlphaVantage>Mock".
func (c *Chain) Name() string {
	name := ""
	for i, p := range c.providers {
		if i > 0 {
			name += ">"
		}
		name += p.Name()
	}
	return name
}

func (c *Chain) Fetch(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error) {
	res, err := c.FetchResult(ctx, operators)
	if err != nil {
		return nil, err
	}
	return res.Stocks, nil
}

// FetchResult returns the first complete batch, or the last error when
// every provider failed. A canceled ctx stops the walk early.
func (c *Chain) FetchResult(ctx context.Context, operators []stock.Operator) (Result, error) {
	if len(c.providers) == 0 {
		return Result{}, ErrNoProviders
	}

	var lastErr error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		stocks, err := p.Fetch(ctx, operators)
		if err == nil && len(stocks) < len(operators) {
			err = &stock.DataError{Provider: p.Name(), Reason: "incomplete batch"}
		}
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("fallback: provider failed")
			lastErr = err
			continue
		}
		return Result{Provider: p.Name(), Stocks: stocks}, nil
	}
	return Result{}, lastErr
}
