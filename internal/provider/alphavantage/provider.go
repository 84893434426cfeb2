package alphavantage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"opecours/internal/domain/stock"
)

type Config struct {
	Name string
	// MaxConcurrency limits concurrent operator fetches. The free plan is
	// tight, so this defaults to 1.
	MaxConcurrency int
	Clock          stock.Clock
}

// Provider fetches GLOBAL_QUOTE for each operator.
type Provider struct {
	cfg    Config
	client *Client
}

func New(cfg Config, client *Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "AlphaVantage"
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = stock.MarketClock(nil)
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Fetch returns one stock per operator, in input order, or the first error.
func (p *Provider) Fetch(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error) {
	out := make([]stock.Stock, len(operators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)
	for i, op := range operators {
		g.Go(func() error {
			env, err := p.client.GetGlobalQuote(gctx, op.Symbol)
			if err != nil {
				return fmt.Errorf("%s %s: %w", p.cfg.Name, op.Symbol, err)
			}
			s, err := EnvelopeToStock(op, env, p.cfg.Clock())
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
