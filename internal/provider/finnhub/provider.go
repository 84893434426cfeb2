package finnhub

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"opecours/internal/domain/stock"
)

type Config struct {
	Name string
	// HistoryWindow is how far back candles are requested. Defaults to 7 days.
	HistoryWindow time.Duration
	// MaxConcurrency limits concurrent operator fetches. Defaults to 4.
	MaxConcurrency int
	// Clock stamps market status. Defaults to local wall time.
	Clock stock.Clock
}

// Provider fetches quote plus candle history for each operator.
type Provider struct {
	cfg    Config
	client *Client
}

func New(cfg Config, client *Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Finnhub"
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 7 * 24 * time.Hour
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Clock == nil {
		cfg.Clock = stock.MarketClock(nil)
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Fetch returns one stock per operator, in input order. Any failing
// operator fails the whole batch.
func (p *Provider) Fetch(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error) {
	out := make([]stock.Stock, len(operators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)
	for i, op := range operators {
		g.Go(func() error {
			s, err := p.fetchOne(gctx, op)
			if err != nil {
				return fmt.Errorf("%s %s: %w", p.cfg.Name, op.Symbol, err)
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

func (p *Provider) fetchOne(ctx context.Context, op stock.Operator) (stock.Stock, error) {
	quote, err := p.client.GetQuote(ctx, op.Symbol)
	if err != nil {
		return stock.Stock{}, err
	}
	if !quote.Valid() {
		return stock.Stock{}, stock.NoData(providerName, op, "invalid quote")
	}

	now := p.cfg.Clock()
	from := now.Add(-p.cfg.HistoryWindow).Unix()
	candles, err := p.client.GetCandles(ctx, op.Symbol, ResolutionDaily, from, now.Unix())
	if err != nil {
		// History is decorative; the quote stands on its own.
		log.Debug().Err(err).Str("symbol", op.Symbol).Msg("finnhub: candles unavailable")
		candles = nil
	}

	return QuoteToStock(op, *quote, CandleCloses(candles), LatestVolume(candles), now)
}
