// Package synthetic produces plausible offline quotes for the operator
// registry. Output is deterministic within a 15 minute window.
package synthetic

import (
	"context"
	"math/rand/v2"
	"time"

	"opecours/internal/domain/stock"
)

// Window is the period over which generated prices stay stable.
const Window = 15 * time.Minute

const (
	defaultBasePrice = 10.0
	minVolume        = 1_000_000
	maxVolume        = 5_000_000
)

var basePrices = map[string]float64{
	"ORA.PA": 14.16,
	"EN.PA":  41.16,
	"ILD.PA": 182.00,
}

// BasePrice returns the reference price used for symbol.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return defaultBasePrice
}

// Generator builds mock stocks. It never fails and performs no I/O.
type Generator struct {
	name  string
	clock stock.Clock
}

func New(clock stock.Clock) *Generator {
	if clock == nil {
		clock = stock.MarketClock(nil)
	}
	return &Generator{name: "Mock", clock: clock}
}

func (g *Generator) Name() string { return g.name }

// Fetch ignores ctx and returns mock stocks for the active members of
// operators, in order.
func (g *Generator) Fetch(_ context.Context, operators []stock.Operator) ([]stock.Stock, error) {
	return generate(operators, g.clock()), nil
}

// Generate returns mock stocks for every active operator at now.
func (g *Generator) Generate(now time.Time) []stock.Stock {
	return generate(stock.ActiveOperators(), now)
}

func generate(operators []stock.Operator, now time.Time) []stock.Stock {
	bucket := uint64(now.UnixMilli() / Window.Milliseconds())
	out := make([]stock.Stock, 0, len(operators))
	for _, op := range operators {
		if !op.Active {
			continue
		}
		out = append(out, mockStock(op, bucket+uint64(len(out)), now))
	}
	return out
}

func mockStock(op stock.Operator, seed uint64, now time.Time) stock.Stock {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := BasePrice(op.Symbol)

	current := base * (1 + (r.Float64()-0.5)*0.04)
	previousClose := base * (1 + (r.Float64()-0.5)*0.02)

	history := make([]float64, stock.MaxHistory)
	price := base * 0.98
	for i := range history {
		price *= 1 + (r.Float64()-0.5)*0.03
		history[i] = price
	}
	history[len(history)-1] = current

	change := current - previousClose
	return stock.Stock{
		Symbol:                op.Symbol,
		OperatorName:          op.DisplayName,
		CurrentPrice:          current,
		OpenPrice:             previousClose + change*0.3,
		PreviousClose:         previousClose,
		Change:                change,
		ChangePercent:         stock.PercentChange(change, previousClose),
		LastUpdateEpochMillis: now.UnixMilli(),
		IsMarketOpen:          stock.IsMarketOpen(now),
		HistoricalPrices:      history,
		Volume:                minVolume + r.Int64N(maxVolume-minVolume+1),
	}
}
