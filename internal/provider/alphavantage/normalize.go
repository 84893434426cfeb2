package alphavantage

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"opecours/internal/domain/stock"
)

// EnvelopeToStock maps a GLOBAL_QUOTE envelope onto op.
//
// Only an all-blank quote object is rejected. Unparseable numbers, the price
// included, fall back to 0, except open and previous close which
// fall back to the current price. Change figures are recomputed only when
// they cannot be parsed. The quote endpoint carries no history, so the
// series is interpolated between previous close and current price.
func EnvelopeToStock(op stock.Operator, env *Envelope, now time.Time) (stock.Stock, error) {
	if env == nil || env.GlobalQuote == nil || env.GlobalQuote.blank() {
		reason := "empty Global Quote"
		if env != nil && env.Message() != "" {
			reason = env.Message()
		}
		return stock.Stock{}, stock.NoData(providerName, op, reason)
	}
	gq := env.GlobalQuote

	current, _ := parseNumber(gq.Price)
	open, ok := parseNumber(gq.Open)
	if !ok {
		open = current
	}
	previousClose, ok := parseNumber(gq.PreviousClose)
	if !ok {
		previousClose = current
	}
	change, ok := parseNumber(gq.Change)
	if !ok {
		change = current - previousClose
	}
	changePercent, ok := parseNumber(gq.ChangePercent)
	if !ok {
		changePercent = stock.PercentChange(change, previousClose)
	}

	return stock.Stock{
		Symbol:                op.Symbol,
		OperatorName:          op.DisplayName,
		CurrentPrice:          current,
		OpenPrice:             open,
		PreviousClose:         previousClose,
		Change:                change,
		ChangePercent:         changePercent,
		LastUpdateEpochMillis: now.UnixMilli(),
		IsMarketOpen:          stock.IsMarketOpen(now),
		HistoricalPrices:      LinearHistory(previousClose, current),
		Volume:                parseVolume(gq.Volume),
	}, nil
}

// blank reports a quote object with no populated field, which is what the
// API sends for an unknown symbol.
func (gq *GlobalQuote) blank() bool {
	for _, v := range []string{
		gq.Symbol, gq.Open, gq.High, gq.Low, gq.Price, gq.Volume,
		gq.LatestTradingDay, gq.PreviousClose, gq.Change, gq.ChangePercent,
	} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// LinearHistory returns five evenly spaced points from previousClose to
// current. It approximates a chart, it is not market history.
func LinearHistory(previousClose, current float64) []float64 {
	step := (current - previousClose) / float64(stock.MaxHistory-1)
	out := make([]float64, stock.MaxHistory)
	for i := range out {
		out[i] = previousClose + step*float64(i)
	}
	out[len(out)-1] = current
	return out
}

// parseNumber parses numeric text such as "14.1600" or "-0.8451%".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func parseVolume(s string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.IntPart()
}
