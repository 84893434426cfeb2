package finnhub

import (
	"time"

	"opecours/internal/domain/stock"
)

// QuoteToStock maps a Finnhub quote onto op. Change figures are taken as
// supplied by Finnhub; history and volume come from a separate candle call.
func QuoteToStock(op stock.Operator, q Quote, history []float64, volume int64, now time.Time) (stock.Stock, error) {
	if !q.Valid() {
		return stock.Stock{}, stock.NoData(providerName, op, "invalid quote")
	}
	return stock.Stock{
		Symbol:                op.Symbol,
		OperatorName:          op.DisplayName,
		CurrentPrice:          q.CurrentPrice,
		OpenPrice:             q.OpenPrice,
		PreviousClose:         q.PreviousClose,
		Change:                q.Change,
		ChangePercent:         q.ChangePercent,
		LastUpdateEpochMillis: q.Timestamp * 1000,
		IsMarketOpen:          stock.IsMarketOpen(now),
		HistoricalPrices:      stock.TrimHistory(history),
		Volume:                volume,
	}, nil
}

// CandleCloses returns the trailing closes of c, oldest first.
// Invalid responses yield an empty series.
func CandleCloses(c *Candles) []float64 {
	if c == nil || !c.Valid() {
		return []float64{}
	}
	return stock.TrimHistory(c.Close)
}

// LatestVolume returns the volume of the most recent candle, or 0.
func LatestVolume(c *Candles) int64 {
	if c == nil || !c.Valid() || len(c.Volume) == 0 {
		return 0
	}
	return int64(c.Volume[len(c.Volume)-1])
}
