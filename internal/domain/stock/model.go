package stock

import "math"

// MaxHistory is the number of historical closes kept on a Stock.
const MaxHistory = 5

// Stock is the canonical quote record shared by every provider.
// Values are never mutated after construction; a new fetch builds a new Stock.
type Stock struct {
	Symbol                string    `json:"symbol"`
	OperatorName          string    `json:"operator_name"`
	CurrentPrice          float64   `json:"current_price"`
	OpenPrice             float64   `json:"open_price"`
	PreviousClose         float64   `json:"previous_close"`
	Change                float64   `json:"change"`
	ChangePercent         float64   `json:"change_percent"`
	LastUpdateEpochMillis int64     `json:"last_update"`
	IsMarketOpen          bool      `json:"is_market_open"`
	HistoricalPrices      []float64 `json:"historical_prices"`
	Volume                int64     `json:"volume"`
}

// Clone returns a deep copy of s.
func (s Stock) Clone() Stock {
	s.HistoricalPrices = TrimHistory(s.HistoricalPrices)
	return s
}

// TrimHistory copies the trailing MaxHistory values of prices, oldest first.
// It never returns nil.
func TrimHistory(prices []float64) []float64 {
	if len(prices) > MaxHistory {
		prices = prices[len(prices)-MaxHistory:]
	}
	out := make([]float64, len(prices))
	copy(out, prices)
	return out
}

// PercentChange returns change relative to previousClose in percent.
// A zero (or non-finite) previous close yields 0.
func PercentChange(change, previousClose float64) float64 {
	if previousClose == 0 || math.IsNaN(previousClose) || math.IsInf(previousClose, 0) {
		return 0
	}
	p := change / previousClose * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// CloneAll deep-copies a batch.
func CloneAll(stocks []Stock) []Stock {
	if stocks == nil {
		return nil
	}
	out := make([]Stock, len(stocks))
	for i, s := range stocks {
		out[i] = s.Clone()
	}
	return out
}
