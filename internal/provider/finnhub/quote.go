package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"strconv"

	"opecours/internal/domain/stock"
)

// Quote is the /quote payload.
type Quote struct {
	CurrentPrice  float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	HighPrice     float64 `json:"h"`
	LowPrice      float64 `json:"l"`
	OpenPrice     float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"` // unix seconds
}

// Valid reports whether the quote carries a usable price.
// Finnhub answers unknown symbols with an all-zero body and 200 OK.
func (q Quote) Valid() bool {
	return q.CurrentPrice > 0 &&
		!math.IsNaN(q.CurrentPrice) &&
		!math.IsInf(q.CurrentPrice, 0) &&
		q.Timestamp > 0
}

// Candles is the /stock/candle payload.
type Candles struct {
	Close     []float64 `json:"c"`
	High      []float64 `json:"h"`
	Low       []float64 `json:"l"`
	Open      []float64 `json:"o"`
	Timestamp []int64   `json:"t"`
	Volume    []float64 `json:"v"`
	Status    string    `json:"s"` // "ok" or "no_data"
}

// Valid reports whether the candle response carries closes.
func (c Candles) Valid() bool {
	return c.Status == "ok" && len(c.Close) > 0
}

// ResolutionDaily is the daily candle resolution.
const ResolutionDaily = "D"

// GetQuote retrieves the latest quote for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string, opts ...ClientOption) (*Quote, error) {
	query := map[string]string{"symbol": symbol}

	var quote Quote
	if err := c.get(ctx, "/quote", query, &quote, opts); err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetCandles retrieves candles for symbol between from and to (unix seconds).
func (c *Client) GetCandles(ctx context.Context, symbol, resolution string, from, to int64, opts ...ClientOption) (*Candles, error) {
	query := map[string]string{
		"symbol":     symbol,
		"resolution": resolution,
		"from":       strconv.FormatInt(from, 10),
		"to":         strconv.FormatInt(to, 10),
	}

	var candles Candles
	if err := c.get(ctx, "/stock/candle", query, &candles, opts); err != nil {
		return nil, err
	}
	return &candles, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any, opts []ClientOption) error {
	override := c.override(opts)

	query := maps.Clone(override.query)
	for k, v := range params {
		query.Set(k, v)
	}

	url := fmt.Sprintf("%s%s?%s", override.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", &stock.TransportError{Provider: providerName, Err: err})
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return &stock.ServerError{Provider: providerName, StatusCode: res.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &stock.DataError{Provider: providerName, Reason: "decoding " + path, Err: err}
	}
	return nil
}
