package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"

	"opecours/internal/domain/stock"
)

// Envelope is the /query?function=GLOBAL_QUOTE response. Alpha Vantage
// answers throttled or rejected calls with 200 OK and one of the message
// fields instead of a quote.
type Envelope struct {
	GlobalQuote  *GlobalQuote `json:"Global Quote"`
	ErrorMessage string       `json:"Error Message"`
	Note         string       `json:"Note"`
	Information  string       `json:"Information"`
}

// GlobalQuote carries every number as text.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

// Message returns the advisory text carried instead of data, if any.
func (e Envelope) Message() string {
	switch {
	case e.ErrorMessage != "":
		return e.ErrorMessage
	case e.Note != "":
		return e.Note
	default:
		return e.Information
	}
}

// GetGlobalQuote retrieves the GLOBAL_QUOTE envelope for symbol.
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string, opts ...ClientOption) (*Envelope, error) {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	query.Set("function", "GLOBAL_QUOTE")
	query.Set("symbol", symbol)

	url := fmt.Sprintf("%s/query?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", &stock.TransportError{Provider: providerName, Err: err})
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, &stock.ServerError{Provider: providerName, StatusCode: res.StatusCode, Body: string(b)}
	}

	var envelope Envelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, &stock.DataError{Provider: providerName, Reason: "decoding global quote", Err: err}
	}
	return &envelope, nil
}
