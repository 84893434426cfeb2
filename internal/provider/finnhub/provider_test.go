package finnhub_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"opecours/internal/domain/stock"
	"opecours/internal/provider/finnhub"
)

func fixedClock() time.Time { return time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC) }

func routeRequests(t *testing.T, quoteStatus map[string]int, candlesFail bool) func(*http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		symbol := req.URL.Query().Get("symbol")
		switch {
		case strings.HasSuffix(req.URL.Path, "/quote"):
			if status, ok := quoteStatus[symbol]; ok && status != http.StatusOK {
				return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("boom"))}, nil
			}
			return jsonResponse(t, http.StatusOK, map[string]any{
				"c": 10.5, "d": 0.5, "dp": 5.0, "o": 10.1, "pc": 10.0, "t": 1736150400,
			}), nil
		case strings.HasSuffix(req.URL.Path, "/stock/candle"):
			if candlesFail {
				return nil, errors.New("candles: connection reset")
			}
			return jsonResponse(t, http.StatusOK, map[string]any{
				"c": []float64{9, 9.5, 9.8, 10, 10.2, 10.4}, "v": []float64{1, 2, 3, 4, 5, 777}, "s": "ok",
			}), nil
		}
		t.Fatalf("unexpected path %s", req.URL.Path)
		return nil, nil
	}
}

func TestProviderFetch_OnePerOperatorInOrder(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(routeRequests(t, nil, false)).Times(4)

	client, err := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)
	p := finnhub.New(finnhub.Config{Clock: fixedClock}, client)

	// Act
	stocks, err := p.Fetch(t.Context(), stock.ActiveOperators())

	// Assert
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	require.Equal(t, "ORA.PA", stocks[0].Symbol)
	require.Equal(t, "EN.PA", stocks[1].Symbol)
	for _, s := range stocks {
		require.Equal(t, []float64{9.5, 9.8, 10, 10.2, 10.4}, s.HistoricalPrices)
		require.Equal(t, int64(777), s.Volume)
		require.True(t, s.IsMarketOpen)
	}
}

func TestProviderFetch_CandleFailureKeepsQuote(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(routeRequests(t, nil, true)).Times(4)

	client, err := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)
	p := finnhub.New(finnhub.Config{Clock: fixedClock}, client)

	stocks, err := p.Fetch(t.Context(), stock.ActiveOperators())
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	for _, s := range stocks {
		require.Empty(t, s.HistoricalPrices)
		require.Equal(t, int64(0), s.Volume)
		require.InEpsilon(t, 10.5, s.CurrentPrice, 0.0001)
	}
}

func TestProviderFetch_OneOperatorFailsWholeBatch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(routeRequests(t, map[string]int{"EN.PA": http.StatusInternalServerError}, false)).
		AnyTimes()

	client, err := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))
	require.NoError(t, err)
	p := finnhub.New(finnhub.Config{Clock: fixedClock}, client)

	stocks, err := p.Fetch(t.Context(), stock.ActiveOperators())
	require.Nil(t, stocks)

	var se *stock.ServerError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
}
