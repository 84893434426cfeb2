package fallback

import (
	"context"
	"errors"
	"testing"

	"opecours/internal/domain/stock"
	"opecours/internal/provider"
)

type recorder struct {
	calls []string
}

func (r *recorder) ok(name string, price float64) provider.Provider {
	return provider.Func{ProviderName: name, F: func(_ context.Context, ops []stock.Operator) ([]stock.Stock, error) {
		r.calls = append(r.calls, name)
		out := make([]stock.Stock, len(ops))
		for i, op := range ops {
			out[i] = stock.Stock{Symbol: op.Symbol, CurrentPrice: price}
		}
		return out, nil
	}}
}

func (r *recorder) fail(name string, err error) provider.Provider {
	return provider.Func{ProviderName: name, F: func(context.Context, []stock.Operator) ([]stock.Stock, error) {
		r.calls = append(r.calls, name)
		return nil, err
	}}
}

func TestChain_PrimaryWins(t *testing.T) {
	r := &recorder{}
	c := New(r.ok("Finnhub", 1), r.ok("AlphaVantage", 2))

	res, err := c.FetchResult(context.Background(), stock.ActiveOperators())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "Finnhub" || len(res.Stocks) != 2 || res.Stocks[0].CurrentPrice != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(r.calls) != 1 {
		t.Fatalf("secondary should not be called: %v", r.calls)
	}
}

func TestChain_OneSymbolFailureSendsWholeBatchToSecondary(t *testing.T) {
	r := &recorder{}
	primary := provider.Func{ProviderName: "Finnhub", F: func(_ context.Context, ops []stock.Operator) ([]stock.Stock, error) {
		r.calls = append(r.calls, "Finnhub")
		return nil, stock.NoData("finnhub", ops[1], "quote is empty")
	}}
	c := New(primary, r.ok("AlphaVantage", 2))

	stocks, err := c.Fetch(context.Background(), stock.ActiveOperators())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range stocks {
		if s.CurrentPrice != 2 {
			t.Fatalf("every stock should come from the secondary, got %+v", stocks)
		}
	}
	if len(r.calls) != 2 {
		t.Fatalf("want 2 calls, got %v", r.calls)
	}
}

func TestChain_IncompleteBatchFallsThrough(t *testing.T) {
	r := &recorder{}
	short := provider.Func{ProviderName: "Short", F: func(_ context.Context, ops []stock.Operator) ([]stock.Stock, error) {
		return []stock.Stock{{Symbol: ops[0].Symbol}}, nil
	}}
	c := New(short, r.ok("Mock", 3))

	res, err := c.FetchResult(context.Background(), stock.ActiveOperators())
	if err != nil || res.Provider != "Mock" {
		t.Fatalf("want Mock, got %+v err=%v", res, err)
	}
}

func TestChain_AllFailReturnsLastError(t *testing.T) {
	r := &recorder{}
	first := errors.New("first")
	last := &stock.ServerError{Provider: "alphavantage", StatusCode: 503}
	c := New(r.fail("Finnhub", first), nil, r.fail("AlphaVantage", last))

	_, err := c.Fetch(context.Background(), stock.ActiveOperators())

	var se *stock.ServerError
	if !errors.As(err, &se) || se.StatusCode != 503 {
		t.Fatalf("want last error, got %v", err)
	}
	if errors.Is(err, first) {
		t.Fatalf("first error should not surface: %v", err)
	}
	if c.Name() != "Finnhub>AlphaVantage" {
		t.Fatalf("unexpected name %q", c.Name())
	}
}

func TestChain_CanceledContextStops(t *testing.T) {
	r := &recorder{}
	c := New(r.ok("Finnhub", 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Fetch(ctx, stock.ActiveOperators()); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("no provider should run: %v", r.calls)
	}
}

func TestChain_Empty(t *testing.T) {
	if _, err := New().Fetch(context.Background(), nil); !errors.Is(err, ErrNoProviders) {
		t.Fatalf("want ErrNoProviders, got %v", err)
	}
}
