package provider

import (
	"context"

	"opecours/internal/domain/stock"
)

// Provider fetches quotes for a batch of operators.
// A batch either completes for every operator or fails as a whole.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error)
}

// Func adapts a plain function to the Provider interface.
type Func struct {
	ProviderName string
	F            func(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error)
}

func (f Func) Name() string { return f.ProviderName }

func (f Func) Fetch(ctx context.Context, operators []stock.Operator) ([]stock.Stock, error) {
	return f.F(ctx, operators)
}
