package stock

import "context"

// Store persists the last known snapshot, one row per symbol.
type Store interface {
	// All returns every cached row. An empty store returns no error.
	All(ctx context.Context) ([]Stock, error)

	// ReplaceAll atomically swaps the whole snapshot for stocks.
	// Readers observe either the previous or the new set, never a mix.
	ReplaceAll(ctx context.Context, stocks []Stock) error
}
