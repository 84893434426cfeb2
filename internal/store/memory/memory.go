// Package memory is an in-process snapshot store.
package memory

import (
	"context"
	"sync"

	"opecours/internal/domain/stock"
)

var _ stock.Store = (*Store)(nil)

// Store keeps one snapshot and swaps it whole on ReplaceAll.
type Store struct {
	mu     sync.RWMutex
	stocks []stock.Stock
}

func New() *Store { return &Store{} }

func (s *Store) All(_ context.Context) ([]stock.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stock.CloneAll(s.stocks), nil
}

// ReplaceAll drops every row and stores stocks. Duplicate symbols keep the
// last occurrence.
func (s *Store) ReplaceAll(_ context.Context, stocks []stock.Stock) error {
	next := dedupe(stocks)
	s.mu.Lock()
	s.stocks = next
	s.mu.Unlock()
	return nil
}

func dedupe(stocks []stock.Stock) []stock.Stock {
	index := make(map[string]int, len(stocks))
	out := make([]stock.Stock, 0, len(stocks))
	for _, st := range stocks {
		if i, ok := index[st.Symbol]; ok {
			out[i] = st.Clone()
			continue
		}
		index[st.Symbol] = len(out)
		out = append(out, st.Clone())
	}
	return out
}
