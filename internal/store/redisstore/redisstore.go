// Package redisstore keeps the snapshot in a single Redis hash.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"opecours/internal/domain/stock"
)

// DefaultKey is the hash holding the snapshot, field = symbol.
const DefaultKey = "opecours:stocks"

var _ stock.Store = (*Store)(nil)

type Store struct {
	client redis.UniversalClient
	key    string
}

// New returns a store writing to key. An empty key means DefaultKey.
func New(client redis.UniversalClient, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

func (s *Store) All(ctx context.Context) ([]stock.Stock, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.key, err)
	}

	out := make([]stock.Stock, 0, len(fields))
	for symbol, payload := range fields {
		var st stock.Stock
		if err := json.Unmarshal([]byte(payload), &st); err != nil {
			return nil, fmt.Errorf("decode %s: %w", symbol, err)
		}
		st.HistoricalPrices = stock.TrimHistory(st.HistoricalPrices)
		out = append(out, st)
	}
	stock.SortByRegistry(out)
	return out, nil
}

// ReplaceAll runs DEL then HSET inside MULTI/EXEC.
func (s *Store) ReplaceAll(ctx context.Context, stocks []stock.Stock) error {
	values := make([]any, 0, len(stocks)*2)
	for _, st := range stocks {
		st.HistoricalPrices = stock.TrimHistory(st.HistoricalPrices)
		b, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode %s: %w", st.Symbol, err)
		}
		values = append(values, st.Symbol, string(b))
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
