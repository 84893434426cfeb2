// Package postgres persists the snapshot in a single "stocks" table.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"opecours/internal/domain/stock"
)

const schema = `
CREATE TABLE IF NOT EXISTS stocks (
	symbol            TEXT PRIMARY KEY,
	operator_name     TEXT NOT NULL,
	current_price     DOUBLE PRECISION NOT NULL,
	open_price        DOUBLE PRECISION NOT NULL,
	previous_close    DOUBLE PRECISION NOT NULL,
	change            DOUBLE PRECISION NOT NULL,
	change_percent    DOUBLE PRECISION NOT NULL,
	last_update       BIGINT NOT NULL,
	is_market_open    BOOLEAN NOT NULL,
	historical_prices TEXT NOT NULL DEFAULT '',
	volume            BIGINT NOT NULL
)`

var _ stock.Store = (*Store)(nil)

// Store implements stock.Store on a pgx pool.
type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Options tunes the pool opened by Connect.
type Options struct {
	MaxConns int32
	// LogLevel is a zerolog level name; queries are traced at debug.
	LogLevel string
}

// Connect opens a pool for databaseURL, traces queries onto logger and
// verifies the connection.
func Connect(ctx context.Context, databaseURL string, opts Options, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   NewZerologAdapter(logger),
		LogLevel: traceLevel(opts.LogLevel),
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("host", poolConfig.ConnConfig.Host).Msg("postgres connected")
	return pool, nil
}

// EnsureSchema creates the stocks table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create stocks table: %w", err)
	}
	return nil
}

func (s *Store) All(ctx context.Context) ([]stock.Stock, error) {
	query := `
		SELECT symbol, operator_name, current_price, open_price, previous_close,
		       change, change_percent, last_update, is_market_open, historical_prices, volume
		FROM stocks
		ORDER BY symbol
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	var out []stock.Stock
	for rows.Next() {
		var (
			st      stock.Stock
			history string
		)
		err := rows.Scan(
			&st.Symbol,
			&st.OperatorName,
			&st.CurrentPrice,
			&st.OpenPrice,
			&st.PreviousClose,
			&st.Change,
			&st.ChangePercent,
			&st.LastUpdateEpochMillis,
			&st.IsMarketOpen,
			&history,
			&st.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		st.HistoricalPrices = DecodeHistory(history)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stocks: %w", err)
	}
	stock.SortByRegistry(out)
	return out, nil
}

// ReplaceAll deletes every row and inserts stocks in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, stocks []stock.Stock) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM stocks`); err != nil {
			return fmt.Errorf("delete stocks: %w", err)
		}

		insert := `
			INSERT INTO stocks (
				symbol, operator_name, current_price, open_price, previous_close,
				change, change_percent, last_update, is_market_open, historical_prices, volume
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (symbol) DO UPDATE SET
				operator_name = EXCLUDED.operator_name,
				current_price = EXCLUDED.current_price,
				open_price = EXCLUDED.open_price,
				previous_close = EXCLUDED.previous_close,
				change = EXCLUDED.change,
				change_percent = EXCLUDED.change_percent,
				last_update = EXCLUDED.last_update,
				is_market_open = EXCLUDED.is_market_open,
				historical_prices = EXCLUDED.historical_prices,
				volume = EXCLUDED.volume
		`
		batch := &pgx.Batch{}
		for _, st := range stocks {
			batch.Queue(insert,
				st.Symbol,
				st.OperatorName,
				st.CurrentPrice,
				st.OpenPrice,
				st.PreviousClose,
				st.Change,
				st.ChangePercent,
				st.LastUpdateEpochMillis,
				st.IsMarketOpen,
				EncodeHistory(st.HistoricalPrices),
				st.Volume,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert stocks: %w", err)
		}
		return nil
	})
}

// EncodeHistory joins the trailing five prices with commas.
func EncodeHistory(prices []float64) string {
	prices = stock.TrimHistory(prices)
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// DecodeHistory is the inverse of EncodeHistory. Unparseable entries are
// skipped and the empty string yields an empty series.
func DecodeHistory(s string) []float64 {
	out := []float64{}
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return stock.TrimHistory(out)
}
