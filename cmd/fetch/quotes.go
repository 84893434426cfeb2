package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"opecours/internal/app"
	"opecours/internal/domain/stock"
	"opecours/internal/provider"
)

const (
	sourceChain        = "chain"
	sourceFinnhub      = "finnhub"
	sourceAlphaVantage = "alphavantage"
	sourceMock         = "mock"
)

type quotesOptions struct {
	source  string
	asJSON  bool
	timeout time.Duration
}

func newQuotesCmd(root *rootOptions) *cobra.Command {
	opts := &quotesOptions{}
	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Fetch quotes for every active operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			providers, err := app.BuildProviders(cfg, stock.MarketClock(loc))
			if err != nil {
				return err
			}
			p, err := pickSource(providers, opts.source, cfg.Refresh.MockFallback)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			stocks, err := p.Fetch(ctx, stock.ActiveOperators())
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), stocks)
			}
			return writeTable(cmd.OutOrStdout(), stocks, loc)
		},
	}
	cmd.Flags().StringVar(&opts.source, "source", sourceChain, "chain, finnhub, alphavantage or mock")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}

func pickSource(p app.Providers, source string, mockFallback bool) (provider.Provider, error) {
	var out provider.Provider
	switch source {
	case sourceChain:
		return p.Chain(mockFallback), nil
	case sourceFinnhub:
		out = p.Primary
	case sourceAlphaVantage:
		out = p.Secondary
	case sourceMock:
		return p.Mock, nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
	if out == nil {
		return nil, fmt.Errorf("source %q is disabled or has no API key", source)
	}
	return out, nil
}

func writeJSON(w io.Writer, stocks []stock.Stock) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(stocks)
}

func writeTable(w io.Writer, stocks []stock.Stock, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tOPERATOR\tPRICE\tCHANGE\tCHANGE %\tVOLUME\tUPDATED")
	for _, s := range stocks {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%+.2f\t%+.2f%%\t%d\t%s\n",
			s.Symbol,
			s.OperatorName,
			s.CurrentPrice,
			s.Change,
			s.ChangePercent,
			s.Volume,
			time.UnixMilli(s.LastUpdateEpochMillis).In(loc).Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}
