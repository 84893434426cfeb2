package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"opecours/internal/domain/stock"
)

func newMarketCmd(root *rootOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Print whether the exchange is open",
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
			now := stock.MarketClock(loc)()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t.In(loc)
			}

			status := "closed"
			if stock.IsMarketOpen(now) {
				status = "open"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", status, now.Format("Mon 2006-01-02 15:04 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 instant to check instead of now")
	return cmd
}
