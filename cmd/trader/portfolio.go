package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tradeEngine/internal/portfolio"
	"tradeEngine/internal/pricefeed"
	"tradeEngine/internal/swap"
)

func newPortfolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio [owner]",
		Short: "Show token balances and their USD value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.client == nil {
				return fmt.Errorf("portfolio requires --rpc")
			}
			owner := a.wallet
			if len(args) == 1 {
				owner = args[0]
			}
			if owner == "" {
				return swap.ErrNotConnected
			}

			var feed portfolio.PriceFeed
			if a.cfg.PriceFeedURL != "" {
				feed = pricefeed.NewClient(a.cfg.PriceFeedURL, a.cfg.RPCTimeout, 0, a.logger.Named("prices"))
			}
			svc := portfolio.NewService(a.client, a.registry.Tokens(), feed, 0, a.logger.Named("portfolio"))
			summary, err := svc.Portfolio(ctx, owner)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tBALANCE\tPRICE\tVALUE")
			for _, b := range summary.Balances {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					b.Token.Symbol, swap.FormatTokenAmount(b.Formatted, 6), swap.FormatUSD(b.PriceUSD), swap.FormatUSD(b.ValueUSD))
			}
			fmt.Fprintf(w, "TOTAL\t\t\t%s\n", swap.FormatUSD(summary.TotalValueUSD))
			return w.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "print the summary as JSON")
	return cmd
}
