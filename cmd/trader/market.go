package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/model"
	"tradeEngine/internal/quote"
	"tradeEngine/internal/swap"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newPoolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pools",
		Short: "List configured pools and their ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PAIR\tFEE\tTICK_SPACING\tPOOL_ID")
			for _, pool := range a.registry.Pools() {
				fmt.Fprintf(w, "%s/%s\t%d\t%d\t%s\n",
					pool.Symbol0, pool.Symbol1, pool.Key.Fee, pool.Key.TickSpacing, dex.PoolID(pool.Key).Hex())
			}
			return w.Flush()
		},
	}
}

func newPoolIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poolid <tokenA> <tokenB>",
		Short: "Print the pool key and id for a pair, with live state when an RPC is set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fee, _ := cmd.Flags().GetUint32("fee")
			tokenA, err := a.resolveToken(ctx, args[0])
			if err != nil {
				return err
			}
			tokenB, err := a.resolveToken(ctx, args[1])
			if err != nil {
				return err
			}

			key, err := a.registry.PoolKey(tokenA, tokenB, fee)
			if err != nil {
				return err
			}
			out := struct {
				Key   model.PoolKey    `json:"key"`
				ID    string           `json:"id"`
				State *model.PoolState `json:"state,omitempty"`
			}{Key: key, ID: dex.PoolID(key).Hex()}

			if a.client != nil {
				state, err := a.engine.PoolState(ctx, key)
				if err != nil {
					a.logger.Warn("pool state unavailable", zap.Error(err))
				} else {
					out.State = &state
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Uint32("fee", 0, "fee tier (0 uses the configured pool or 3000)")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <tokenIn> <tokenOut> <amount>",
		Short: "Quote an exact-input swap",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tokenIn, err := a.resolveToken(ctx, args[0])
			if err != nil {
				return err
			}
			tokenOut, err := a.resolveToken(ctx, args[1])
			if err != nil {
				return err
			}

			// An explicit fee tier may price an unconfigured pool.
			fee, _ := cmd.Flags().GetUint32("fee")
			var q *model.Quote
			if fee != 0 {
				q, err = a.engine.Quote(ctx, quote.Request{
					TokenIn:         tokenIn,
					TokenOut:        tokenOut,
					AmountIn:        args[2],
					Fee:             fee,
					SlippagePercent: a.cfg.Slippage,
				})
			} else {
				q, err = a.executor.GetQuote(ctx, swap.Params{
					TokenIn:         tokenIn,
					TokenOut:        tokenOut,
					AmountIn:        args[2],
					SlippagePercent: a.cfg.Slippage,
				})
			}
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), q)
			}
			printQuote(cmd, tokenIn, tokenOut, args[2], q)
			return nil
		},
	}
	cmd.Flags().Uint32("fee", 0, "fee tier override")
	cmd.Flags().Bool("json", false, "print the raw quote as JSON")
	return cmd
}

func printQuote(cmd *cobra.Command, tokenIn, tokenOut model.Token, amountIn string, q *model.Quote) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s -> %s %s\n",
		swap.FormatTokenAmount(amountIn, 6), tokenIn.Symbol,
		swap.FormatTokenAmount(q.AmountOutFormatted, 6), tokenOut.Symbol)
	fmt.Fprintf(w, "minimum received: %s %s\n",
		swap.FormatTokenAmount(dex.FormatAmount(q.MinimumReceived, tokenOut.Decimals), 6), tokenOut.Symbol)
	fmt.Fprintf(w, "fee tier: %.2f%%  price impact: %.4f%%\n", float64(q.Fee)/10000, q.PriceImpactPercent)
	fmt.Fprintf(w, "source: %s\n", q.Source)
	if q.Simulated {
		fmt.Fprintln(w, "warning: simulated quote, no chain state was available")
	}
}

func newSwapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "swap <tokenIn> <tokenOut> <amount>",
		Short: "Quote and submit a swap through the universal router",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			wallet, err := a.requireWallet()
			if err != nil {
				return err
			}
			tokenIn, err := a.resolveToken(ctx, args[0])
			if err != nil {
				return err
			}
			tokenOut, err := a.resolveToken(ctx, args[1])
			if err != nil {
				return err
			}

			params := swap.Params{
				TokenIn:         tokenIn,
				TokenOut:        tokenOut,
				AmountIn:        args[2],
				SlippagePercent: a.cfg.Slippage,
			}
			q, err := a.executor.GetQuote(ctx, params)
			if err != nil {
				return err
			}
			if q.Simulated {
				return fmt.Errorf("%w: refusing to swap on a simulated quote", quote.ErrStateUnavailable)
			}
			printQuote(cmd, tokenIn, tokenOut, args[2], q)

			txID, err := a.executor.ExecuteSwap(ctx, params, q, wallet)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transaction: %s\n", txID)
			if a.cfg.DryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "dry run: transaction was not broadcast")
			}
			return nil
		},
	}
}
