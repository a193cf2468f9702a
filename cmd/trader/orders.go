package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tradeEngine/internal/model"
	"tradeEngine/internal/orders"
)

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Manage limit orders",
	}
	cmd.AddCommand(
		newOrderCreateCmd(),
		newOrderCancelCmd(),
		newOrderListCmd(),
		newOrderStatsCmd(),
		newOrderCleanupCmd(),
	)
	return cmd
}

func newOrderCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <tokenIn> <tokenOut> <amount>",
		Short: "Create a sell order that fires when the price reaches the target",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.requireWallet()
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

			priceRaw, _ := cmd.Flags().GetString("price")
			expiryRaw, _ := cmd.Flags().GetString("expiry")
			custom, _ := cmd.Flags().GetFloat64("custom-price")
			priceSel, err := orders.ParsePriceSelector(priceRaw)
			if err != nil {
				return err
			}
			expirySel, err := orders.ParseExpirySelector(expiryRaw)
			if err != nil {
				return err
			}
			if custom > 0 && !cmd.Flags().Changed("price") {
				priceSel = orders.PriceCustom
			}

			m, mirror, err := a.newMonitor(ctx)
			if err != nil {
				return err
			}
			order, err := m.CreateLimitOrder(ctx, orders.CreateParams{
				Owner:          owner,
				TokenIn:        tokenIn,
				TokenOut:       tokenOut,
				AmountIn:       args[2],
				PriceSelector:  priceSel,
				CustomPrice:    custom,
				ExpirySelector: expirySel,
			})
			if err != nil {
				return err
			}
			if mirror != nil {
				mirror.Wait()
			}
			return writeJSON(cmd.OutOrStdout(), order)
		},
	}
	cmd.Flags().String("price", "market", "target price: market, +1%, +5%, +10%, custom")
	cmd.Flags().Float64("custom-price", 0, "target price for --price custom (tokenOut per tokenIn)")
	cmd.Flags().String("expiry", "1week", "expiry: 1day, 1week, 1month, 1year")
	return cmd
}

func newOrderCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, mirror, err := a.newMonitor(ctx)
			if err != nil {
				return err
			}
			if err := m.Cancel(ctx, args[0]); err != nil {
				if errors.Is(err, orders.ErrOrderNotPending) {
					order, _ := m.Order(args[0])
					return fmt.Errorf("%w: %s is %s", err, args[0], order.Status)
				}
				return err
			}
			if mirror != nil {
				mirror.Wait()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
			return nil
		},
	}
}

func newOrderListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, _, err := a.newMonitor(ctx)
			if err != nil {
				return err
			}
			status, _ := cmd.Flags().GetString("status")
			var list []model.LimitOrder
			for _, o := range m.Orders() {
				if status == "" || string(o.Status) == status {
					list = append(list, o)
				}
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPAIR\tAMOUNT\tTARGET\tSTATUS\tEXPIRES\tTX")
			for _, o := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.6g\t%s\t%s\t%s\n",
					o.ID, o.Pair, o.AmountIn, o.TargetPrice, o.Status,
					o.ExpiresAt.Format("2006-01-02 15:04"), o.TransactionID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("status", "", "only show orders with this status")
	cmd.Flags().Bool("json", false, "print orders as JSON")
	return cmd
}

func newOrderStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count orders by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, _, err := a.newMonitor(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), m.Stats())
		},
	}
}

func newOrderCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove finished orders older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, _, err := a.newMonitor(ctx)
			if err != nil {
				return err
			}
			removed, err := m.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d orders\n", removed)
			return nil
		},
	}
}
