package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Poll pending limit orders and execute them when triggered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.requireWallet(); err != nil {
				a.logger.Warn("no wallet configured, triggered orders will fail", zap.Error(err))
			}

			m, mirror, err := a.newMonitor(ctx)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              a.cfg.MetricsAddr,
				Handler:           a.metrics.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("metrics server", zap.Error(err))
				}
			}()

			a.logger.Info("monitor start",
				zap.String("store", a.cfg.OrderStore),
				zap.Duration("interval", a.cfg.PollInterval),
				zap.String("metrics_addr", a.cfg.MetricsAddr),
				zap.Bool("dry_run", a.cfg.DryRun),
			)
			if err := m.Start(ctx); err != nil {
				return err
			}

			// Each tick merges what other processes wrote to the store. Once
			// nothing is pending the poll loop exits, and this rescan starts
			// it again when an order shows up.
			rescan := time.NewTicker(a.cfg.PollInterval)
			defer rescan.Stop()
		wait:
			for {
				select {
				case <-ctx.Done():
					break wait
				case <-rescan.C:
					if m.Running() {
						continue
					}
					if err := m.Start(ctx); err != nil {
						a.logger.Warn("order rescan failed", zap.Error(err))
					}
				}
			}

			a.logger.Info("monitor shutting down")
			m.Wait()
			if mirror != nil {
				mirror.Wait()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
