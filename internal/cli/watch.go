package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rusenback/erpmon/internal/diagnose"
	"github.com/rusenback/erpmon/internal/metrics"
	"github.com/rusenback/erpmon/internal/monitor"
	"github.com/rusenback/erpmon/internal/storage"
)

func (a *app) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll every running container and record its stats",
		Long: `watch polls all running containers, stores the samples in the
local history database and, when metrics.addr is set, serves them as
Prometheus metrics. A container that was running and exits with a
non-zero code has its last output classified for network failures.`,
		Args: cobra.NoArgs,
		RunE: a.runWatch,
	}
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	_ = a.v.BindPFlag("metrics.addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := a.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := storage.NewStorage(a.cfg.DataDir, a.cfg.Retention, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	exporter := metrics.NewExporter()
	poller := monitor.NewPoller(client, monitor.PollerConfig{
		Interval: a.cfg.RefreshInterval,
		Timeout:  a.cfg.StatsTimeout,
		Platform: client.Platform(),
	}, exporter, a.logger, store)
	watcher := monitor.NewDeployWatcher(diagnose.NewClassifier(a.cfg.Ports), exporter, a.logger, 0)
	poller.Exits = monitor.NewExitDiagnoser(client, watcher, 0, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poller.Run(ctx)
	})

	if addr := a.cfg.MetricsAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           exporter.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("serving metrics", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	a.logger.Info("watching containers",
		zap.Duration("interval", a.cfg.RefreshInterval),
		zap.String("platform", string(client.Platform())))
	return g.Wait()
}
