package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kittycore/internal/adapters/httpapi"
	"kittycore/internal/blob"
	"kittycore/internal/core"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides KITTYCORE_HTTP_ADDR)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return err
	}
	svc, closeStore, err := a.openService(ctx,
		core.WithMetrics(metrics),
		core.WithEventSink(metrics),
		core.WithEventSink(core.LogEventSink(a.logger)),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr: a.cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Service:     svc,
			Logger:      a.logger,
			Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			MetricsPath: a.cfg.HTTP.MetricsPath,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var exporter *core.SnapshotExporter
	if a.cfg.Export.Interval > 0 {
		store, err := blob.Open(ctx, a.cfg.BlobSettings())
		if err != nil {
			return fmt.Errorf("open export store: %w", err)
		}
		exporter = core.NewSnapshotExporter(svc, store, a.cfg.Export.Prefix)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if exporter != nil {
		g.Go(func() error {
			a.exportLoop(gctx, exporter, a.cfg.Export.Interval)
			return nil
		})
	}
	err = g.Wait()
	a.logger.Info("http stopped")
	return err
}

// exportLoop archives incremental exports until ctx ends. Failures are logged
// and retried on the next tick from the last successful sequence.
func (a *app) exportLoop(ctx context.Context, exporter *core.SnapshotExporter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var since uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manifest, err := exporter.Export(ctx, since)
			if err != nil {
				a.logger.Warn("periodic export failed", zap.Error(err))
				continue
			}
			since = manifest.LastSequence
		}
	}
}
