package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/callflow"
	httpadapter "github.com/aretw0/callflow/pkg/adapters/http"
	"github.com/aretw0/callflow/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the conversation API over HTTP: start sessions, invoke actions, read catalogs
and transcripts, and follow state changes over Server-Sent Events. Prometheus metrics are
exposed on /metrics. With --flow, edits to the definition file are picked up by new sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
			cfg.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}

		eng, err := newEngine(ctx, callflow.WithLifecycleHooks(observability.Combine(
			observability.LogHooks(logger),
			metrics.Hooks(),
		)))
		if err != nil {
			return err
		}

		be, err := openBackend()
		if err != nil {
			return err
		}
		defer be.close()
		mgr := eng.Sessions(be.sessionOptions()...)

		handler := httpadapter.NewHandler(mgr,
			httpadapter.WithGraph(eng.Graph),
			httpadapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
			httpadapter.WithVersion(strings.TrimSpace(callflow.Version)),
			httpadapter.WithLogger(logger),
		)
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("callflow server listening", "address", srv.Addr, "store", cfg.Store.Kind, "graph", eng.Graph().Name())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			logger.Info("callflow server stopped gracefully")
			return nil
		})
		g.Go(func() error {
			return mgr.Run(gctx, cfg.Session.ReapInterval)
		})
		if cfg.FlowFile != "" {
			g.Go(func() error {
				return eng.Watch(gctx)
			})
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides CALLFLOW_ADDR)")
}
