// Command corald runs the Corral cluster coordination daemon: it hosts the
// coordinator core and exposes it to collaborators over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/corral/internal/cluster"
	"github.com/dreamware/corral/internal/coordinator"
	"github.com/dreamware/corral/internal/optimizer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	cfg        cluster.Config
	addr       string
	sampleHost bool
	dev        bool
}

func newRootCmd() *cobra.Command {
	opts := options{
		cfg:  cluster.DefaultConfig(),
		addr: getenv("CORALD_ADDR", ":8080"),
	}

	cmd := &cobra.Command{
		Use:           "corald",
		Short:         "Cluster coordination daemon for distributed worker fleets",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", opts.addr, "HTTP listen address")
	flags.DurationVar(&opts.cfg.HeartbeatInterval, "heartbeat-interval", opts.cfg.HeartbeatInterval, "how often to sweep for dead nodes")
	flags.DurationVar(&opts.cfg.NodeTimeout, "node-timeout", opts.cfg.NodeTimeout, "evict nodes silent for longer than this")
	flags.DurationVar(&opts.cfg.OptimizeInterval, "optimization-interval", opts.cfg.OptimizeInterval, "how often to run a resource optimization cycle")
	flags.DurationVar(&opts.cfg.DrainTimeout, "drain-timeout", opts.cfg.DrainTimeout, "evict draining nodes after this long regardless of load")
	flags.IntVar(&opts.cfg.MinNodes, "min-nodes", opts.cfg.MinNodes, "never recommend scaling below this many nodes")
	flags.IntVar(&opts.cfg.MaxNodes, "max-nodes", opts.cfg.MaxNodes, "registry capacity and scale-up ceiling")
	flags.Float64Var(&opts.cfg.CPUHighThreshold, "cpu-high", opts.cfg.CPUHighThreshold, "CPU high watermark in percent")
	flags.Float64Var(&opts.cfg.CPULowThreshold, "cpu-low", opts.cfg.CPULowThreshold, "CPU low watermark in percent")
	flags.Float64Var(&opts.cfg.MemoryHighThreshold, "memory-high", opts.cfg.MemoryHighThreshold, "memory high watermark in percent")
	flags.Float64Var(&opts.cfg.MemoryLowThreshold, "memory-low", opts.cfg.MemoryLowThreshold, "memory low watermark in percent")
	flags.BoolVar(&opts.sampleHost, "sample-host", true, "feed host CPU/memory readings from /proc into the optimizer")
	flags.BoolVar(&opts.dev, "dev", false, "human-readable logging")

	return cmd
}

func run(ctx context.Context, opts options) error {
	log, err := newLogger(opts.dev)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	coordOpts := []coordinator.Option{coordinator.WithLogger(log)}
	if opts.sampleHost {
		coordOpts = append(coordOpts, coordinator.WithSampler(optimizer.NewProcSampler()))
	}

	coord, err := coordinator.New(opts.cfg, coordOpts...)
	if err != nil {
		return fmt.Errorf("configuration rejected: %w", err)
	}

	// Narrate lifecycle events for operators; external collaborators get the
	// same stream over their own subscriptions.
	coord.Subscribe(func(ev cluster.Event) {
		log.Info("cluster event",
			zap.String("type", string(ev.Type)),
			zap.String("node_id", ev.NodeID),
			zap.String("reason", ev.Reason))
	})

	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Stop()

	srv := newServer(coord, log)
	httpSrv := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.router(newPromRegistry(coord)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("corald listening", zap.String("addr", opts.addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
