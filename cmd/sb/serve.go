package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/api"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the reclaim scheduler",
		Long: `Serves the request API under /api/v1 plus /healthz and /metrics.

Unless scheduler.disabled is set, the reclaim scheduler runs in the same
process. Run several instances against one database with redis.url set so
only one of them sweeps at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides api.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = a.cfg.API.Port
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	opts := api.StartOpts{
		Opts: api.Opts{
			DB:          a.db,
			Tickets:     a.tickets,
			Gatherer:    a.registry,
			CORSOrigins: a.cfg.API.CORSOrigins,
			Logger:      a.log,
		},
		Port: port,
		Out:  cmd.OutOrStdout(),
	}

	if !a.cfg.Scheduler.Disabled {
		s, closeFn, err := buildScheduler(ctx, a)
		if err != nil {
			return err
		}
		defer closeFn()
		opts.Scheduler = s
		go func() {
			if err := s.Run(ctx); err != nil && ctx.Err() == nil {
				a.log.WithError(err).Error("scheduler stopped")
			}
		}()
	}

	return api.Start(ctx, opts)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
