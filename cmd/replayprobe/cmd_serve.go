package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dskow/replay-probe/internal/config"
	"github.com/dskow/replay-probe/internal/metrics"
	"github.com/dskow/replay-probe/internal/monitor"
)

var serveCmd = &cobra.Command{
	Use:   "serve [replay-file]",
	Short: "Run as a synthetic monitor exposing Prometheus metrics",
	Long: `Serve runs every scenario on an interval and records the results as
Prometheus metrics on /metrics, with a liveness check on /health. When a
--config file is given, edits to it (or SIGHUP) reload the scenario set
without a restart.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := requireSecrets(true); err != nil {
		return err
	}

	file, err := replayFile(args, 0)
	if err != nil {
		return err
	}

	metrics.Init()

	reloader := config.NewReloader(configPath, cfg, logger)
	if configPath != "" {
		reloader.Start()
		defer reloader.Stop()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := monitor.New(reloader, file, logger)
	return m.Run(ctx)
}
