package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dskow/replay-probe/internal/scenario"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario> [replay-file]",
	Short: "Run one upload scenario, or all of them",
	Long: `Run uploads the replay file through the selected scenario and checks
the response. Pass "all" to run every scenario in order and print a summary;
the exit code is non-zero unless every scenario passes.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := requireSecrets(true); err != nil {
		return err
	}

	file, err := replayFile(args, 1)
	if err != nil {
		return err
	}

	runner := scenario.New(cfg, logger, os.Stdout)
	ctx := cmd.Context()

	if args[0] == "all" {
		if !runner.RunAll(ctx, file) {
			return fmt.Errorf("one or more scenarios failed")
		}
		return nil
	}

	passed, err := runner.Run(ctx, args[0], file)
	if err != nil {
		return err
	}
	if !passed {
		return fmt.Errorf("scenario %s failed", args[0])
	}
	return nil
}
