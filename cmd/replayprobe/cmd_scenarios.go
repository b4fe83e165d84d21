package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dskow/replay-probe/internal/config"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List configured scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listScenarios(cfg, cmd.OutOrStdout())
		return nil
	},
}

func listScenarios(cfg *config.Config, out io.Writer) {
	for _, key := range cfg.ScenarioKeys() {
		sc, _ := cfg.Scenario(key)
		name := sc.Name
		if name == "" {
			name = "Scenario " + sc.Key
		}
		fmt.Fprintf(out, "%s: %s\n", sc.Key, name)
		fmt.Fprintf(out, "    API:      %s\n", sc.APIURL)
		if sc.AnalyzerURL != "" {
			fmt.Fprintf(out, "    Analyzer: %s\n", sc.AnalyzerURL)
		}
		if len(sc.Requires) > 0 {
			fmt.Fprintf(out, "    Requires: %s\n", strings.Join(sc.Requires, ", "))
		}
	}
}
