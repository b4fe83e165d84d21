// Package main is the entry point for replayprobe, a command-line smoke
// tester for the replay upload pipeline. It mints a signed upload token,
// POSTs a replay file to a target API, and validates the JSON response.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dskow/replay-probe/internal/config"
	"github.com/dskow/replay-probe/internal/logging"
)

var (
	// Global flags
	configPath string
	envFile    string
	verbose    bool

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "replayprobe",
	Short: "End-to-end smoke tester for the replay upload pipeline",
	Long: `replayprobe exercises the replay upload flow end to end: it mints a
signed upload token, POSTs a replay file to a target API, and checks the
JSON response.

A scenario pairs an API endpoint with the analyzer it is expected to call.
The built-in scenarios are:
  1: local API -> local analyzer
  2: local API -> production analyzer
  3: production API -> production analyzer

Secrets (AUTH_SECRET, SC2READER_API_KEY) are read from the environment,
typically via .env.local.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (built-in defaults when omitted)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env.local", "env file with AUTH_SECRET and SC2READER_API_KEY")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup loads the env file and config and builds the logger. It runs before
// every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	// The env file is optional; a parse error is not.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading env file %s: %w", envFile, err)
	}

	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	// Monitor mode logs JSON for collectors; interactive runs stay text.
	jsonLogs := cmd.Name() == "serve"
	if jsonLogs && level == slog.LevelWarn {
		level = slog.LevelInfo
	}

	logger, logCloser, err = logging.New(cfg.Logging, level, jsonLogs)
	if err != nil {
		return err
	}

	for _, w := range cfg.Warnings {
		logger.Warn("config warning", "message", w)
	}
	return nil
}

// requireSecrets enforces the fatal configuration contract: uploads are
// never attempted without the signing secret, and scenario remediation
// hints need the analyzer key.
func requireSecrets(needAnalyzerKey bool) error {
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("AUTH_SECRET not found in environment or %s", envFile)
	}
	if needAnalyzerKey && cfg.Auth.AnalyzerKey == "" {
		return fmt.Errorf("SC2READER_API_KEY not found in environment or %s", envFile)
	}
	return nil
}

// replayFile resolves the file to upload: positional argument first, then
// the configured default.
func replayFile(args []string, positional int) (string, error) {
	if len(args) > positional {
		return args[positional], nil
	}
	if cfg.Upload.DefaultFile != "" {
		return cfg.Upload.DefaultFile, nil
	}
	return "", fmt.Errorf("no replay file given (pass a path or set upload.default_file)")
}

func main() {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
