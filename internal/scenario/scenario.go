// Package scenario selects and runs upload test scenarios. A scenario pairs
// an API endpoint with the analyzer it is expected to call, plus the local
// services that must be listening for the pairing to make sense. Scenarios
// run strictly one after another; each gets exactly one upload attempt.
package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dskow/replay-probe/internal/config"
	"github.com/dskow/replay-probe/internal/metrics"
	"github.com/dskow/replay-probe/internal/portcheck"
	"github.com/dskow/replay-probe/internal/token"
	"github.com/dskow/replay-probe/internal/uploader"
)

const banner = "============================================================"

// UploadFunc performs the upload for one scenario. Injectable for tests.
type UploadFunc func(ctx context.Context, sc config.ScenarioConfig, filePath string) *uploader.Result

// Runner executes scenarios and reports results.
type Runner struct {
	Config  *config.Config
	Out     io.Writer
	Logger  *slog.Logger
	Checker *portcheck.Checker
	Upload  UploadFunc
}

// New builds a Runner whose upload path mints a fresh token per attempt and
// posts to the scenario's API with the configured endpoint and timeout.
func New(cfg *config.Config, logger *slog.Logger, out io.Writer) *Runner {
	r := &Runner{
		Config:  cfg,
		Out:     out,
		Logger:  logger,
		Checker: &portcheck.Checker{},
	}
	r.Upload = func(ctx context.Context, sc config.ScenarioConfig, filePath string) *uploader.Result {
		bearer, err := token.Issue(cfg.Auth.Secret, cfg.Auth.UserID, cfg.Auth.RoleID, time.Now())
		if err != nil {
			return &uploader.Result{
				Outcome: uploader.OutcomeHTTPError,
				Detail:  fmt.Sprintf("minting upload token: %v", err),
			}
		}
		client := &uploader.Client{
			BaseURL:    sc.APIURL,
			Path:       cfg.Upload.Path,
			HTTPClient: &http.Client{Timeout: cfg.Upload.Timeout},
			Logger:     logger,
		}
		return client.Upload(ctx, bearer, filePath)
	}
	return r
}

// Run executes the scenario with the given key. It returns false both for
// upload failures and for scenarios skipped due to missing local services;
// an error is returned only for an unknown key.
func (r *Runner) Run(ctx context.Context, key, filePath string) (bool, error) {
	sc, ok := r.Config.Scenario(key)
	if !ok {
		return false, fmt.Errorf("unknown scenario %q (valid: %s, all)",
			key, strings.Join(r.Config.ScenarioKeys(), ", "))
	}
	return r.runOne(ctx, sc, filePath), nil
}

// RunAll executes every configured scenario in fixed key order, prints a
// summary table, and returns true only if all of them passed.
func (r *Runner) RunAll(ctx context.Context, filePath string) bool {
	keys := r.Config.ScenarioKeys()
	results := make(map[string]bool, len(keys))

	for _, key := range keys {
		sc, _ := r.Config.Scenario(key)
		results[key] = r.runOne(ctx, sc, filePath)
	}

	fmt.Fprintln(r.Out, banner)
	fmt.Fprintln(r.Out, "SUMMARY")
	fmt.Fprintln(r.Out, banner)

	all := true
	for _, key := range keys {
		sc, _ := r.Config.Scenario(key)
		fmt.Fprintf(r.Out, "%s  %s\n", mark(results[key]), displayName(sc))
		if !results[key] {
			all = false
		}
	}
	fmt.Fprintln(r.Out, banner)

	return all
}

func (r *Runner) runOne(ctx context.Context, sc config.ScenarioConfig, filePath string) bool {
	fmt.Fprintln(r.Out, banner)
	fmt.Fprintln(r.Out, displayName(sc))
	fmt.Fprintln(r.Out, banner)
	fmt.Fprintf(r.Out, "API:      %s\n", sc.APIURL)
	if sc.AnalyzerURL != "" {
		fmt.Fprintf(r.Out, "Analyzer: %s\n", sc.AnalyzerURL)
	}
	fmt.Fprintf(r.Out, "File:     %s\n\n", filePath)

	if missing := r.Checker.Missing(sc.Requires); len(missing) > 0 {
		markers := make([]string, len(missing))
		for i, m := range missing {
			markers[i] = m.Marker()
		}
		fmt.Fprintf(r.Out, "%s  Missing required services: %s\n",
			mark(false), strings.Join(markers, ", "))
		for _, m := range missing {
			fmt.Fprintf(r.Out, "  %s\n", portcheck.Hint(m, sc.AnalyzerURL, r.Config.Auth.AnalyzerKey))
		}
		fmt.Fprintln(r.Out)

		r.Logger.Warn("scenario skipped, required services missing",
			"scenario", sc.Key, "missing", markers)
		metrics.RequirementsMissing.WithLabelValues(sc.Key).Inc()
		metrics.RunsTotal.WithLabelValues(sc.Key, "skipped").Inc()
		return false
	}

	start := time.Now()
	res := r.Upload(ctx, sc, filePath)
	elapsed := time.Since(start)

	metrics.RunsTotal.WithLabelValues(sc.Key, string(res.Outcome)).Inc()
	metrics.Duration.WithLabelValues(sc.Key).Observe(elapsed.Seconds())

	if res.OK() {
		metrics.LastSuccess.WithLabelValues(sc.Key).SetToCurrentTime()
		r.Logger.Info("upload succeeded",
			"scenario", sc.Key, "replay_id", res.Replay.ID, "elapsed", elapsed)

		fmt.Fprintf(r.Out, "%s  Replay uploaded and analyzed\n", mark(true))
		fmt.Fprintf(r.Out, "  Replay ID: %s\n", res.Replay.ID)
		if fp := res.Replay.Fingerprint; fp != nil {
			fmt.Fprintf(r.Out, "  Matchup:   %s\n", fp.Matchup)
			fmt.Fprintf(r.Out, "  Race:      %s\n", fp.Race)
			fmt.Fprintf(r.Out, "  Player:    %s\n", fp.PlayerName)
			fmt.Fprintf(r.Out, "  Map:       %s\n", fp.Metadata.Map)
		}
		fmt.Fprintln(r.Out)
		return true
	}

	r.Logger.Warn("upload failed",
		"scenario", sc.Key, "outcome", res.Outcome, "status", res.Status,
		"detail", res.Detail, "elapsed", elapsed)

	switch res.Outcome {
	case uploader.OutcomeHTTPError:
		if res.Status != 0 {
			fmt.Fprintf(r.Out, "%s  HTTP %d\n  %s\n", mark(false), res.Status, res.Detail)
		} else {
			fmt.Fprintf(r.Out, "%s  %s\n", mark(false), res.Detail)
		}
	default:
		fmt.Fprintf(r.Out, "%s  %s\n", mark(false), res.Detail)
	}
	fmt.Fprintln(r.Out)
	return false
}

func displayName(sc config.ScenarioConfig) string {
	if sc.Name != "" {
		return sc.Name
	}
	return "Scenario " + sc.Key
}

func mark(ok bool) string {
	if ok {
		return color.New(color.FgGreen, color.Bold).Sprint("PASS")
	}
	return color.New(color.FgRed, color.Bold).Sprint("FAIL")
}
