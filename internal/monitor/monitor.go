// Package monitor runs the probe as a long-lived synthetic monitor: every
// interval it sweeps all configured scenarios and records the results as
// Prometheus metrics. Upload attempts are paced by a rate limiter so an
// aggressive interval cannot hammer the API, and the scenario set follows
// config hot-reloads.
package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dskow/replay-probe/internal/config"
	"github.com/dskow/replay-probe/internal/metrics"
	"github.com/dskow/replay-probe/internal/scenario"
)

// Pre-serialized liveness response.
var livenessBody = []byte(`{"status":"ok"}` + "\n")

const shutdownTimeout = 10 * time.Second

// Monitor owns the probe loop and the metrics HTTP server.
type Monitor struct {
	reloader *config.Reloader
	filePath string
	logger   *slog.Logger

	// Upload overrides the runner's upload path when non-nil (tests).
	Upload scenario.UploadFunc

	mu      sync.Mutex
	limiter *rate.Limiter
}

// New creates a Monitor uploading filePath each sweep. The limiter follows
// monitor.runs_per_hour across config reloads.
func New(reloader *config.Reloader, filePath string, logger *slog.Logger) *Monitor {
	m := &Monitor{
		reloader: reloader,
		filePath: filePath,
		logger:   logger,
	}
	m.applyConfig(reloader.Current())
	reloader.OnReload(m.applyConfig)
	return m
}

func (m *Monitor) applyConfig(cfg *config.Config) {
	perSecond := rate.Limit(cfg.Monitor.RunsPerHour / 3600.0)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limiter == nil {
		m.limiter = rate.NewLimiter(perSecond, cfg.Monitor.Burst)
		return
	}
	m.limiter.SetLimit(perSecond)
	m.limiter.SetBurst(cfg.Monitor.Burst)
}

func (m *Monitor) rateLimiter() *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limiter
}

// Run starts the metrics server and the probe loop, blocking until ctx is
// cancelled or the server fails to listen.
func (m *Monitor) Run(ctx context.Context) error {
	cfg := m.reloader.Current()

	srv := &http.Server{
		Addr:         cfg.Monitor.ListenAddr,
		Handler:      m.handler(cfg.Monitor.MetricsPath),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("monitor listening",
			"addr", srv.Addr,
			"metrics_path", cfg.Monitor.MetricsPath,
			"interval", cfg.Monitor.Interval,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go m.loop(ctx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	m.logger.Info("monitor shutting down")
	return srv.Shutdown(shutdownCtx)
}

// handler builds the monitor's HTTP surface: liveness plus metrics.
func (m *Monitor) handler(metricsPath string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(livenessBody)
	})
	mux.Handle(metricsPath, metrics.Handler())
	return mux
}

// loop sweeps all scenarios immediately, then every interval. The interval
// is re-read each pass so config reloads take effect without restart.
func (m *Monitor) loop(ctx context.Context) {
	for {
		m.sweep(ctx)

		interval := m.reloader.Current().Monitor.Interval
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}
	}
}

// sweep runs every configured scenario once, gated by the rate limiter.
func (m *Monitor) sweep(ctx context.Context) {
	cfg := m.reloader.Current()

	runner := scenario.New(cfg, m.logger, io.Discard)
	if m.Upload != nil {
		runner.Upload = m.Upload
	}

	for _, key := range cfg.ScenarioKeys() {
		if err := m.rateLimiter().Wait(ctx); err != nil {
			return // context cancelled
		}
		passed, err := runner.Run(ctx, key, m.filePath)
		if err != nil {
			m.logger.Error("scenario lookup failed", "scenario", key, "error", err)
			continue
		}
		m.logger.Info("sweep scenario finished", "scenario", key, "passed", passed)
	}
}
