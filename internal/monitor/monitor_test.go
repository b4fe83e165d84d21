package monitor

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dskow/replay-probe/internal/config"
	"github.com/dskow/replay-probe/internal/uploader"
)

func testReloader(t *testing.T, yaml string) *config.Reloader {
	t.Helper()
	t.Setenv("AUTH_SECRET", "test-secret")
	t.Setenv("SC2READER_API_KEY", "test-key")

	cfg, err := config.LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	return config.NewReloader("unused.yaml", cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const twoScenarios = `
monitor:
  runs_per_hour: 360000
  burst: 10
scenarios:
  - key: "1"
    name: "Step 1"
    api_url: "http://localhost:3000"
  - key: "2"
    name: "Step 2"
    api_url: "http://localhost:3000"
`

func TestSweep_RunsEveryScenario(t *testing.T) {
	r := testReloader(t, twoScenarios)

	var calls atomic.Int64
	m := New(r, "replay.SC2Replay", slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.Upload = func(ctx context.Context, sc config.ScenarioConfig, filePath string) *uploader.Result {
		calls.Add(1)
		return &uploader.Result{
			Outcome: uploader.OutcomeOK,
			Status:  200,
			Replay:  &uploader.Replay{ID: "sweep-" + sc.Key},
		}
	}

	m.sweep(context.Background())

	if calls.Load() != 2 {
		t.Fatalf("upload calls = %d, want 2", calls.Load())
	}
}

func TestSweep_StopsOnCancelledContext(t *testing.T) {
	r := testReloader(t, twoScenarios)

	m := New(r, "replay.SC2Replay", slog.New(slog.NewTextHandler(io.Discard, nil)))
	var calls atomic.Int64
	m.Upload = func(ctx context.Context, sc config.ScenarioConfig, filePath string) *uploader.Result {
		calls.Add(1)
		return &uploader.Result{Outcome: uploader.OutcomeConnection}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.sweep(ctx)

	if calls.Load() != 0 {
		t.Errorf("upload calls = %d, want 0 after cancel", calls.Load())
	}
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	r := testReloader(t, twoScenarios)
	m := New(r, "replay.SC2Replay", slog.New(slog.NewTextHandler(io.Discard, nil)))

	h := m.handler("/metrics")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 200 {
		t.Fatalf("/health status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("/health body = %q", string(body))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("/metrics status = %d, want 200", rec.Code)
	}
}

func TestApplyConfig_UpdatesLimiter(t *testing.T) {
	r := testReloader(t, twoScenarios)
	m := New(r, "replay.SC2Replay", slog.New(slog.NewTextHandler(io.Discard, nil)))

	before := m.rateLimiter().Limit()

	next := *r.Current()
	next.Monitor.RunsPerHour = 7200
	next.Monitor.Burst = 5
	m.applyConfig(&next)

	after := m.rateLimiter().Limit()
	if before == after {
		t.Errorf("limit unchanged after applyConfig: %v", after)
	}
	if m.rateLimiter().Burst() != 5 {
		t.Errorf("burst = %d, want 5", m.rateLimiter().Burst())
	}
	if got := float64(after); got < 1.99 || got > 2.01 {
		t.Errorf("limit = %v, want ~2/s for 7200 runs/hour", got)
	}
}

// Run should come up, serve health, and shut down cleanly on cancel.
func TestRun_GracefulShutdown(t *testing.T) {
	r := testReloader(t, `
monitor:
  listen_addr: "127.0.0.1:0"
  interval: 1h
scenarios:
  - key: "1"
    api_url: "http://localhost:3000"
    requires: ["next:1"]
`)
	m := New(r, "replay.SC2Replay", slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not shut down")
	}
}
