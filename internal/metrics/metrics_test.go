package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectors_Gatherable(t *testing.T) {
	// Use a custom registry to avoid duplicate-registration panics when
	// other tests also touch the default registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(RunsTotal, Duration, LastSuccess, RequirementsMissing)

	RunsTotal.WithLabelValues("1", "ok").Inc()
	RunsTotal.WithLabelValues("1", "connection").Inc()
	Duration.WithLabelValues("1").Observe(0.42)
	LastSuccess.WithLabelValues("1").SetToCurrentTime()
	RequirementsMissing.WithLabelValues("2").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family")
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	RunsTotal.WithLabelValues("3", "ok").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("expected default process metrics in output")
	}
}
