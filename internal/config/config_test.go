package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromBytes_Defaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "unit-test-secret")
	t.Setenv("SC2READER_API_KEY", "unit-test-key")

	cfg, err := LoadFromBytes([]byte("{}"))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}

	if cfg.Upload.Path != "/api/my-replays" {
		t.Errorf("upload.path = %q, want /api/my-replays", cfg.Upload.Path)
	}
	if cfg.Upload.Timeout != 60*time.Second {
		t.Errorf("upload.timeout = %v, want 60s", cfg.Upload.Timeout)
	}
	if len(cfg.Scenarios) != 3 {
		t.Fatalf("expected 3 default scenarios, got %d", len(cfg.Scenarios))
	}
	if cfg.Auth.Secret != "unit-test-secret" {
		t.Errorf("auth.secret = %q, want value from AUTH_SECRET", cfg.Auth.Secret)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", cfg.Warnings)
	}
}

func TestLoadFromBytes_EnvSubstitution(t *testing.T) {
	t.Setenv("AUTH_SECRET", "unused")
	t.Setenv("PROBE_API_URL", "http://localhost:4000")

	yaml := `
scenarios:
  - key: "1"
    name: "custom"
    api_url: "${PROBE_API_URL}"
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if cfg.Scenarios[0].APIURL != "http://localhost:4000" {
		t.Errorf("api_url = %q, want substituted value", cfg.Scenarios[0].APIURL)
	}
}

func TestLoadFromBytes_InvalidRequirement(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s")

	yaml := `
scenarios:
  - key: "1"
    api_url: "http://localhost:3000"
    requires: ["next"]
`
	if _, err := LoadFromBytes([]byte(yaml)); err == nil {
		t.Fatal("expected error for requirement without port")
	}
}

func TestLoadFromBytes_DuplicateKey(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s")

	yaml := `
scenarios:
  - key: "1"
    api_url: "http://localhost:3000"
  - key: "1"
    api_url: "http://localhost:3001"
`
	_, err := LoadFromBytes([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate scenario key")
	}
	if !strings.Contains(err.Error(), "duplicate key") {
		t.Errorf("error = %v, want duplicate key", err)
	}
}

func TestLoadFromBytes_RelativeAPIURL(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s")

	yaml := `
scenarios:
  - key: "1"
    api_url: "localhost:3000"
`
	if _, err := LoadFromBytes([]byte(yaml)); err == nil {
		t.Fatal("expected error for non-absolute api_url")
	}
}

func TestLoadFromBytes_MissingSecretWarns(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("SC2READER_API_KEY", "")

	cfg, err := LoadFromBytes([]byte("{}"))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	found := false
	for _, w := range cfg.Warnings {
		if strings.Contains(w, "AUTH_SECRET") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected AUTH_SECRET warning, got %v", cfg.Warnings)
	}
}

func TestScenarioKeys_SortedOrder(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s")

	yaml := `
scenarios:
  - key: "3"
    api_url: "http://localhost:3000"
  - key: "1"
    api_url: "http://localhost:3000"
  - key: "2"
    api_url: "http://localhost:3000"
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	keys := cfg.ScenarioKeys()
	want := []string{"1", "2", "3"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReloader_SwapsOnValidChange(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s")

	dir := t.TempDir()
	path := filepath.Join(dir, "probe.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	r := NewReloader(path, initial, slog.Default())

	var gotCallback *Config
	r.OnReload(func(c *Config) { gotCallback = c })

	next := `
upload:
  timeout: 30s
`
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatal(err)
	}

	if !r.Reload() {
		t.Fatal("Reload returned false for valid config")
	}
	if r.Current().Upload.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s after reload", r.Current().Upload.Timeout)
	}
	if gotCallback == nil {
		t.Error("reload callback was not invoked")
	}
}

func TestReloader_KeepsCurrentOnInvalidChange(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s")

	dir := t.TempDir()
	path := filepath.Join(dir, "probe.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r := NewReloader(path, initial, slog.Default())

	bad := `
scenarios:
  - name: "no key"
    api_url: "http://localhost:3000"
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	if r.Reload() {
		t.Fatal("Reload returned true for invalid config")
	}
	if r.Current() != initial {
		t.Error("current config changed after failed reload")
	}
}
