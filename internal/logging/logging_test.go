package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"log/slog"

	"github.com/dskow/replay-probe/internal/config"
)

func TestRotatingWriter_CreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.log")

	rw, err := NewRotatingWriter(path, 1, 3, 14)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	n, err := rw.Write([]byte("hello\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 6 {
		t.Fatalf("Write returned %d, want 6", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello\n" {
		t.Fatalf("file content = %q, want %q", string(data), "hello\n")
	}
}

func TestRotatingWriter_RotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe.log")

	rw, err := NewRotatingWriter(path, 1, 3, 14)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	rw.maxBytes = 100 // small limit so a handful of writes rotates
	defer rw.Close()

	line := strings.Repeat("x", 40) + "\n"
	for i := 0; i < 5; i++ {
		if _, err := rw.Write([]byte(line)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected rotated files, found %d entries", len(entries))
	}

	// The active file must be under the limit after rotation.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() > 100 {
		t.Errorf("active file size = %d, want <= 100", info.Size())
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.log")

	logger, closer, err := New(config.LoggingConfig{
		Output:     path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, slog.LevelInfo, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("probe started", "scenario", "1")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"probe started"`) {
		t.Errorf("log content = %q, want JSON record", string(data))
	}
	if !strings.Contains(string(data), `"scenario":"1"`) {
		t.Errorf("log content = %q, want scenario attr", string(data))
	}
}

func TestNew_Stderr(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{Output: "stderr"}, slog.LevelDebug, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()
	if logger == nil {
		t.Fatal("expected logger")
	}
}
