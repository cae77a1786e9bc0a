package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FakeWorker writes an executable shell script standing in for the worker
// binary and returns its path. The script body receives the worker's
// arguments as "$@".
func FakeWorker(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake worker scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-worker")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake worker: %v", err)
	}
	return path
}
