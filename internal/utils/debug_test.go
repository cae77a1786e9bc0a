package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigureDebug_WritesLogFile(t *testing.T) {
	dir := t.TempDir()
	defer logrus.SetOutput(os.Stderr)

	path, err := ConfigureDebug(dir, "debug")
	if err != nil {
		t.Fatalf("ConfigureDebug failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("log file %s not in %s", path, dir)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logrus.GetLevel())
	}

	Debug("hello %d", 42)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello 42") {
		t.Errorf("log file does not contain message: %q", data)
	}
}

func TestConfigureDebug_BadLevelFallsBackToInfo(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	if _, err := ConfigureDebug(t.TempDir(), "loud"); err != nil {
		t.Fatal(err)
	}
	if logrus.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", logrus.GetLevel())
	}
}

func TestCleanupLogs(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"debug-20240101-000000.log",
		"debug-20240102-000000.log",
		"debug-20240103-000000.log",
		"debug-20240104-000000.log",
		"other.txt",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := CleanupLogs(dir, 2); err != nil {
		t.Fatalf("CleanupLogs failed: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	want := []string{"debug-20240103-000000.log", "debug-20240104-000000.log", "other.txt"}
	if strings.Join(left, ",") != strings.Join(want, ",") {
		t.Errorf("remaining files = %v, want %v", left, want)
	}

	if err := CleanupLogs(filepath.Join(dir, "missing"), 2); err != nil {
		t.Errorf("missing dir should not be an error: %v", err)
	}
}
