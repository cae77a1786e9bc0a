package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/streamgrab/streamgrab/internal/engine/types"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	if settings == nil {
		t.Fatal("DefaultSettings returned nil")
	}

	t.Run("GeneralSettings", func(t *testing.T) {
		if settings.General.DownloadLocation == "" {
			t.Error("Download location should not be empty")
		}
		if !strings.HasSuffix(settings.General.DownloadLocation, filepath.Join("Downloads", "m3u8")) {
			t.Errorf("Download location should end with Downloads/m3u8, got: %s", settings.General.DownloadLocation)
		}
		if settings.General.LogRetentionCount <= 0 {
			t.Errorf("LogRetentionCount should be positive, got: %d", settings.General.LogRetentionCount)
		}
	})

	t.Run("WorkerSettings", func(t *testing.T) {
		w := settings.Worker
		if w.ThreadCount != 16 {
			t.Errorf("ThreadCount = %d, want 16", w.ThreadCount)
		}
		if w.DownloadRetryCount != 3 {
			t.Errorf("DownloadRetryCount = %d, want 3", w.DownloadRetryCount)
		}
		if w.SubFormat != "SRT" || w.LogLevel != "INFO" {
			t.Errorf("unexpected subtitle format %q or log level %q", w.SubFormat, w.LogLevel)
		}
		if !strings.HasPrefix(w.TmpDir, settings.General.DownloadLocation) {
			t.Errorf("TmpDir %q should live under the download location", w.TmpDir)
		}
		if !w.DelAfterDone || !w.CheckSegmentsCount {
			t.Error("segment checks and cleanup should be on by default")
		}
		if w.BinaryMerge || w.SubOnly {
			t.Error("BinaryMerge and SubOnly should be off by default")
		}
	})

	t.Run("SessionSettings", func(t *testing.T) {
		if settings.Session.Timeout != types.DefaultEnumerateTimeout {
			t.Errorf("Timeout = %v, want %v", settings.Session.Timeout, types.DefaultEnumerateTimeout)
		}
		if !settings.Session.AutoMerge {
			t.Error("AutoMerge should be true by default")
		}
	})
}

func TestDefaultSettings_Consistency(t *testing.T) {
	s1 := DefaultSettings()
	s2 := DefaultSettings()

	if s1 == s2 {
		t.Error("DefaultSettings should return new instance each time")
	}
	if s1.Worker != s2.Worker {
		t.Error("Default settings should be consistent")
	}
}

func TestGetSettingsPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := GetSettingsPath()

	if !strings.HasPrefix(path, GetAppDir()) {
		t.Errorf("Settings path should be under app dir. Path: %s, AppDir: %s", path, GetAppDir())
	}
	if !strings.HasSuffix(path, "settings.json") {
		t.Errorf("Settings path should end with 'settings.json', got: %s", path)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("Settings path should be absolute, got: %s", path)
	}
}

func TestAppDirs(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("XDG_RUNTIME_DIR", "")

	if got := GetAppDir(); got != filepath.Join(base, "streamgrab") {
		t.Errorf("GetAppDir() = %s", got)
	}
	if !strings.HasPrefix(GetLogsDir(), GetStateDir()) {
		t.Error("logs dir should live under the state dir")
	}
	if err := EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	for _, dir := range []string{GetStateDir(), GetLogsDir(), GetRuntimeDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s was not created", dir)
		}
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	original := DefaultSettings()
	original.General.DownloadLocation = "/media/videos"
	original.Worker.ThreadCount = 8
	original.Worker.BinaryMerge = true
	original.Worker.SubFormat = "VTT"
	original.Session.Timeout = 30 * time.Second

	if err := SaveSettingsTo(path, original); err != nil {
		t.Fatalf("SaveSettingsTo failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	loaded, err := LoadSettingsFrom(path)
	if err != nil {
		t.Fatalf("LoadSettingsFrom failed: %v", err)
	}

	if loaded.General.DownloadLocation != "/media/videos" {
		t.Errorf("DownloadLocation mismatch: got %q", loaded.General.DownloadLocation)
	}
	if loaded.Worker != original.Worker {
		t.Errorf("Worker mismatch: got %+v, want %+v", loaded.Worker, original.Worker)
	}
	if loaded.Session.Timeout != 30*time.Second {
		t.Errorf("Timeout mismatch: got %v", loaded.Session.Timeout)
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	settings, err := LoadSettingsFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should yield defaults, got: %v", err)
	}
	if settings.Worker.ThreadCount != types.DefaultThreadCount {
		t.Error("Should return default settings with valid values")
	}
}

func TestLoadSettings_CorruptedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := LoadSettingsFrom(path); err == nil {
		t.Error("Expected error when loading invalid JSON")
	}
}

func TestLoadSettings_PartialJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	partial := `{
		"worker": {
			"thread_count": 4
		}
	}`
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadSettingsFrom(path)
	if err != nil {
		t.Fatalf("Failed to load partial JSON: %v", err)
	}
	if settings.Worker.ThreadCount != 4 {
		t.Errorf("ThreadCount = %d, want 4", settings.Worker.ThreadCount)
	}
	if settings.Worker.DownloadRetryCount != types.DefaultRetryCount {
		t.Error("missing fields should keep their defaults")
	}
	if settings.General.DownloadLocation == "" {
		t.Error("missing categories should keep their defaults")
	}
}

func TestLoadSettings_WorkerCounts(t *testing.T) {
	tests := []struct {
		name        string
		json        string
		wantThreads int
		wantRetries int
	}{
		{"zero retries kept", `{"worker":{"download_retry_count":0}}`, types.DefaultThreadCount, 0},
		{"negative retries", `{"worker":{"download_retry_count":-4}}`, types.DefaultThreadCount, types.DefaultRetryCount},
		{"zero threads", `{"worker":{"thread_count":0}}`, types.DefaultThreadCount, types.DefaultRetryCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.json")
			if err := os.WriteFile(path, []byte(tt.json), 0644); err != nil {
				t.Fatal(err)
			}
			settings, err := LoadSettingsFrom(path)
			if err != nil {
				t.Fatalf("LoadSettingsFrom failed: %v", err)
			}
			if settings.Worker.ThreadCount != tt.wantThreads {
				t.Errorf("ThreadCount = %d, want %d", settings.Worker.ThreadCount, tt.wantThreads)
			}
			if settings.Worker.DownloadRetryCount != tt.wantRetries {
				t.Errorf("DownloadRetryCount = %d, want %d", settings.Worker.DownloadRetryCount, tt.wantRetries)
			}
			if got := settings.ToWorkerOptions().RetryCount; got != tt.wantRetries {
				t.Errorf("ToWorkerOptions().RetryCount = %d, want %d", got, tt.wantRetries)
			}
		})
	}
}

func TestSaveAndLoadSettings_RealFunction(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	original := DefaultSettings()
	original.Worker.LogLevel = "DEBUG"
	if err := SaveSettings(original); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	if _, err := os.Stat(GetSettingsPath()); err != nil {
		t.Fatalf("settings file was not created: %v", err)
	}

	loaded, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.Worker.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q, want DEBUG", loaded.Worker.LogLevel)
	}
}

func TestToWorkerOptions(t *testing.T) {
	s := DefaultSettings()
	s.General.DownloadLocation = "/out"
	s.Worker.TmpDir = "/tmp/seg"
	s.Worker.ThreadCount = 32
	s.Worker.NoLog = true
	s.Worker.DefaultFormat = "mp4"

	opts := s.ToWorkerOptions()

	if opts.SaveDir != "/out" || opts.TempDir != "/tmp/seg" {
		t.Errorf("directories not forwarded: %+v", opts)
	}
	if opts.ThreadCount != 32 || opts.RetryCount != types.DefaultRetryCount {
		t.Errorf("counts not forwarded: %+v", opts)
	}
	if !opts.NoLog || opts.MuxFormat != "mp4" {
		t.Errorf("flags not forwarded: %+v", opts)
	}

	def := DefaultSettings().ToWorkerOptions()
	want := types.DefaultWorkerOptions()
	want.SaveDir = def.SaveDir
	want.TempDir = def.TempDir
	if def != want {
		t.Errorf("default settings should match worker defaults:\n got %+v\nwant %+v", def, want)
	}
}

func TestGetSettingsMetadata(t *testing.T) {
	metadata := GetSettingsMetadata()

	for _, category := range CategoryOrder() {
		if _, ok := metadata[category]; !ok {
			t.Errorf("Missing metadata for category %q", category)
		}
	}
	if len(metadata) != len(CategoryOrder()) {
		t.Errorf("metadata has %d categories, order lists %d", len(metadata), len(CategoryOrder()))
	}

	validTypes := map[string]bool{"string": true, "int": true, "bool": true, "duration": true}
	for category, settings := range metadata {
		for _, meta := range settings {
			if meta.Key == "" || meta.Label == "" || meta.Description == "" {
				t.Errorf("Incomplete metadata in %s: %+v", category, meta)
			}
			if !validTypes[meta.Type] {
				t.Errorf("Invalid type %q for %s", meta.Type, meta.Key)
			}
		}
	}
}

func TestSettingsMetadata_KeysMatchJSON(t *testing.T) {
	data, err := json.Marshal(DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}

	for category, settings := range GetSettingsMetadata() {
		section := raw[strings.ToLower(category)]
		for _, meta := range settings {
			if _, ok := section[meta.Key]; !ok {
				t.Errorf("metadata key %s.%s has no JSON field", category, meta.Key)
			}
		}
	}
}
