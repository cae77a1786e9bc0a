package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General GeneralSettings `json:"general" yaml:"general"`
	Worker  WorkerSettings  `json:"worker" yaml:"worker"`
	Session SessionSettings `json:"session" yaml:"session"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	DownloadLocation  string `json:"download_location" yaml:"download_location"`
	ClipboardMonitor  bool   `json:"clipboard_monitor" yaml:"clipboard_monitor"`
	Theme             int    `json:"theme" yaml:"theme"`
	LogLevel          string `json:"log_level" yaml:"log_level"`
	LogRetentionCount int    `json:"log_retention_count" yaml:"log_retention_count"`
	DebugMode         bool   `json:"debug_mode" yaml:"debug_mode"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// WorkerSettings are passed through to N_m3u8DL-RE.
type WorkerSettings struct {
	BinaryPath             string `json:"binary_path" yaml:"binary_path"`
	TmpDir                 string `json:"tmp_dir" yaml:"tmp_dir"`
	ThreadCount            int    `json:"thread_count" yaml:"thread_count"`
	DownloadRetryCount     int    `json:"download_retry_count" yaml:"download_retry_count"`
	SubFormat              string `json:"sub_format" yaml:"sub_format"`
	LogLevel               string `json:"log_level" yaml:"log_level"`
	DefaultFormat          string `json:"default_format" yaml:"default_format"`
	CheckSegmentsCount     bool   `json:"check_segments_count" yaml:"check_segments_count"`
	BinaryMerge            bool   `json:"binary_merge" yaml:"binary_merge"`
	UseFFmpegConcatDemuxer bool   `json:"use_ffmpeg_concat_demuxer" yaml:"use_ffmpeg_concat_demuxer"`
	DelAfterDone           bool   `json:"del_after_done" yaml:"del_after_done"`
	NoDateInfo             bool   `json:"no_date_info" yaml:"no_date_info"`
	NoLog                  bool   `json:"no_log" yaml:"no_log"`
	WriteMetaJSON          bool   `json:"write_meta_json" yaml:"write_meta_json"`
	AppendURLParams        bool   `json:"append_url_params" yaml:"append_url_params"`
	ConcurrentDownload     bool   `json:"concurrent_download" yaml:"concurrent_download"`
	SubOnly                bool   `json:"sub_only" yaml:"sub_only"`
	AutoSubtitleFix        bool   `json:"auto_subtitle_fix" yaml:"auto_subtitle_fix"`
	UseSystemProxy         bool   `json:"use_system_proxy" yaml:"use_system_proxy"`
}

// SessionSettings tune the session controller and its front ends.
type SessionSettings struct {
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	AutoMerge    bool          `json:"auto_merge" yaml:"auto_merge"`
	AutoStart    bool          `json:"auto_start" yaml:"auto_start"`
	KeepHistory  bool          `json:"keep_history" yaml:"keep_history"`
	HistoryLimit int           `json:"history_limit" yaml:"history_limit"`
}

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text displayed in right pane
	Type        string // "string", "int", "bool", "duration"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "download_location", Label: "Download Location", Description: "Directory the worker saves finished files to.", Type: "string"},
			{Key: "clipboard_monitor", Label: "Clipboard Monitor", Description: "Offer the clipboard contents when it holds a manifest URL.", Type: "bool"},
			{Key: "theme", Label: "App Theme", Description: "UI Theme (System, Light, Dark).", Type: "int"},
			{Key: "log_level", Label: "Log Level", Description: "Application log level (debug, info, warn, error).", Type: "string"},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
			{Key: "debug_mode", Label: "Debug Mode", Description: "Write a debug log file for every run.", Type: "bool"},
		},
		"Worker": {
			{Key: "binary_path", Label: "Worker Binary", Description: "Path or name of the N_m3u8DL-RE executable.", Type: "string"},
			{Key: "tmp_dir", Label: "Temp Dir", Description: "Directory for segments while downloading.", Type: "string"},
			{Key: "thread_count", Label: "Thread Count", Description: "Concurrent segment downloads per track.", Type: "int"},
			{Key: "download_retry_count", Label: "Retry Count", Description: "Times a failed segment is retried.", Type: "int"},
			{Key: "sub_format", Label: "Subtitle Format", Description: "Subtitle output format (SRT or VTT).", Type: "string"},
			{Key: "log_level", Label: "Worker Log Level", Description: "Worker log level (DEBUG, INFO, WARN, ERROR, OFF).", Type: "string"},
			{Key: "default_format", Label: "Mux Format", Description: "Container used when merging tracks (mkv, mp4).", Type: "string"},
			{Key: "check_segments_count", Label: "Check Segments", Description: "Verify that every segment was downloaded.", Type: "bool"},
			{Key: "binary_merge", Label: "Binary Merge", Description: "Concatenate segments without ffmpeg.", Type: "bool"},
			{Key: "use_ffmpeg_concat_demuxer", Label: "FFmpeg Concat Demuxer", Description: "Merge with the ffmpeg concat demuxer.", Type: "bool"},
			{Key: "del_after_done", Label: "Delete Segments", Description: "Remove temporary segments after merging.", Type: "bool"},
			{Key: "no_date_info", Label: "No Date Info", Description: "Do not write date info into the output.", Type: "bool"},
			{Key: "no_log", Label: "No Worker Log", Description: "Disable the worker's own log file.", Type: "bool"},
			{Key: "write_meta_json", Label: "Write Meta JSON", Description: "Write the worker's metadata JSON next to the output.", Type: "bool"},
			{Key: "append_url_params", Label: "Append URL Params", Description: "Append manifest query parameters to segment URLs.", Type: "bool"},
			{Key: "concurrent_download", Label: "Concurrent Download", Description: "Download the selected tracks at the same time.", Type: "bool"},
			{Key: "sub_only", Label: "Subtitles Only", Description: "Download only the selected subtitles.", Type: "bool"},
			{Key: "auto_subtitle_fix", Label: "Subtitle Fix", Description: "Let the worker fix subtitle timing.", Type: "bool"},
			{Key: "use_system_proxy", Label: "System Proxy", Description: "Use the system proxy settings.", Type: "bool"},
		},
		"Session": {
			{Key: "timeout", Label: "Discovery Timeout", Description: "How long to wait for the stream list (e.g., 2m).", Type: "duration"},
			{Key: "auto_merge", Label: "Auto Merge", Description: "Merge the selected tracks into one file by default.", Type: "bool"},
			{Key: "auto_start", Label: "Auto Start", Description: "Start with the best tracks as soon as the list is loaded.", Type: "bool"},
			{Key: "keep_history", Label: "Keep History", Description: "Record finished sessions.", Type: "bool"},
			{Key: "history_limit", Label: "History Limit", Description: "Entries shown by the history view.", Type: "int"},
		},
	}
}

// CategoryOrder returns the order of categories for UI tabs.
func CategoryOrder() []string {
	return []string{"General", "Worker", "Session"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	saveDir := filepath.Join(homeDir, "Downloads", "m3u8")

	return &Settings{
		General: GeneralSettings{
			DownloadLocation:  saveDir,
			ClipboardMonitor:  true,
			Theme:             ThemeAdaptive,
			LogLevel:          "info",
			LogRetentionCount: 5,
		},
		Worker: WorkerSettings{
			BinaryPath:         types.DefaultWorkerBinary,
			TmpDir:             filepath.Join(saveDir, "Temp"),
			ThreadCount:        types.DefaultThreadCount,
			DownloadRetryCount: types.DefaultRetryCount,
			SubFormat:          types.DefaultSubFormat,
			LogLevel:           types.DefaultWorkerLogLevel,
			DefaultFormat:      types.DefaultMuxFormat,
			CheckSegmentsCount: true,
			DelAfterDone:       true,
			WriteMetaJSON:      true,
			AutoSubtitleFix:    true,
			UseSystemProxy:     true,
		},
		Session: SessionSettings{
			Timeout:      types.DefaultEnumerateTimeout,
			AutoMerge:    true,
			KeepHistory:  true,
			HistoryLimit: 50,
		},
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from path, filling missing fields with defaults.
func LoadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	settings.normalize()
	return settings, nil
}

// normalize replaces values the worker cannot accept. Zero retries is valid.
func (s *Settings) normalize() {
	if s.Worker.ThreadCount < 1 {
		s.Worker.ThreadCount = types.DefaultThreadCount
	}
	if s.Worker.DownloadRetryCount < 0 {
		s.Worker.DownloadRetryCount = types.DefaultRetryCount
	}
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	return SaveSettingsTo(GetSettingsPath(), s)
}

// SaveSettingsTo writes s to path through a temp file and rename.
func SaveSettingsTo(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

// ToWorkerOptions creates the worker options snapshot sent with every job.
func (s *Settings) ToWorkerOptions() types.WorkerOptions {
	w := s.Worker
	return types.WorkerOptions{
		BinaryPath:             w.BinaryPath,
		SaveDir:                s.General.DownloadLocation,
		TempDir:                w.TmpDir,
		ThreadCount:            w.ThreadCount,
		RetryCount:             w.DownloadRetryCount,
		SubFormat:              w.SubFormat,
		LogLevel:               w.LogLevel,
		MuxFormat:              w.DefaultFormat,
		BinaryMerge:            w.BinaryMerge,
		UseFFmpegConcatDemuxer: w.UseFFmpegConcatDemuxer,
		CheckSegmentsCount:     w.CheckSegmentsCount,
		DelAfterDone:           w.DelAfterDone,
		NoDateInfo:             w.NoDateInfo,
		NoLog:                  w.NoLog,
		WriteMetaJSON:          w.WriteMetaJSON,
		AppendURLParams:        w.AppendURLParams,
		ConcurrentDownload:     w.ConcurrentDownload,
		SubOnly:                w.SubOnly,
		AutoSubtitleFix:        w.AutoSubtitleFix,
		UseSystemProxy:         w.UseSystemProxy,
	}
}
