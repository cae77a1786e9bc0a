package types

import "time"

// Worker defaults.
const (
	DefaultWorkerBinary     = "N_m3u8DL-RE"
	DefaultThreadCount      = 16
	DefaultRetryCount       = 3
	DefaultSubFormat        = "SRT"
	DefaultWorkerLogLevel   = "INFO"
	DefaultMuxFormat        = "mkv"
	DefaultEnumerateTimeout = 2 * time.Minute
)

// Channel buffer sizes
const (
	ProgressChannelBuffer = 100
)

// WorkerOptions is the read-only settings snapshot forwarded to the worker
// with every start request. The controller never interprets these values.
type WorkerOptions struct {
	BinaryPath             string `json:"binary_path,omitempty"`
	SaveDir                string `json:"save_dir"`
	TempDir                string `json:"tmp_dir"`
	ThreadCount            int    `json:"thread_count"`
	RetryCount             int    `json:"download_retry_count"`
	SubFormat              string `json:"sub_format"`
	LogLevel               string `json:"log_level"`
	MuxFormat              string `json:"mux_format"`
	BinaryMerge            bool   `json:"binary_merge"`
	UseFFmpegConcatDemuxer bool   `json:"use_ffmpeg_concat_demuxer"`
	CheckSegmentsCount     bool   `json:"check_segments_count"`
	DelAfterDone           bool   `json:"del_after_done"`
	NoDateInfo             bool   `json:"no_date_info"`
	NoLog                  bool   `json:"no_log"`
	WriteMetaJSON          bool   `json:"write_meta_json"`
	AppendURLParams        bool   `json:"append_url_params"`
	ConcurrentDownload     bool   `json:"concurrent_download"`
	SubOnly                bool   `json:"sub_only"`
	AutoSubtitleFix        bool   `json:"auto_subtitle_fix"`
	UseSystemProxy         bool   `json:"use_system_proxy"`
}

// DefaultWorkerOptions mirrors the worker's own defaults.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		BinaryPath:         DefaultWorkerBinary,
		ThreadCount:        DefaultThreadCount,
		RetryCount:         DefaultRetryCount,
		SubFormat:          DefaultSubFormat,
		LogLevel:           DefaultWorkerLogLevel,
		MuxFormat:          DefaultMuxFormat,
		CheckSegmentsCount: true,
		DelAfterDone:       true,
		WriteMetaJSON:      true,
		AutoSubtitleFix:    true,
		UseSystemProxy:     true,
	}
}
