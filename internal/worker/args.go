package worker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// EnumerateArgs builds the command line that makes the worker print the
// variants of url without downloading media segments.
func EnumerateArgs(url string, headers []types.RequestHeader) []string {
	args := []string{url}
	for _, h := range types.FilterHeaders(headers) {
		args = append(args, "-H", h.Name+": "+h.Value)
	}
	return append(args,
		"--skip-download",
		"--auto-select",
		"--write-meta-json", "false",
		"--del-after-done",
	)
}

// StartArgs builds the command line of a download job. Selected track ids
// are worker selection expressions and are passed through unchanged, as are
// all settings in opts.
func StartArgs(req types.DownloadRequest, opts types.WorkerOptions) []string {
	args := []string{req.SourceURL, "--save-name", req.OutputName}

	for _, h := range types.FilterHeaders(req.Headers) {
		args = append(args, "--header", h.Name+": "+h.Value)
	}

	if req.SelectedVideo != nil && !req.AudioOnly {
		args = append(args, "-sv", req.SelectedVideo.ID)
	}
	if req.AudioOnly {
		args = append(args, "--drop-video", "for=all")
	}
	if req.SelectedAudio != nil {
		args = append(args, "-sa", req.SelectedAudio.ID)
	}
	if req.SelectedSubtitle != nil {
		args = append(args, "-ss", req.SelectedSubtitle.ID)
	}

	if req.AutoMerge {
		format := opts.MuxFormat
		if format == "" {
			format = types.DefaultMuxFormat
		}
		args = append(args, "-M", fmt.Sprintf("format=%s:muxer=ffmpeg:bin_path=auto:skip_sub=%t:keep=true", format, req.AudioOnly))
	}

	if opts.SaveDir != "" {
		args = append(args, "--save-dir", opts.SaveDir)
	}
	if opts.TempDir != "" {
		args = append(args, "--tmp-dir", opts.TempDir)
	}

	args = append(args,
		"--thread-count", strconv.Itoa(orDefault(opts.ThreadCount, types.DefaultThreadCount)),
		"--download-retry-count", strconv.Itoa(retryCount(opts.RetryCount)),
		"--sub-format", orDefaultString(opts.SubFormat, types.DefaultSubFormat),
		"--log-level", orDefaultString(opts.LogLevel, types.DefaultWorkerLogLevel),
	)

	for _, f := range []struct {
		name string
		on   bool
	}{
		{"--binary-merge", opts.BinaryMerge},
		{"--use-ffmpeg-concat-demuxer", opts.UseFFmpegConcatDemuxer},
		{"--check-segments-count", opts.CheckSegmentsCount},
		{"--del-after-done", opts.DelAfterDone},
		{"--no-date-info", opts.NoDateInfo},
		{"--no-log", opts.NoLog},
		{"--write-meta-json", opts.WriteMetaJSON},
		{"--append-url-params", opts.AppendURLParams},
		{"--concurrent-download", opts.ConcurrentDownload},
		{"--sub-only", opts.SubOnly},
		{"--auto-subtitle-fix", opts.AutoSubtitleFix},
		{"--use-system-proxy", opts.UseSystemProxy},
	} {
		args = append(args, f.name, strconv.FormatBool(f.on))
	}

	return append(args, "--force-ansi-console")
}

// VideoSelector encodes a video variant as the worker's selection expression.
func VideoSelector(v types.VideoStream) string {
	bw, _ := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(v.Bitrate, "Kbps")))
	return fmt.Sprintf("res=%s:bwMin=%d:bwMax=%d:frame=%s:codecs=%s", v.Resolution, bw-1, bw+1, v.FPS, v.Codec)
}

// AudioSelector encodes an audio rendition as the worker's selection expression.
func AudioSelector(a types.AudioStream) string {
	return fmt.Sprintf("id=%s:name=%s:lang=%s:ch=%s", a.ID, a.Name, a.Language, a.Channels)
}

// SubtitleSelector encodes a subtitle rendition as the worker's selection expression.
func SubtitleSelector(s types.SubtitleStream) string {
	return fmt.Sprintf("id=%s:name=%s:lang=%s", s.ID, s.Name, s.Language)
}

// retryCount passes zero through; it disables retries.
func retryCount(n int) int {
	if n < 0 {
		return types.DefaultRetryCount
	}
	return n
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
