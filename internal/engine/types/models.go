package types

import "strings"

// TrackOption is one selectable variant as shown to the user.
// ID is assigned by the worker and forwarded back to it unchanged.
type TrackOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// StreamOptions holds the variants discovered for a manifest.
// A load always replaces all three lists together.
type StreamOptions struct {
	Video    []TrackOption `json:"video"`
	Audio    []TrackOption `json:"audio"`
	Subtitle []TrackOption `json:"subtitle"`
}

// Empty reports whether no variant of any kind was discovered.
func (o *StreamOptions) Empty() bool {
	return o == nil || (len(o.Video) == 0 && len(o.Audio) == 0 && len(o.Subtitle) == 0)
}

// RequestHeader is a user supplied HTTP header forwarded to the worker.
type RequestHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FilterHeaders drops entries whose name or value is blank.
func FilterHeaders(headers []RequestHeader) []RequestHeader {
	out := make([]RequestHeader, 0, len(headers))
	for _, h := range headers {
		name := strings.TrimSpace(h.Name)
		value := strings.TrimSpace(h.Value)
		if name == "" || value == "" {
			continue
		}
		out = append(out, RequestHeader{Name: name, Value: value})
	}
	return out
}

// ParseHeaderList parses "Name: Value" entries separated by ';' or newlines.
// Malformed entries are skipped.
func ParseHeaderList(raw string) []RequestHeader {
	var headers []RequestHeader
	for _, entry := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '\n' }) {
		name, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		headers = append(headers, RequestHeader{Name: name, Value: value})
	}
	return FilterHeaders(headers)
}

// DownloadRequest is the user's intent for one download job.
type DownloadRequest struct {
	SourceURL        string          `json:"source_url"`
	OutputName       string          `json:"output_name"`
	Headers          []RequestHeader `json:"headers,omitempty"`
	SelectedVideo    *TrackOption    `json:"selected_video,omitempty"`
	SelectedAudio    *TrackOption    `json:"selected_audio,omitempty"`
	SelectedSubtitle *TrackOption    `json:"selected_subtitle,omitempty"`
	AutoMerge        bool            `json:"auto_merge"`
	AudioOnly        bool            `json:"audio_only"`
}

// TrackProgress is the worker's latest report for one track.
// The labels are worker formatted and displayed verbatim.
type TrackProgress struct {
	Current         uint64  `json:"current"`
	Total           uint64  `json:"total"`
	Percentage      float64 `json:"percentage"`
	DownloadedLabel string  `json:"downloaded"`
	TotalSizeLabel  string  `json:"total_size"`
	SpeedLabel      string  `json:"speed"`
	ETALabel        string  `json:"eta"`
}

// SessionSnapshot is the latest progress of every track of a session.
// Each progress event replaces the whole snapshot.
type SessionSnapshot struct {
	Video    *TrackProgress `json:"video,omitempty"`
	Audio    *TrackProgress `json:"audio,omitempty"`
	Subtitle *TrackProgress `json:"subtitle,omitempty"`
}

// Clone returns a deep copy so readers never share track pointers with writers.
func (s *SessionSnapshot) Clone() *SessionSnapshot {
	if s == nil {
		return nil
	}
	cp := func(t *TrackProgress) *TrackProgress {
		if t == nil {
			return nil
		}
		c := *t
		return &c
	}
	return &SessionSnapshot{Video: cp(s.Video), Audio: cp(s.Audio), Subtitle: cp(s.Subtitle)}
}

// TrackKind identifies the track a worker progress line belongs to.
type TrackKind string

const (
	TrackVideo    TrackKind = "video"
	TrackAudio    TrackKind = "audio"
	TrackSubtitle TrackKind = "subtitle"
)

// Stream descriptors as reported by the worker. Selector is the worker's
// own selection expression for the variant and becomes the TrackOption id.

// VideoStream is a video variant.
type VideoStream struct {
	ID         string `json:"id"`
	Selector   string `json:"selector"`
	Resolution string `json:"resolution"`
	Bitrate    string `json:"bitrate"`
	FPS        string `json:"fps"`
	Codec      string `json:"codec"`
}

// AudioStream is an audio rendition.
type AudioStream struct {
	ID       string `json:"id"`
	Selector string `json:"selector"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Channels string `json:"channels"`
}

// SubtitleStream is a subtitle rendition.
type SubtitleStream struct {
	ID       string `json:"id"`
	Selector string `json:"selector"`
	Name     string `json:"name"`
	Language string `json:"language"`
}
