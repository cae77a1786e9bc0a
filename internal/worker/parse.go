package worker

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// Enumeration lines look like
//
//	12:00:00.000 INFO : Vid 1920x1080 | 7968 Kbps | 60 | avc1.64002a
//	12:00:00.000 INFO : Aud aud2 | English | en | 6CH
//	12:00:00.000 INFO : Sub sub1 | en | English
const (
	videoMarker    = "INFO : Vid"
	audioMarker    = "INFO : Aud"
	subtitleMarker = "INFO : Sub"
)

// progressPattern matches a per-track progress line such as
//
//	Vid 1920x1080 | 7968 Kbps ----------  45/368  12.23%  56.60MB/163.34MB  3.21MBps  00:00:33
var progressPattern = regexp.MustCompile(
	`(?i)(Vid|Aud|Sub).*?[-━─]+\s+(\d+)/(\d+)\s+(\d+\.?\d*)%\s+` +
		`((?:[\d.]+(?:B|KB|MB|GB)(?:/[\d.]+(?:B|KB|MB|GB))?)|[-\s]+)\s+` +
		`((?:[\d.]+(?:B|KB|MB|GB)ps)|[-\s]+)\s+` +
		`(\d+:\d+:\d+|--:--:--)`)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// StripANSI removes terminal escape sequences from a worker output line.
func StripANSI(line string) string {
	return ansiPattern.ReplaceAllString(line, "")
}

// StreamCollector accumulates enumeration lines into a streams-ready payload.
// The worker lists selected streams a second time; duplicates are dropped.
type StreamCollector struct {
	msg  events.StreamsReadyMsg
	seen map[string]bool
}

// NewStreamCollector creates a collector for sessionID.
func NewStreamCollector(sessionID string) *StreamCollector {
	return &StreamCollector{
		msg:  events.StreamsReadyMsg{SessionID: sessionID},
		seen: make(map[string]bool),
	}
}

// Add consumes one output line and reports whether it described a stream.
func (c *StreamCollector) Add(line string) bool {
	line = StripANSI(line)

	if fields, ok := fieldsAfter(line, videoMarker, 4); ok {
		v := types.VideoStream{
			Resolution: fields[0],
			Bitrate:    strings.TrimSpace(strings.TrimSuffix(fields[1], "Kbps")),
			FPS:        fields[2],
			Codec:      fields[3],
		}
		v.Selector = VideoSelector(v)
		v.ID = v.Resolution + "@" + v.Bitrate
		if c.mark("v:" + v.Selector) {
			c.msg.Video = append(c.msg.Video, v)
		}
		return true
	}
	if fields, ok := fieldsAfter(line, audioMarker, 4); ok {
		a := types.AudioStream{ID: fields[0], Name: fields[1], Language: fields[2], Channels: fields[3]}
		a.Selector = AudioSelector(a)
		if c.mark("a:" + a.Selector) {
			c.msg.Audio = append(c.msg.Audio, a)
		}
		return true
	}
	if fields, ok := fieldsAfter(line, subtitleMarker, 3); ok {
		s := types.SubtitleStream{ID: fields[0], Language: fields[1], Name: fields[2]}
		s.Selector = SubtitleSelector(s)
		if c.mark("s:" + s.Selector) {
			c.msg.Subtitle = append(c.msg.Subtitle, s)
		}
		return true
	}
	return false
}

// Result returns the payload collected so far.
func (c *StreamCollector) Result() events.StreamsReadyMsg {
	return c.msg
}

// Count returns the number of distinct streams collected.
func (c *StreamCollector) Count() int {
	return len(c.msg.Video) + len(c.msg.Audio) + len(c.msg.Subtitle)
}

func (c *StreamCollector) mark(key string) bool {
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	return true
}

func fieldsAfter(line, marker string, min int) ([]string, bool) {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return nil, false
	}
	parts := strings.Split(line[idx+len(marker):], "|")
	if len(parts) < min {
		return nil, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, true
}

// ParseProgressLine extracts one track's progress from a worker output line.
func ParseProgressLine(line string) (types.TrackKind, types.TrackProgress, bool) {
	m := progressPattern.FindStringSubmatch(StripANSI(line))
	if m == nil {
		return "", types.TrackProgress{}, false
	}

	current, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return "", types.TrackProgress{}, false
	}
	total, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return "", types.TrackProgress{}, false
	}
	pct, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return "", types.TrackProgress{}, false
	}

	p := types.TrackProgress{
		Current:    current,
		Total:      total,
		Percentage: pct,
		SpeedLabel: blankIfDashes(m[6]),
		ETALabel:   strings.TrimSpace(m[7]),
	}
	sizes := blankIfDashes(m[5])
	if done, all, ok := strings.Cut(sizes, "/"); ok {
		p.DownloadedLabel, p.TotalSizeLabel = done, all
	} else {
		p.DownloadedLabel = sizes
	}

	var kind types.TrackKind
	switch strings.ToLower(m[1]) {
	case "vid":
		kind = types.TrackVideo
	case "aud":
		kind = types.TrackAudio
	default:
		kind = types.TrackSubtitle
	}
	return kind, p, true
}

func blankIfDashes(s string) string {
	s = strings.TrimSpace(s)
	if strings.Trim(s, "- ") == "" {
		return ""
	}
	return s
}

// ProgressTracker folds progress lines into the session's latest snapshot.
// It is owned by the goroutine reading the worker's output.
type ProgressTracker struct {
	snap types.SessionSnapshot
}

// Apply consumes a line and returns a fresh copy of the snapshot when the
// line carried progress.
func (t *ProgressTracker) Apply(line string) (types.SessionSnapshot, bool) {
	kind, p, ok := ParseProgressLine(line)
	if !ok {
		return types.SessionSnapshot{}, false
	}
	switch kind {
	case types.TrackVideo:
		t.snap.Video = &p
	case types.TrackAudio:
		t.snap.Audio = &p
	case types.TrackSubtitle:
		t.snap.Subtitle = &p
	}
	return *t.snap.Clone(), true
}
