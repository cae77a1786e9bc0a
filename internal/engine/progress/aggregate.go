// Package progress turns per-track worker reports into the single
// percentage and readout shown to the user. Everything here is pure.
package progress

import (
	"fmt"

	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// Track weights of the overall percentage. Video dominates the byte volume
// of a typical adaptive stream. These are fixed and not derived from sizes.
const (
	VideoWeight    = 0.7
	AudioWeight    = 0.2
	SubtitleWeight = 0.1
)

// Placeholders shown when no progress has been reported yet.
const (
	PlaceholderDownloaded = "0.00%"
	PlaceholderSpeed      = "0.00 B/s"
	PlaceholderETA        = "--:--:--"
)

// Display is the readout triple for the primary track.
type Display struct {
	Downloaded string `json:"downloaded"`
	Speed      string `json:"speed"`
	ETA        string `json:"eta"`
}

// TrackPercentage returns the completion of one track in [0,100] terms.
// Counters win over the reported percentage whenever a total is known.
func TrackPercentage(p *types.TrackProgress) float64 {
	if p == nil {
		return 0
	}
	if p.Total > 0 {
		return 100 * float64(p.Current) / float64(p.Total)
	}
	return p.Percentage
}

// OverallPercentage folds the snapshot into one number.
func OverallPercentage(s *types.SessionSnapshot, audioOnly bool) float64 {
	if s == nil {
		return 0
	}
	if audioOnly {
		return TrackPercentage(s.Audio)
	}
	return TrackPercentage(s.Video)*VideoWeight +
		TrackPercentage(s.Audio)*AudioWeight +
		TrackPercentage(s.Subtitle)*SubtitleWeight
}

// PrimaryTrackForDisplay picks the track whose labels are shown.
// Video is preferred once it reports activity; audio covers audio-only jobs
// and the window before video starts.
func PrimaryTrackForDisplay(s *types.SessionSnapshot, audioOnly bool) *types.TrackProgress {
	if s == nil {
		return nil
	}
	if audioOnly {
		return s.Audio
	}
	if v := s.Video; v != nil && (v.Current > 0 || v.Percentage > 0) {
		return v
	}
	return s.Audio
}

// FormatDisplay returns the readout for p. Fields are never blank.
func FormatDisplay(p *types.TrackProgress) Display {
	if p == nil {
		return Display{
			Downloaded: PlaceholderDownloaded,
			Speed:      PlaceholderSpeed,
			ETA:        PlaceholderETA,
		}
	}

	d := Display{
		Downloaded: p.DownloadedLabel,
		Speed:      p.SpeedLabel,
		ETA:        p.ETALabel,
	}
	if d.Downloaded == "" {
		d.Downloaded = fmt.Sprintf("%.2f%%", TrackPercentage(p))
	}
	if d.Speed == "" {
		d.Speed = PlaceholderSpeed
	}
	if d.ETA == "" {
		d.ETA = PlaceholderETA
	}
	return d
}

// Clamp bounds a percentage to [0,100] for progress bars.
func Clamp(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
