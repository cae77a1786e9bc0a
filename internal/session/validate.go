package session

import (
	"net/url"
	"strings"

	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// manifestMarkers are matched case-insensitively against path and query.
var manifestMarkers = []string{
	".m3u8",
	".m3u",
	".mpd",
	".ism/manifest",
	".isml/manifest",
	"format=m3u8",
	"format=mpd",
	"format=hls",
	"format=dash",
}

// ValidateSourceURL is the gate in front of enumeration. It returns the
// trimmed URL.
func ValidateSourceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", InvalidURLError(raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", InvalidURLError(raw, nil)
	}

	target := strings.ToLower(u.Path + "?" + u.RawQuery)
	for _, marker := range manifestMarkers {
		if strings.Contains(target, marker) {
			return raw, nil
		}
	}
	return "", UnsupportedFormatError(raw)
}

// ValidateRequest checks the invariant every start request must hold.
func ValidateRequest(req types.DownloadRequest) error {
	if strings.TrimSpace(req.OutputName) == "" {
		return InvalidRequestError("an output name is required")
	}
	if req.AudioOnly {
		if req.SelectedAudio == nil {
			return InvalidRequestError("select an audio track for an audio-only download")
		}
		return nil
	}
	if req.SelectedVideo == nil {
		return InvalidRequestError("select a video track")
	}
	return nil
}
