package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamgrab/streamgrab/internal/engine/types"
)

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind ErrorKind
		want string
	}{
		{"hls", "https://cdn.example.com/master.m3u8", "", "https://cdn.example.com/master.m3u8"},
		{"dash", "https://cdn.example.com/v/manifest.mpd", "", "https://cdn.example.com/v/manifest.mpd"},
		{"trimmed", "  https://cdn.example.com/a.m3u8?token=1  ", "", "https://cdn.example.com/a.m3u8?token=1"},
		{"upper case", "HTTPS://CDN.EXAMPLE.COM/A.M3U8", "", "HTTPS://CDN.EXAMPLE.COM/A.M3U8"},
		{"smooth", "https://cdn.example.com/v.ism/Manifest", "", "https://cdn.example.com/v.ism/Manifest"},
		{"format query", "https://cdn.example.com/play?format=hls", "", "https://cdn.example.com/play?format=hls"},
		{"not a url", "not a url", KindInvalidURL, ""},
		{"relative", "/videos/a.m3u8", KindInvalidURL, ""},
		{"empty", "", KindInvalidURL, ""},
		{"mp4", "https://cdn.example.com/video.mp4", KindUnsupportedFormat, ""},
		{"marker in host only", "https://m3u8.example.com/index.html", KindUnsupportedFormat, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSourceURL(tt.raw)
			if tt.kind == "" {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Empty(t, got)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	video := &types.TrackOption{ID: "res=1920x1080"}
	audio := &types.TrackOption{ID: "id=aud2"}

	tests := []struct {
		name string
		req  types.DownloadRequest
		ok   bool
	}{
		{"video only", types.DownloadRequest{OutputName: "movie", SelectedVideo: video}, true},
		{"video and audio", types.DownloadRequest{OutputName: "movie", SelectedVideo: video, SelectedAudio: audio}, true},
		{"audio only", types.DownloadRequest{OutputName: "song", SelectedAudio: audio, AudioOnly: true}, true},
		{"missing name", types.DownloadRequest{OutputName: "  ", SelectedVideo: video}, false},
		{"missing video", types.DownloadRequest{OutputName: "movie", SelectedAudio: audio}, false},
		{"audio only without audio", types.DownloadRequest{OutputName: "song", SelectedVideo: video, AudioOnly: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, KindInvalidRequest, KindOf(err))
			}
		})
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := WorkerRuntimeError("download failed: worker exited with code 1")
	assert.ErrorIs(t, err, &Error{Kind: KindWorkerRuntime})
	assert.NotErrorIs(t, err, &Error{Kind: KindWorkerRejected})
	assert.Equal(t, "download failed: worker exited with code 1", UserMessage(err))
	assert.Equal(t, "", UserMessage(nil))
}
