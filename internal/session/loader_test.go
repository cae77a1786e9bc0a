package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/testutil"
)

func sampleStreams() events.StreamsReadyMsg {
	return events.StreamsReadyMsg{
		Video: []types.VideoStream{{
			ID:         "1920x1080@7968",
			Selector:   "res=1920x1080:bwMin=7967:bwMax=7969:frame=60:codecs=avc1",
			Resolution: "1920x1080",
			Bitrate:    "7968",
			FPS:        "60",
			Codec:      "avc1",
		}},
		Audio: []types.AudioStream{{
			ID:       "aud2",
			Selector: "id=aud2:name=English:lang=en:ch=6CH",
			Name:     "English",
			Language: "en",
			Channels: "6CH",
		}},
		Subtitle: []types.SubtitleStream{{
			ID:       "sub1",
			Selector: "id=sub1:name=English:lang=en",
			Name:     "English",
			Language: "en",
		}},
	}
}

// =============================================================================
// OptionsLoader
// =============================================================================

func TestLoader_ReturnsNormalizedOptions(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(sampleStreams()))
	loader := NewOptionsLoader(bridge)

	headers := []types.RequestHeader{{Name: "Referer", Value: " https://x "}, {Name: "Cookie", Value: "  "}}
	opts, err := loader.Load(context.Background(), "s1", "https://x/a.m3u8", headers)
	require.NoError(t, err)

	require.Len(t, opts.Video, 1)
	assert.Equal(t, "res=1920x1080:bwMin=7967:bwMax=7969:frame=60:codecs=avc1", opts.Video[0].ID)
	assert.Equal(t, "1920x1080 | 7968 Kbps | 60 fps | avc1", opts.Video[0].Label)
	assert.Equal(t, "English (en) | 6CH | aud2", opts.Audio[0].Label)
	assert.Equal(t, "English (en) | sub1", opts.Subtitle[0].Label)

	calls := bridge.Enumerates()
	require.Len(t, calls, 1)
	assert.Equal(t, []types.RequestHeader{{Name: "Referer", Value: "https://x"}}, calls[0].Headers)
	assert.Equal(t, 0, bridge.Subscriptions(), "subscription must be released")
}

func TestLoader_EmptyListIsNotAnError(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(events.StreamsReadyMsg{}))
	opts, err := NewOptionsLoader(bridge).Load(context.Background(), "s1", "https://x/a.m3u8", nil)
	require.NoError(t, err)
	assert.True(t, opts.Empty())
	assert.NotNil(t, opts.Video)
}

func TestLoader_RejectionIsVerbatim(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithEnumerateError(errors.New("HTTP 403 Forbidden")))
	_, err := NewOptionsLoader(bridge).Load(context.Background(), "s1", "https://x/a.m3u8", nil)

	assert.Equal(t, KindStreamDiscovery, KindOf(err))
	assert.Equal(t, "HTTP 403 Forbidden", UserMessage(err))
	assert.Equal(t, 0, bridge.Subscriptions())
}

func TestLoader_TimesOutWithoutResult(t *testing.T) {
	bridge := testutil.NewMockBridge()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewOptionsLoader(bridge).Load(ctx, "s1", "https://x/a.m3u8", nil)
	assert.Equal(t, KindStreamDiscovery, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, bridge.Subscriptions())
}

func TestLoader_IgnoresOtherSessions(t *testing.T) {
	bridge := testutil.NewMockBridge()
	loader := NewOptionsLoader(bridge)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		bridge.Bus.Emit(events.StreamsReadyMsg{SessionID: "other"})
	}()

	_, err := loader.Load(ctx, "s1", "https://x/a.m3u8", nil)
	assert.Error(t, err)
}

func TestLoader_SubscribeFailure(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithSubscribeError(errors.New("bridge down")))
	_, err := NewOptionsLoader(bridge).Load(context.Background(), "s1", "https://x/a.m3u8", nil)
	assert.Equal(t, KindStreamDiscovery, KindOf(err))
	assert.Equal(t, int64(0), bridge.EnumerateCount.Load())
}

func TestNormalizeStreams_FallsBackToID(t *testing.T) {
	opts := NormalizeStreams(events.StreamsReadyMsg{
		Audio: []types.AudioStream{{ID: "aud1", Language: "fr"}},
	})
	assert.Equal(t, "aud1", opts.Audio[0].ID)
	assert.Equal(t, "fr | aud1", opts.Audio[0].Label)
}
