package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/streamgrab/streamgrab/internal/core"
	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// OptionsLoader asks the worker for the variants of a manifest. Every call
// makes exactly one enumeration request and holds exactly one streams-ready
// subscription, released before it returns.
type OptionsLoader struct {
	bridge core.WorkerBridge
}

// NewOptionsLoader creates a loader on bridge.
func NewOptionsLoader(bridge core.WorkerBridge) *OptionsLoader {
	return &OptionsLoader{bridge: bridge}
}

// Load returns the normalized options for url. It waits until the worker
// publishes its result or ctx ends; callers bound the wait through ctx.
func (l *OptionsLoader) Load(ctx context.Context, sessionID, url string, headers []types.RequestHeader) (*types.StreamOptions, error) {
	results := make(chan events.StreamsReadyMsg, 1)
	var once sync.Once

	unsubscribe, err := l.bridge.Subscribe(events.TopicStreamsReady, sessionID, func(msg any) {
		m, ok := msg.(events.StreamsReadyMsg)
		if !ok {
			return
		}
		once.Do(func() { results <- m })
	})
	if err != nil {
		return nil, StreamDiscoveryError(err.Error(), err)
	}
	defer unsubscribe()

	if err := l.bridge.Enumerate(ctx, sessionID, url, types.FilterHeaders(headers)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, discoveryTimeout(ctxErr)
		}
		return nil, StreamDiscoveryError(err.Error(), err)
	}

	select {
	case m := <-results:
		return NormalizeStreams(m), nil
	case <-ctx.Done():
		return nil, discoveryTimeout(ctx.Err())
	}
}

func discoveryTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return StreamDiscoveryError("timed out waiting for the stream list", err)
	}
	return StreamDiscoveryError("stream discovery was cancelled", err)
}

// NormalizeStreams converts worker descriptors into display options.
func NormalizeStreams(m events.StreamsReadyMsg) *types.StreamOptions {
	opts := &types.StreamOptions{
		Video:    make([]types.TrackOption, 0, len(m.Video)),
		Audio:    make([]types.TrackOption, 0, len(m.Audio)),
		Subtitle: make([]types.TrackOption, 0, len(m.Subtitle)),
	}
	for _, v := range m.Video {
		opts.Video = append(opts.Video, types.TrackOption{ID: pick(v.Selector, v.ID), Label: videoLabel(v)})
	}
	for _, a := range m.Audio {
		opts.Audio = append(opts.Audio, types.TrackOption{ID: pick(a.Selector, a.ID), Label: audioLabel(a)})
	}
	for _, s := range m.Subtitle {
		opts.Subtitle = append(opts.Subtitle, types.TrackOption{ID: pick(s.Selector, s.ID), Label: subtitleLabel(s)})
	}
	return opts
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

func videoLabel(v types.VideoStream) string {
	parts := []string{v.Resolution}
	if v.Bitrate != "" {
		parts = append(parts, v.Bitrate+" Kbps")
	}
	if v.FPS != "" {
		parts = append(parts, v.FPS+" fps")
	}
	if v.Codec != "" {
		parts = append(parts, v.Codec)
	}
	return joinLabel(parts)
}

func audioLabel(a types.AudioStream) string {
	return joinLabel([]string{languageLabel(a.Name, a.Language), a.Channels, a.ID})
}

func subtitleLabel(s types.SubtitleStream) string {
	return joinLabel([]string{languageLabel(s.Name, s.Language), s.ID})
}

func languageLabel(name, lang string) string {
	switch {
	case name != "" && lang != "":
		return fmt.Sprintf("%s (%s)", name, lang)
	case name != "":
		return name
	default:
		return lang
	}
}

func joinLabel(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}
