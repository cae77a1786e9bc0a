package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/streamgrab/streamgrab/internal/core"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/history"
	"github.com/streamgrab/streamgrab/internal/session"
)

// headlessSession drives a controller for the non-interactive commands.
type headlessSession struct {
	ctrl    *session.Controller
	changes chan struct{}
	store   *history.Store
}

func newHeadlessSession(bridge core.WorkerBridge, record bool) *headlessSession {
	h := &headlessSession{changes: make(chan struct{}, 1)}
	opts := []session.Option{
		session.WithObserver(h.observe),
		session.WithEnumerateTimeout(settings.Session.Timeout),
	}
	if record {
		if h.store = openHistory(); h.store != nil {
			opts = append(opts, session.WithRecorder(h.store))
		}
	}
	h.ctrl = session.NewController(bridge, settings.ToWorkerOptions(), opts...)
	return h
}

func (h *headlessSession) observe(session.View) {
	select {
	case h.changes <- struct{}{}:
	default:
	}
}

func (h *headlessSession) Close() {
	h.ctrl.Close()
	if h.store != nil {
		_ = h.store.Close()
	}
}

// waitTerminal calls onView with every new view until the session ends.
func (h *headlessSession) waitTerminal(ctx context.Context, onView func(session.View)) (session.View, error) {
	var last uint64
	for {
		v := h.ctrl.View()
		if v.Seq != last {
			last = v.Seq
			if onView != nil {
				onView(v)
			}
		}
		if v.State.Terminal() {
			return v, nil
		}
		select {
		case <-h.changes:
		case <-ctx.Done():
			return v, ctx.Err()
		}
	}
}

// trackChoice is the parsed value of a --video/--audio/--sub flag:
// "best" (first listed), "none", a 1-based index, or text matched against
// the label or id.
type trackChoice string

const (
	choiceBest trackChoice = "best"
	choiceNone trackChoice = "none"
)

// pick resolves c against list. An empty list yields no track for "best".
func (c trackChoice) pick(kind string, list []types.TrackOption) (*types.TrackOption, error) {
	want := strings.TrimSpace(strings.ToLower(string(c)))
	switch want {
	case "", string(choiceBest):
		if len(list) == 0 {
			return nil, nil
		}
		t := list[0]
		return &t, nil
	case string(choiceNone), "off":
		return nil, nil
	}

	if n, err := strconv.Atoi(want); err == nil {
		if n < 1 || n > len(list) {
			return nil, fmt.Errorf("%s track %d out of range (1-%d)", kind, n, len(list))
		}
		t := list[n-1]
		return &t, nil
	}

	for _, t := range list {
		if strings.Contains(strings.ToLower(t.Label), want) || strings.EqualFold(t.ID, want) {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("no %s track matches %q", kind, string(c))
}

// trackSelection holds the track flags of the get command.
type trackSelection struct {
	Video     trackChoice
	Audio     trackChoice
	Subtitle  trackChoice
	AudioOnly bool
}

// buildRequest turns loaded options and flags into a download request.
func (s trackSelection) buildRequest(v session.View, name string, headers []types.RequestHeader, merge bool) (types.DownloadRequest, error) {
	opts := v.Options
	if opts == nil {
		opts = &types.StreamOptions{}
	}
	req := types.DownloadRequest{
		SourceURL:  v.SourceURL,
		OutputName: name,
		Headers:    headers,
		AutoMerge:  merge,
		AudioOnly:  s.AudioOnly,
	}

	var err error
	if !s.AudioOnly {
		if req.SelectedVideo, err = s.Video.pick("video", opts.Video); err != nil {
			return req, err
		}
	}
	if req.SelectedAudio, err = s.Audio.pick("audio", opts.Audio); err != nil {
		return req, err
	}
	if req.SelectedSubtitle, err = s.Subtitle.pick("subtitle", opts.Subtitle); err != nil {
		return req, err
	}
	return req, nil
}
