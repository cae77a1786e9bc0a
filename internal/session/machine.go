// Package session implements the download session controller: it loads the
// variants of a manifest, starts one download job at a time through the
// worker bridge, and follows the job's events to completion.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/streamgrab/streamgrab/internal/core"
	"github.com/streamgrab/streamgrab/internal/engine/progress"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

const (
	msgTrackingFailed = "the download could not be tracked, please try again"
	msgUnknownFailure = "download failed: the worker reported an unknown error"
)

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers fn to receive a View after every transition.
// fn runs outside the controller lock and must not block for long.
func WithObserver(fn func(View)) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithRecorder records every session that reaches Complete or Failed.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithEnumerateTimeout bounds how long LoadOptions waits for the worker.
func WithEnumerateTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithIDGenerator replaces the session id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// Controller is the download session state machine. All state lives behind
// mu; worker calls are made with mu released while the state itself refuses
// overlapping operations.
type Controller struct {
	loader   *OptionsLoader
	events   *EventBridge
	bridge   core.WorkerBridge
	opts     types.WorkerOptions
	timeout  time.Duration
	observer func(View)
	recorder Recorder
	newID    func() string
	log      *logrus.Entry

	mu        sync.Mutex
	seq       uint64
	closed    bool
	state     State
	sessionID string
	sourceURL string
	options   *types.StreamOptions
	request   *types.DownloadRequest
	snapshot  *types.SessionSnapshot
	pending   []jobEvent
	message   string
	err       error
	startedAt time.Time
}

type jobEvent struct {
	snapshot *types.SessionSnapshot
	exitCode *int
	errMsg   *string
}

// NewController creates a controller. opts is forwarded unchanged with
// every start request.
func NewController(bridge core.WorkerBridge, opts types.WorkerOptions, options ...Option) *Controller {
	c := &Controller{
		loader:  NewOptionsLoader(bridge),
		events:  NewEventBridge(bridge),
		bridge:  bridge,
		opts:    opts,
		timeout: types.DefaultEnumerateTimeout,
		newID:   uuid.NewString,
		log:     logrus.WithField("component", "session"),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// LoadOptions validates rawURL and asks the worker for its variants.
// Previously loaded options are discarded first.
func (c *Controller) LoadOptions(ctx context.Context, rawURL string, headers []types.RequestHeader) error {
	c.mu.Lock()
	if err := c.admitLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	url, err := ValidateSourceURL(rawURL)
	if err != nil {
		c.message, c.err = UserMessage(err), err
		view := c.viewLocked()
		c.mu.Unlock()
		c.notify(view)
		return err
	}

	id := c.newID()
	headers = types.FilterHeaders(headers)
	c.state = StateLoading
	c.sessionID = id
	c.sourceURL = url
	c.options = nil
	c.request = nil
	c.snapshot = nil
	c.message, c.err = "", nil
	view := c.viewLocked()
	c.mu.Unlock()
	c.notify(view)

	log := c.log.WithField("session", id)
	log.Infof("loading options for %s", url)

	loadCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	opts, loadErr := c.loader.Load(loadCtx, id, url, headers)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if loadErr != nil {
		log.WithError(loadErr).Warn("stream discovery failed")
		c.state = StateIdle
		c.options = nil
		c.message, c.err = UserMessage(loadErr), loadErr
	} else {
		log.Infof("found %d video, %d audio, %d subtitle tracks", len(opts.Video), len(opts.Audio), len(opts.Subtitle))
		c.state = StateReady
		c.options = opts
	}
	view = c.viewLocked()
	c.mu.Unlock()
	c.notify(view)
	return loadErr
}

// Start validates req and hands it to the worker. When SourceURL is empty
// the URL of the last load is used.
func (c *Controller) Start(ctx context.Context, req types.DownloadRequest) error {
	c.mu.Lock()
	if err := c.admitLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	if req.SourceURL == "" {
		req.SourceURL = c.sourceURL
	}
	req.Headers = types.FilterHeaders(req.Headers)
	err := ValidateRequest(req)
	if err == nil {
		req.SourceURL, err = ValidateSourceURL(req.SourceURL)
	}
	if err != nil {
		c.message, c.err = UserMessage(err), err
		view := c.viewLocked()
		c.mu.Unlock()
		c.notify(view)
		return err
	}

	id := c.newID()
	c.state = StateStarting
	c.sessionID = id
	c.sourceURL = req.SourceURL
	c.request = &req
	c.snapshot = nil
	c.pending = nil
	c.message, c.err = "", nil
	c.startedAt = time.Now()

	log := c.log.WithField("session", id)

	// Subscribe before the request so no event of an accepted job is lost.
	if _, err := c.events.Attach(id, sinkAdapter{c}); err != nil {
		log.WithError(err).Error("aborting session")
		outcome := c.failLocked(WorkerRuntimeError(msgTrackingFailed))
		view := c.viewLocked()
		c.mu.Unlock()
		c.notify(view)
		c.record(outcome)
		return err
	}
	opts := c.opts
	view := c.viewLocked()
	c.mu.Unlock()
	c.notify(view)

	log.Infof("starting %q", req.OutputName)
	startErr := c.bridge.Start(ctx, id, req, opts)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	var outcome *Outcome
	var result error
	if startErr != nil {
		log.WithError(startErr).Warn("worker rejected the job")
		c.pending = nil
		result = WorkerRejectedError(startErr.Error(), startErr)
		outcome = c.failLocked(result)
	} else {
		c.state = StateDownloading
		pending := c.pending
		c.pending = nil
		for _, ev := range pending {
			if o := c.applyLocked(ev); o != nil {
				outcome = o
			}
		}
	}
	view = c.viewLocked()
	c.mu.Unlock()
	c.notify(view)
	c.record(outcome)
	return result
}

// Dismiss clears the banner of a finished session and returns to Idle.
// The request and options stay available for a retry.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	if c.closed || !c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.message, c.err = "", nil
	view := c.viewLocked()
	c.mu.Unlock()
	c.notify(view)
}

// Close releases the event subscriptions. Events delivered afterwards are
// dropped. The worker job, if any, keeps running.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.pending = nil
	c.events.Detach()
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribed reports whether job event subscriptions are live.
func (c *Controller) Subscribed() bool {
	return c.events.Active()
}

func (c *Controller) admitLocked() error {
	if c.closed {
		return ErrClosed
	}
	switch c.state {
	case StateIdle, StateReady:
		return nil
	case StateComplete, StateFailed:
		return ErrSessionFinished
	default:
		return ErrSessionBusy
	}
}

// handle routes one job event. Events of other sessions and events outside
// Starting/Downloading are dropped; events that race ahead of the start
// acknowledgement are held until it arrives.
func (c *Controller) handle(sessionID string, ev jobEvent) {
	c.mu.Lock()
	if c.closed || sessionID != c.sessionID {
		c.mu.Unlock()
		return
	}
	switch c.state {
	case StateStarting:
		c.pending = append(c.pending, ev)
		c.mu.Unlock()
	case StateDownloading:
		outcome := c.applyLocked(ev)
		view := c.viewLocked()
		c.mu.Unlock()
		c.notify(view)
		c.record(outcome)
	default:
		state := c.state
		c.mu.Unlock()
		c.log.WithField("session", sessionID).Debugf("dropping event in state %s", state)
	}
}

func (c *Controller) applyLocked(ev jobEvent) *Outcome {
	if c.state != StateDownloading {
		return nil
	}
	switch {
	case ev.snapshot != nil:
		c.snapshot = ev.snapshot.Clone()
		return nil
	case ev.exitCode != nil:
		if *ev.exitCode == 0 {
			c.events.Detach()
			c.state = StateComplete
			c.snapshot = nil
			c.message = "Download complete: " + c.outputName()
			c.log.WithField("session", c.sessionID).Info(c.message)
			return c.outcomeLocked()
		}
		return c.failLocked(WorkerRuntimeError(fmt.Sprintf("download failed: worker exited with code %d", *ev.exitCode)))
	case ev.errMsg != nil:
		msg := *ev.errMsg
		if msg == "" {
			msg = msgUnknownFailure
		}
		return c.failLocked(WorkerRuntimeError(msg))
	}
	return nil
}

func (c *Controller) failLocked(err error) *Outcome {
	c.events.Detach()
	c.state = StateFailed
	c.message, c.err = UserMessage(err), err
	c.log.WithField("session", c.sessionID).WithError(err).Warn("session failed")
	return c.outcomeLocked()
}

func (c *Controller) outcomeLocked() *Outcome {
	o := &Outcome{
		SessionID:  c.sessionID,
		SourceURL:  c.sourceURL,
		State:      c.state,
		Message:    c.message,
		SaveDir:    c.opts.SaveDir,
		StartedAt:  c.startedAt,
		FinishedAt: time.Now(),
	}
	if c.request != nil {
		o.Request = *c.request
	}
	return o
}

func (c *Controller) outputName() string {
	if c.request == nil {
		return ""
	}
	return c.request.OutputName
}

func (c *Controller) viewLocked() View {
	c.seq++
	v := View{
		Seq:       c.seq,
		State:     c.state,
		SessionID: c.sessionID,
		SourceURL: c.sourceURL,
		Options:   c.options,
		Snapshot:  c.snapshot.Clone(),
		Message:   c.message,
		Err:       c.err,
	}
	if c.request != nil {
		req := *c.request
		v.Request = &req
		v.AudioOnly = req.AudioOnly
	}
	v.Overall = progress.OverallPercentage(v.Snapshot, v.AudioOnly)
	v.Display = progress.FormatDisplay(progress.PrimaryTrackForDisplay(v.Snapshot, v.AudioOnly))
	return v
}

func (c *Controller) notify(v View) {
	if c.observer != nil {
		c.observer(v)
	}
}

func (c *Controller) record(o *Outcome) {
	if o == nil || c.recorder == nil {
		return
	}
	if err := c.recorder.Record(*o); err != nil {
		c.log.WithError(err).Warn("failed to record session history")
	}
}

// sinkAdapter keeps the Sink methods off the Controller's public API.
type sinkAdapter struct{ c *Controller }

func (s sinkAdapter) OnProgress(sessionID string, snapshot types.SessionSnapshot) {
	s.c.handle(sessionID, jobEvent{snapshot: &snapshot})
}

func (s sinkAdapter) OnComplete(sessionID string, exitCode int) {
	s.c.handle(sessionID, jobEvent{exitCode: &exitCode})
}

func (s sinkAdapter) OnError(sessionID string, message string) {
	s.c.handle(sessionID, jobEvent{errMsg: &message})
}
