// Package testutil provides testing utilities for streamgrab.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamgrab/streamgrab/internal/engine/bus"
	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// EnumerateCall records one Enumerate request.
type EnumerateCall struct {
	SessionID string
	URL       string
	Headers   []types.RequestHeader
}

// StartCall records one Start request.
type StartCall struct {
	SessionID string
	Request   types.DownloadRequest
	Options   types.WorkerOptions
}

// MockBridge is an in-memory worker bridge. It publishes on a real bus so
// subscription bookkeeping behaves like the local bridge.
type MockBridge struct {
	Bus *bus.Bus

	// Configuration
	Streams        *events.StreamsReadyMsg // published after Enumerate succeeds
	EnumerateError error
	StartError     error
	SubscribeError error
	Latency        time.Duration
	OnStart        func(m *MockBridge, sessionID string) // runs before Start returns

	// Tracking
	EnumerateCount atomic.Int64
	StartCount     atomic.Int64
	mu             sync.Mutex
	enumerates     []EnumerateCall
	starts         []StartCall
	shutdown       bool
}

// MockBridgeOption configures a MockBridge.
type MockBridgeOption func(*MockBridge)

// WithStreams publishes msg (with the caller's session id) after Enumerate.
func WithStreams(msg events.StreamsReadyMsg) MockBridgeOption {
	return func(m *MockBridge) {
		m.Streams = &msg
	}
}

// WithEnumerateError makes Enumerate fail.
func WithEnumerateError(err error) MockBridgeOption {
	return func(m *MockBridge) {
		m.EnumerateError = err
	}
}

// WithStartError makes Start reject every job.
func WithStartError(err error) MockBridgeOption {
	return func(m *MockBridge) {
		m.StartError = err
	}
}

// WithSubscribeError makes Subscribe fail.
func WithSubscribeError(err error) MockBridgeOption {
	return func(m *MockBridge) {
		m.SubscribeError = err
	}
}

// WithLatency delays every request.
func WithLatency(d time.Duration) MockBridgeOption {
	return func(m *MockBridge) {
		m.Latency = d
	}
}

// WithOnStart runs fn inside Start, before the job is acknowledged.
func WithOnStart(fn func(m *MockBridge, sessionID string)) MockBridgeOption {
	return func(m *MockBridge) {
		m.OnStart = fn
	}
}

// NewMockBridge creates a mock bridge with the given options.
func NewMockBridge(opts ...MockBridgeOption) *MockBridge {
	m := &MockBridge{Bus: bus.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockBridge) Enumerate(ctx context.Context, sessionID, url string, headers []types.RequestHeader) error {
	m.EnumerateCount.Add(1)
	m.mu.Lock()
	m.enumerates = append(m.enumerates, EnumerateCall{SessionID: sessionID, URL: url, Headers: headers})
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.EnumerateError != nil {
		return m.EnumerateError
	}
	if m.Streams != nil {
		msg := *m.Streams
		msg.SessionID = sessionID
		m.Bus.Emit(msg)
	}
	return nil
}

func (m *MockBridge) Start(ctx context.Context, sessionID string, req types.DownloadRequest, opts types.WorkerOptions) error {
	m.StartCount.Add(1)
	m.mu.Lock()
	m.starts = append(m.starts, StartCall{SessionID: sessionID, Request: req, Options: opts})
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.OnStart != nil {
		m.OnStart(m, sessionID)
	}
	return m.StartError
}

func (m *MockBridge) Subscribe(topic events.Topic, sessionID string, fn func(msg any)) (func(), error) {
	if m.SubscribeError != nil {
		return nil, m.SubscribeError
	}
	return m.Bus.Subscribe(topic, sessionID, fn), nil
}

func (m *MockBridge) StreamEvents(ctx context.Context) (<-chan any, func(), error) {
	ch, cleanup := m.Bus.Stream(ctx)
	return ch, cleanup, nil
}

func (m *MockBridge) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return errors.New("already shut down")
	}
	m.shutdown = true
	return nil
}

// Progress publishes a progress event for sessionID.
func (m *MockBridge) Progress(sessionID string, snap types.SessionSnapshot) {
	m.Bus.Emit(events.ProgressMsg{SessionID: sessionID, Snapshot: snap})
}

// Complete publishes a completion event for sessionID.
func (m *MockBridge) Complete(sessionID string, code int) {
	m.Bus.Emit(events.DownloadCompleteMsg{SessionID: sessionID, ExitCode: code})
}

// Fail publishes an error event for sessionID.
func (m *MockBridge) Fail(sessionID string, err error) {
	m.Bus.Emit(events.DownloadErrorMsg{SessionID: sessionID, Err: err})
}

// Subscriptions returns the number of live subscriptions.
func (m *MockBridge) Subscriptions() int {
	return m.Bus.Len()
}

// Enumerates returns the recorded Enumerate calls.
func (m *MockBridge) Enumerates() []EnumerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EnumerateCall(nil), m.enumerates...)
}

// Starts returns the recorded Start calls.
func (m *MockBridge) Starts() []StartCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StartCall(nil), m.starts...)
}

// LastStart returns the most recent Start call.
func (m *MockBridge) LastStart() (StartCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.starts) == 0 {
		return StartCall{}, false
	}
	return m.starts[len(m.starts)-1], true
}

// IsShutdown reports whether Shutdown was called.
func (m *MockBridge) IsShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

func (m *MockBridge) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
