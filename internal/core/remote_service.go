package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/streamgrab/streamgrab/internal/engine/bus"
	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/worker"
)

// EnumerateRequest is the body of POST /enumerate.
type EnumerateRequest struct {
	SessionID string                `json:"session_id"`
	URL       string                `json:"url"`
	Headers   []types.RequestHeader `json:"headers,omitempty"`
}

// StartRequest is the body of POST /start.
type StartRequest struct {
	SessionID string                `json:"session_id"`
	Request   types.DownloadRequest `json:"request"`
	Options   types.WorkerOptions   `json:"options"`
}

// ErrorResponse is the body the daemon sends with a non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	ActiveJobs int    `json:"active_jobs"`
}

// RemoteBridge implements WorkerBridge for a remote daemon. Events from the
// daemon's SSE stream are re-published on a local bus.
type RemoteBridge struct {
	BaseURL   string
	Token     string
	Client    *http.Client
	SSEClient *http.Client

	bus    *bus.Bus
	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Entry

	mu        sync.Mutex
	ready     chan struct{} // closed while the event stream is connected
	connected bool
	jobs      map[string]struct{} // started sessions without a final event
}

// errStreamLost is reported for jobs whose events may have been missed.
var errStreamLost = errors.New("lost connection to the streamgrab server")

// NewRemoteBridge creates a bridge to the daemon at baseURL and starts
// following its event stream.
func NewRemoteBridge(baseURL string, token string) *RemoteBridge {
	ctx, cancel := context.WithCancel(context.Background())
	s := &RemoteBridge{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		Client:    &http.Client{Timeout: 30 * time.Second},
		SSEClient: &http.Client{},
		bus:       bus.New(),
		ctx:       ctx,
		cancel:    cancel,
		log:       logrus.WithField("component", "remote"),
		ready:     make(chan struct{}),
		jobs:      make(map[string]struct{}),
	}
	go s.streamWithReconnect()
	return s
}

func (s *RemoteBridge) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+s.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		// Limit error body read to 1KB
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode == http.StatusUnprocessableEntity {
			var e ErrorResponse
			if json.Unmarshal(bodyBytes, &e) == nil && e.Error != "" {
				return nil, &worker.RejectedError{Message: e.Error}
			}
		}
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	return resp, nil
}

// waitReady blocks until the event stream is connected so no event of a
// request issued afterwards can be missed.
func (s *RemoteBridge) waitReady(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event stream not connected: %w", ctx.Err())
	case <-s.ctx.Done():
		return fmt.Errorf("bridge shut down")
	}
}

// Health checks that the daemon is reachable and the token is accepted.
func (s *RemoteBridge) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (s *RemoteBridge) Enumerate(ctx context.Context, sessionID, url string, headers []types.RequestHeader) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}
	resp, err := s.doRequest(ctx, http.MethodPost, "/enumerate", EnumerateRequest{
		SessionID: sessionID,
		URL:       url,
		Headers:   headers,
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}

func (s *RemoteBridge) Start(ctx context.Context, sessionID string, req types.DownloadRequest, opts types.WorkerOptions) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}
	if err := s.trackJob(sessionID); err != nil {
		return err
	}
	resp, err := s.doRequest(ctx, http.MethodPost, "/start", StartRequest{
		SessionID: sessionID,
		Request:   req,
		Options:   opts,
	})
	if err != nil {
		s.untrackJob(sessionID)
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}

func (s *RemoteBridge) Subscribe(topic events.Topic, sessionID string, fn func(msg any)) (func(), error) {
	return s.bus.Subscribe(topic, sessionID, fn), nil
}

func (s *RemoteBridge) StreamEvents(ctx context.Context) (<-chan any, func(), error) {
	return streamFromBus(ctx, s.bus)
}

// Shutdown stops following the daemon. Jobs on the daemon keep running.
func (s *RemoteBridge) Shutdown() error {
	s.cancel()
	return nil
}

func (s *RemoteBridge) streamWithReconnect() {
	backoff := 1 * time.Second
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		err := s.connectSSE()
		if s.ctx.Err() != nil {
			return
		}
		if s.disconnected() {
			backoff = time.Second
		}
		if err != nil {
			s.log.WithError(err).Debugf("event stream dropped, retrying in %s", backoff)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *RemoteBridge) connectSSE() error {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.BaseURL+"/events", nil)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := s.SSEClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to connect to event stream: %s", resp.Status)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		eventType := ""
		var dataLines []string

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			line = strings.TrimRight(line, "\r\n")

			// Blank line dispatches event
			if line == "" {
				break
			}
			// The daemon sends a comment once it is subscribed.
			if strings.HasPrefix(line, ":") {
				s.markConnected()
				continue
			}
			if strings.HasPrefix(line, "event:") {
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				continue
			}
		}

		if eventType == "" || len(dataLines) == 0 {
			continue
		}

		msg, err := events.Decode(events.Topic(eventType), []byte(strings.Join(dataLines, "\n")))
		if err != nil {
			s.log.WithError(err).Debugf("skipping %s event", eventType)
			continue
		}
		if topic, id, ok := events.Route(msg); ok && (topic == events.TopicComplete || topic == events.TopicError) {
			s.untrackJob(id)
		}
		s.bus.Emit(msg)
	}
}

// trackJob records a job whose final event is still expected. It fails if
// the stream dropped after waitReady returned.
func (s *RemoteBridge) trackJob(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errStreamLost
	}
	s.jobs[sessionID] = struct{}{}
	return nil
}

func (s *RemoteBridge) untrackJob(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, sessionID)
}

func (s *RemoteBridge) markConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		s.connected = true
		close(s.ready)
	}
}

// disconnected makes requests wait for the next connection and fails every
// tracked job. It reports whether a connection had been established.
func (s *RemoteBridge) disconnected() bool {
	s.mu.Lock()
	wasConnected := s.connected
	if wasConnected {
		s.connected = false
		s.ready = make(chan struct{})
	}
	lost := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		lost = append(lost, id)
	}
	clear(s.jobs)
	s.mu.Unlock()

	for _, id := range lost {
		s.log.WithField("session", id).Warn("event stream lost during download")
		s.bus.Emit(events.DownloadErrorMsg{SessionID: id, Err: errStreamLost})
	}
	return wasConnected
}
