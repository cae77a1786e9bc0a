package session

import (
	"sync"

	"github.com/streamgrab/streamgrab/internal/core"
	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// Sink receives the events of the attached session.
type Sink interface {
	OnProgress(sessionID string, snapshot types.SessionSnapshot)
	OnComplete(sessionID string, exitCode int)
	OnError(sessionID string, message string)
}

// Disposable releases the subscriptions it was returned with. Dispose may be
// called any number of times.
type Disposable interface {
	Dispose()
}

// EventBridge owns at most one set of progress, completion and error
// subscriptions. The handles never leave it.
type EventBridge struct {
	bridge core.WorkerBridge

	mu     sync.Mutex
	active *attachment
}

type attachment struct {
	owner     *EventBridge
	sessionID string
	unsubs    []func()
	once      sync.Once
}

// NewEventBridge creates an event bridge over bridge.
func NewEventBridge(bridge core.WorkerBridge) *EventBridge {
	return &EventBridge{bridge: bridge}
}

// Attach subscribes sink to the three job topics of sessionID. A second
// Attach before Detach fails with a double-subscription error and leaves
// the live set untouched.
func (b *EventBridge) Attach(sessionID string, sink Sink) (Disposable, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil {
		return nil, DoubleSubscriptionError(b.active.sessionID, sessionID)
	}

	att := &attachment{owner: b, sessionID: sessionID}
	handlers := []struct {
		topic events.Topic
		fn    func(any)
	}{
		{events.TopicProgress, func(msg any) {
			if m, ok := msg.(events.ProgressMsg); ok {
				sink.OnProgress(m.SessionID, m.Snapshot)
			}
		}},
		{events.TopicComplete, func(msg any) {
			if m, ok := msg.(events.DownloadCompleteMsg); ok {
				sink.OnComplete(m.SessionID, m.ExitCode)
			}
		}},
		{events.TopicError, func(msg any) {
			if m, ok := msg.(events.DownloadErrorMsg); ok {
				sink.OnError(m.SessionID, m.Message())
			}
		}},
	}
	for _, h := range handlers {
		unsub, err := b.bridge.Subscribe(h.topic, sessionID, h.fn)
		if err != nil {
			att.release()
			return nil, err
		}
		att.unsubs = append(att.unsubs, unsub)
	}

	b.active = att
	return att, nil
}

// Detach releases the live subscription set, if any.
func (b *EventBridge) Detach() {
	b.mu.Lock()
	att := b.active
	b.active = nil
	b.mu.Unlock()

	if att != nil {
		att.release()
	}
}

// Active reports whether a subscription set is live.
func (b *EventBridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil
}

// SessionID returns the session of the live set, or "".
func (b *EventBridge) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		return ""
	}
	return b.active.sessionID
}

func (a *attachment) Dispose() {
	b := a.owner
	b.mu.Lock()
	if b.active == a {
		b.active = nil
	}
	b.mu.Unlock()
	a.release()
}

func (a *attachment) release() {
	a.once.Do(func() {
		for _, u := range a.unsubs {
			u()
		}
	})
}
