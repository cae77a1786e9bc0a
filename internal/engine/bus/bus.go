package bus

import (
	"cmp"
	"slices"
	"sync"

	"github.com/streamgrab/streamgrab/internal/engine/events"
)

// Handler receives a payload published on a topic.
type Handler func(msg any)

type subscription struct {
	id        uint64
	topic     events.Topic
	sessionID string
	fn        Handler
}

// Bus is an in-process publish/subscribe hub keyed by topic and session id.
// Delivery is synchronous on the publisher's goroutine, so payloads from one
// publisher reach each handler in emission order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]subscription)}
}

// Subscribe registers fn for payloads on topic. An empty sessionID matches
// every session. The returned func removes the subscription and may be
// called more than once.
func (b *Bus) Subscribe(topic events.Topic, sessionID string, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = subscription{id: id, topic: topic, sessionID: sessionID, fn: fn}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers msg to every matching subscriber. Handlers run outside
// the bus lock and may subscribe or unsubscribe.
func (b *Bus) Publish(topic events.Topic, sessionID string, msg any) {
	b.mu.RLock()
	matched := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.topic != topic {
			continue
		}
		if s.sessionID != "" && s.sessionID != sessionID {
			continue
		}
		matched = append(matched, s)
	}
	b.mu.RUnlock()

	slices.SortFunc(matched, func(a, b subscription) int { return cmp.Compare(a.id, b.id) })
	for _, s := range matched {
		s.fn(msg)
	}
}

// Emit publishes a typed event payload under the topic and session it routes to.
// Unknown payload types are dropped and reported as false.
func (b *Bus) Emit(msg any) bool {
	topic, sessionID, ok := events.Route(msg)
	if !ok {
		return false
	}
	b.Publish(topic, sessionID, msg)
	return true
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
