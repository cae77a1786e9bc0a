package bus

import (
	"context"
	"sync"

	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// streamQueue holds events between the publisher and a slow reader.
// A queued progress event is replaced by a newer one for the same session,
// so only superseded snapshots are ever discarded.
type streamQueue struct {
	mu     sync.Mutex
	items  []any
	closed bool
	wake   chan struct{}
}

func (q *streamQueue) push(msg any) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if p, ok := msg.(events.ProgressMsg); ok {
		for i, queued := range q.items {
			if old, ok := queued.(events.ProgressMsg); ok && old.SessionID == p.SessionID {
				q.items[i] = p
				q.mu.Unlock()
				return
			}
		}
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *streamQueue) pop() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return msg, true
}

func (q *streamQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
}

// Stream fans every topic of every session into one channel in publish
// order. Publishers never block on the reader, and the queue behind the
// channel only drops superseded progress. The channel is closed after
// cleanup is called or ctx ends; cleanup may be called more than once.
func (b *Bus) Stream(ctx context.Context) (<-chan any, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	q := &streamQueue{wake: make(chan struct{}, 1)}
	ch := make(chan any, types.ProgressChannelBuffer)

	var unsubs []func()
	for _, topic := range events.Topics() {
		unsubs = append(unsubs, b.Subscribe(topic, "", q.push))
	}

	done := make(chan struct{})
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			for _, u := range unsubs {
				u()
			}
			q.close()
			close(done)
		})
	}

	go func() {
		defer close(ch)
		for {
			msg, ok := q.pop()
			if !ok {
				select {
				case <-q.wake:
					continue
				case <-done:
					return
				case <-ctx.Done():
					cleanup()
					return
				}
			}
			select {
			case ch <- msg:
			case <-done:
				return
			case <-ctx.Done():
				cleanup()
				return
			}
		}
	}()
	return ch, cleanup
}
