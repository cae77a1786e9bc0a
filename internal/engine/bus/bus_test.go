package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgrab/streamgrab/internal/engine/events"
)

func TestBus_FiltersByTopicAndSession(t *testing.T) {
	b := New()

	var got []any
	b.Subscribe(events.TopicProgress, "s1", func(msg any) { got = append(got, msg) })

	b.Publish(events.TopicProgress, "s1", "a")
	b.Publish(events.TopicProgress, "s2", "b")
	b.Publish(events.TopicComplete, "s1", "c")

	assert.Equal(t, []any{"a"}, got)
}

func TestBus_WildcardSession(t *testing.T) {
	b := New()

	var got []string
	b.Subscribe(events.TopicError, "", func(msg any) { got = append(got, msg.(string)) })

	b.Publish(events.TopicError, "s1", "x")
	b.Publish(events.TopicError, "s2", "y")

	assert.Equal(t, []string{"x", "y"}, got)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New()

	calls := 0
	unsub := b.Subscribe(events.TopicComplete, "s", func(any) { calls++ })
	require.Equal(t, 1, b.Len())

	unsub()
	unsub()
	assert.Equal(t, 0, b.Len())

	b.Publish(events.TopicComplete, "s", nil)
	assert.Zero(t, calls)
}

func TestBus_HandlerMayUnsubscribeItself(t *testing.T) {
	b := New()

	calls := 0
	var unsub func()
	unsub = b.Subscribe(events.TopicStreamsReady, "s", func(any) {
		calls++
		unsub()
	})

	b.Publish(events.TopicStreamsReady, "s", 1)
	b.Publish(events.TopicStreamsReady, "s", 2)

	assert.Equal(t, 1, calls)
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	b := New()

	var order []int
	for i := 0; i < 5; i++ {
		b.Subscribe(events.TopicProgress, "", func(any) { order = append(order, i) })
	}
	b.Publish(events.TopicProgress, "s", nil)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestBus_EmitRoutesTypedPayloads(t *testing.T) {
	b := New()

	var got events.DownloadCompleteMsg
	b.Subscribe(events.TopicComplete, "job", func(msg any) { got = msg.(events.DownloadCompleteMsg) })

	assert.True(t, b.Emit(events.DownloadCompleteMsg{SessionID: "job", ExitCode: 0}))
	assert.Equal(t, "job", got.SessionID)
	assert.False(t, b.Emit(42))
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	b := New()

	var mu sync.Mutex
	count := 0
	b.Subscribe(events.TopicProgress, "", func(any) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish(events.TopicProgress, "s", j)
			}
		}()
		go func() {
			defer wg.Done()
			unsub := b.Subscribe(events.TopicComplete, "s", func(any) {})
			unsub()
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, count)
	assert.Equal(t, 1, b.Len())
}
