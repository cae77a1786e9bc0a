package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/testutil"
)

func TestLocalBridge_EnumerateDeliversToSubscriber(t *testing.T) {
	bin := testutil.FakeWorker(t, `echo "INFO : Aud aud1 | English | en | 2CH"`)
	b := NewLocalBridge(bin)
	defer func() { _ = b.Shutdown() }()

	got := make(chan events.StreamsReadyMsg, 1)
	unsub, err := b.Subscribe(events.TopicStreamsReady, "s1", func(msg any) {
		got <- msg.(events.StreamsReadyMsg)
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, b.Enumerate(context.Background(), "s1", "https://x.test/a.m3u8", nil))

	select {
	case msg := <-got:
		require.Len(t, msg.Audio, 1)
		assert.Equal(t, "aud1", msg.Audio[0].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no streams-ready event")
	}
}

func TestLocalBridge_StreamEventsSeesAllSessions(t *testing.T) {
	bin := testutil.FakeWorker(t, `echo "Vid x ---------- 1/1 100.00% 1.00MB 1.00MBps 00:00:00"`)
	b := NewLocalBridge(bin)
	defer func() { _ = b.Shutdown() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, cleanup, err := b.StreamEvents(ctx)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, b.Start(context.Background(), "a", types.DownloadRequest{}, types.WorkerOptions{}))

	var seen []events.Topic
	timeout := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case msg := <-stream:
			topic, id, ok := events.Route(msg)
			require.True(t, ok)
			assert.Equal(t, "a", id)
			seen = append(seen, topic)
		case <-timeout:
			t.Fatalf("only saw %v", seen)
		}
	}
	assert.Equal(t, []events.Topic{events.TopicProgress, events.TopicComplete}, seen)
}

func TestStreamEvents_CleanupClosesChannel(t *testing.T) {
	b := NewLocalBridge("unused")
	stream, cleanup, err := b.StreamEvents(context.Background())
	require.NoError(t, err)

	cleanup()
	cleanup()

	_, open := <-stream
	assert.False(t, open)
	assert.Zero(t, b.bus.Len())
}

func TestStreamEvents_CompletionAfterProgressFlood(t *testing.T) {
	b := NewLocalBridge("unused")
	stream, cleanup, err := b.StreamEvents(context.Background())
	require.NoError(t, err)
	defer cleanup()

	for i := 0; i < types.ProgressChannelBuffer+20; i++ {
		b.bus.Emit(events.ProgressMsg{SessionID: "job"})
	}
	b.bus.Emit(events.DownloadCompleteMsg{SessionID: "job", ExitCode: 0})

	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-stream:
			if done, ok := msg.(events.DownloadCompleteMsg); ok {
				assert.Equal(t, "job", done.SessionID)
				return
			}
		case <-timeout:
			t.Fatal("completion event was dropped")
		}
	}
}
