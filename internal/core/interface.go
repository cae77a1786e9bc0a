package core

import (
	"context"

	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// WorkerBridge is the message channel between the session controller and
// the download worker. Requests are acknowledged synchronously; results and
// job progress arrive on per-session topics.
// This abstraction lets the front ends run the worker in-process or talk to
// a remote daemon.
type WorkerBridge interface {
	// Enumerate asks the worker to list the variants of url. On success the
	// result is published once on TopicStreamsReady for sessionID. A
	// rejection is returned as an error carrying the worker's message.
	Enumerate(ctx context.Context, sessionID, url string, headers []types.RequestHeader) error

	// Start asks the worker to run a download job. A nil error means the job
	// was accepted.
	Start(ctx context.Context, sessionID string, req types.DownloadRequest, opts types.WorkerOptions) error

	// Subscribe registers fn for payloads on topic for sessionID. The
	// returned func removes the subscription and is safe to call twice.
	Subscribe(topic events.Topic, sessionID string, fn func(msg any)) (func(), error)

	// StreamEvents returns a channel that receives every event of every session.
	// For local mode, this is fed from the in-process bus.
	// For remote mode, this is sourced from SSE.
	StreamEvents(ctx context.Context) (<-chan any, func(), error)

	// Shutdown stops the bridge. Local bridges also stop running jobs.
	Shutdown() error
}
