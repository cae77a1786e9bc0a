package core

import (
	"context"

	"github.com/streamgrab/streamgrab/internal/engine/bus"
	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/worker"
)

// LocalBridge runs the worker as a child process of this program.
type LocalBridge struct {
	bus    *bus.Bus
	runner *worker.Runner
}

// NewLocalBridge creates a bridge that runs binary.
func NewLocalBridge(binary string) *LocalBridge {
	b := bus.New()
	return &LocalBridge{bus: b, runner: worker.NewRunner(binary, b)}
}

func (s *LocalBridge) Enumerate(ctx context.Context, sessionID, url string, headers []types.RequestHeader) error {
	return s.runner.Enumerate(ctx, sessionID, url, headers)
}

func (s *LocalBridge) Start(ctx context.Context, sessionID string, req types.DownloadRequest, opts types.WorkerOptions) error {
	return s.runner.Start(ctx, sessionID, req, opts)
}

func (s *LocalBridge) Subscribe(topic events.Topic, sessionID string, fn func(msg any)) (func(), error) {
	return s.bus.Subscribe(topic, sessionID, fn), nil
}

func (s *LocalBridge) StreamEvents(ctx context.Context) (<-chan any, func(), error) {
	return streamFromBus(ctx, s.bus)
}

// ActiveJobs returns the number of running download jobs.
func (s *LocalBridge) ActiveJobs() int {
	return s.runner.Active()
}

func (s *LocalBridge) Shutdown() error {
	return s.runner.Shutdown()
}

// streamFromBus adapts Bus.Stream to the WorkerBridge signature.
func streamFromBus(ctx context.Context, b *bus.Bus) (<-chan any, func(), error) {
	ch, cleanup := b.Stream(ctx)
	return ch, cleanup, nil
}
