package session

import (
	"time"

	"github.com/streamgrab/streamgrab/internal/engine/progress"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// State is the lifecycle stage of the controller's session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateStarting
	StateDownloading
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateStarting:
		return "starting"
	case StateDownloading:
		return "downloading"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Busy reports whether the controller is waiting on the worker.
func (s State) Busy() bool {
	return s == StateLoading || s == StateStarting || s == StateDownloading
}

// View is the read-only picture of the controller handed to front ends.
// Seq grows with every transition; observers drop views older than the
// last one they rendered.
type View struct {
	Seq       uint64
	State     State
	SessionID string
	SourceURL string
	Options   *types.StreamOptions
	Request   *types.DownloadRequest
	Snapshot  *types.SessionSnapshot
	AudioOnly bool
	Overall   float64
	Display   progress.Display
	Message   string
	Err       error
}

// Outcome describes a finished session for history records.
type Outcome struct {
	SessionID  string
	SourceURL  string
	Request    types.DownloadRequest
	State      State
	Message    string
	SaveDir    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists finished sessions.
type Recorder interface {
	Record(Outcome) error
}
