package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// Topic names a push channel of the worker. The names match what the worker
// daemon emits on its event stream.
type Topic string

const (
	TopicStreamsReady Topic = "m3u8-options"
	TopicProgress     Topic = "download-progress"
	TopicComplete     Topic = "download-complete"
	TopicError        Topic = "download-error"
)

// Topics lists every topic in emission order of a typical session.
func Topics() []Topic {
	return []Topic{TopicStreamsReady, TopicProgress, TopicComplete, TopicError}
}

// StreamsReadyMsg carries the result of one enumeration request.
type StreamsReadyMsg struct {
	SessionID string
	Video     []types.VideoStream
	Audio     []types.AudioStream
	Subtitle  []types.SubtitleStream
}

// ProgressMsg carries a full progress snapshot for a session.
type ProgressMsg struct {
	SessionID string
	Snapshot  types.SessionSnapshot
}

// DownloadCompleteMsg signals that the worker process exited.
// ExitCode 0 means the job succeeded.
type DownloadCompleteMsg struct {
	SessionID string
	ExitCode  int
	Elapsed   time.Duration
}

// DownloadErrorMsg signals a runtime failure of the worker job.
type DownloadErrorMsg struct {
	SessionID string
	Err       error
}

func (m DownloadErrorMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		SessionID string `json:"SessionID"`
		Err       string `json:"Err,omitempty"`
	}

	out := encoded{SessionID: m.SessionID}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}

	return json.Marshal(out)
}

func (m *DownloadErrorMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		SessionID string          `json:"SessionID"`
		Err       json.RawMessage `json:"Err"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.SessionID = aux.SessionID
	m.Err = nil

	if len(aux.Err) == 0 {
		return nil
	}

	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	// Non-string payloads are kept as raw text.
	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}

// Message returns the worker's error text, or "" when none was sent.
func (m DownloadErrorMsg) Message() string {
	if m.Err == nil {
		return ""
	}
	return m.Err.Error()
}

// Route returns the topic and session id a payload is published under.
func Route(msg any) (Topic, string, bool) {
	switch m := msg.(type) {
	case StreamsReadyMsg:
		return TopicStreamsReady, m.SessionID, true
	case ProgressMsg:
		return TopicProgress, m.SessionID, true
	case DownloadCompleteMsg:
		return TopicComplete, m.SessionID, true
	case DownloadErrorMsg:
		return TopicError, m.SessionID, true
	default:
		return "", "", false
	}
}

// Decode turns a JSON payload received for topic back into its message type.
func Decode(topic Topic, data []byte) (any, error) {
	switch topic {
	case TopicStreamsReady:
		var m StreamsReadyMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TopicProgress:
		var m ProgressMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TopicComplete:
		var m DownloadCompleteMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TopicError:
		var m DownloadErrorMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
}
