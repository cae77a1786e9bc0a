package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/streamgrab/streamgrab/internal/engine/types"
)

// =============================================================================
// DownloadErrorMsg JSON
// =============================================================================

func TestDownloadErrorMsg_MarshalKeepsMessage(t *testing.T) {
	msg := DownloadErrorMsg{SessionID: "s1", Err: errors.New("HTTP 403 Forbidden")}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded DownloadErrorMsg
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", decoded.SessionID)
	}
	if decoded.Message() != "HTTP 403 Forbidden" {
		t.Errorf("Message() = %q", decoded.Message())
	}
}

func TestDownloadErrorMsg_UnmarshalVariants(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"string", `{"SessionID":"a","Err":"boom"}`, "boom"},
		{"empty string", `{"SessionID":"a","Err":""}`, ""},
		{"null", `{"SessionID":"a","Err":null}`, ""},
		{"missing", `{"SessionID":"a"}`, ""},
		{"object", `{"SessionID":"a","Err":{}}`, "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m DownloadErrorMsg
			if err := json.Unmarshal([]byte(tt.data), &m); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if got := m.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Routing
// =============================================================================

func TestRoute(t *testing.T) {
	tests := []struct {
		msg       any
		topic     Topic
		sessionID string
	}{
		{StreamsReadyMsg{SessionID: "a"}, TopicStreamsReady, "a"},
		{ProgressMsg{SessionID: "b"}, TopicProgress, "b"},
		{DownloadCompleteMsg{SessionID: "c"}, TopicComplete, "c"},
		{DownloadErrorMsg{SessionID: "d"}, TopicError, "d"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T", tt.msg), func(t *testing.T) {
			topic, id, ok := Route(tt.msg)
			if !ok {
				t.Fatal("expected payload to be routable")
			}
			if topic != tt.topic || id != tt.sessionID {
				t.Errorf("Route() = (%s, %s), want (%s, %s)", topic, id, tt.topic, tt.sessionID)
			}
		})
	}

	if _, _, ok := Route("not a message"); ok {
		t.Error("arbitrary values should not be routable")
	}
}

func TestDecode_RestoresPayloadType(t *testing.T) {
	sent := ProgressMsg{
		SessionID: "s",
		Snapshot: types.SessionSnapshot{
			Video: &types.TrackProgress{Current: 10, Total: 100, Percentage: 10, SpeedLabel: "1.2MBps", ETALabel: "00:00:10"},
		},
	}
	data, err := json.Marshal(sent)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decode(TopicProgress, data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(got, sent) {
		t.Errorf("decoded %+v, want %+v", got, sent)
	}

	done, err := Decode(TopicComplete, []byte(`{"SessionID":"s","ExitCode":3,"Elapsed":1000000000}`))
	if err != nil {
		t.Fatal(err)
	}
	if m := done.(DownloadCompleteMsg); m.ExitCode != 3 || m.Elapsed != time.Second {
		t.Errorf("unexpected completion payload %+v", m)
	}

	if _, err := Decode(Topic("nope"), []byte(`{}`)); err == nil {
		t.Error("expected error for unknown topic")
	}
	if _, err := Decode(TopicStreamsReady, []byte(`{`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
