package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgrab/streamgrab/internal/config"
	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/session"
	"github.com/streamgrab/streamgrab/internal/testutil"
)

const testManifest = "https://cdn.example.com/shows/pilot/master.m3u8"

func testStreams() events.StreamsReadyMsg {
	return events.StreamsReadyMsg{
		Video: []types.VideoStream{
			{ID: "v1", Selector: "res=1920x1080", Resolution: "1920x1080", Bitrate: "5000"},
			{ID: "v2", Selector: "res=1280x720", Resolution: "1280x720", Bitrate: "2500"},
		},
		Audio: []types.AudioStream{
			{ID: "a1", Selector: "id=aud-en", Name: "English", Language: "en"},
		},
		Subtitle: []types.SubtitleStream{
			{ID: "s1", Selector: "lang=en", Name: "English", Language: "en"},
		},
	}
}

func newTestModel(t *testing.T, bridge *testutil.MockBridge) (RootModel, *session.Controller) {
	t.Helper()
	feed := NewViewFeed()
	ctrl := session.NewController(bridge, types.DefaultWorkerOptions(), session.WithObserver(feed.Observe))
	t.Cleanup(ctrl.Close)

	settings := config.DefaultSettings()
	settings.General.ClipboardMonitor = false
	m := InitialRootModel(context.Background(), ctrl, settings, feed)
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 50})
	return m, ctrl
}

func step(t *testing.T, m RootModel, msg tea.Msg) RootModel {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(RootModel)
	require.True(t, ok)
	return out
}

// press sends a key and runs the returned command once, feeding a
// controller result back into the model.
func press(t *testing.T, m RootModel, k tea.KeyMsg) RootModel {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(RootModel)
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case loadDoneMsg, startDoneMsg:
		m = step(t, m, msg)
	}
	return m
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	tabKey   = tea.KeyMsg{Type: tea.KeyTab}
	downKey  = tea.KeyMsg{Type: tea.KeyDown}
	spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	audioKey = tea.KeyMsg{Type: tea.KeyCtrlA}
)

func loadManifest(t *testing.T, m RootModel) RootModel {
	t.Helper()
	m.inputs[urlField].SetValue(testManifest)
	return press(t, m, enterKey)
}

// =============================================================================
// Input screen
// =============================================================================

func TestUpdate_LoadMovesToOptions(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, _ := newTestModel(t, bridge)
	assert.Equal(t, InputScreen, m.CurrentScreen())

	m = loadManifest(t, m)

	assert.Equal(t, OptionsScreen, m.CurrentScreen())
	assert.Equal(t, "pilot", m.nameInput.Value())
	assert.Equal(t, 0, m.columns[videoColumn].selected)
	assert.Equal(t, 0, m.columns[audioColumn].selected)
	assert.Equal(t, noSelection, m.columns[subtitleColumn].selected)
	assert.Contains(t, m.View(), "1920x1080")
}

func TestUpdate_EmptyURLIsIgnored(t *testing.T) {
	bridge := testutil.NewMockBridge()
	m, _ := newTestModel(t, bridge)

	m = press(t, m, enterKey)

	assert.Equal(t, InputScreen, m.CurrentScreen())
	assert.Zero(t, bridge.EnumerateCount.Load())
}

func TestUpdate_LoadFailureStaysOnInput(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithEnumerateError(errors.New("manifest returned 404")))
	m, _ := newTestModel(t, bridge)

	m = loadManifest(t, m)

	assert.Equal(t, InputScreen, m.CurrentScreen())
	assert.Error(t, m.view.Err)
	assert.Contains(t, m.View(), "manifest returned 404")
}

func TestUpdate_HeadersAreParsed(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, _ := newTestModel(t, bridge)

	m.inputs[headersField].SetValue("Referer: https://example.com; broken; Cookie: a=b")
	m = loadManifest(t, m)

	calls := bridge.Enumerates()
	require.Len(t, calls, 1)
	assert.Equal(t, []types.RequestHeader{
		{Name: "Referer", Value: "https://example.com"},
		{Name: "Cookie", Value: "a=b"},
	}, calls[0].Headers)
}

func TestUpdate_FieldFocusCycles(t *testing.T) {
	m, _ := newTestModel(t, testutil.NewMockBridge())

	m = press(t, m, tabKey)
	assert.Equal(t, headersField, m.focusedInput)
	m = press(t, m, tabKey)
	assert.Equal(t, urlField, m.focusedInput)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, headersField, m.focusedInput)
}

// =============================================================================
// Options screen
// =============================================================================

func TestUpdate_SelectionBuildsRequest(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, _ := newTestModel(t, bridge)
	m = loadManifest(t, m)

	// second video variant
	m = press(t, m, downKey)
	m = press(t, m, spaceKey)
	// first subtitle
	m = press(t, m, tabKey)
	m = press(t, m, tabKey)
	m = press(t, m, spaceKey)

	req := m.buildRequest()
	require.NotNil(t, req.SelectedVideo)
	assert.Equal(t, "res=1280x720", req.SelectedVideo.ID)
	require.NotNil(t, req.SelectedAudio)
	assert.Equal(t, "id=aud-en", req.SelectedAudio.ID)
	require.NotNil(t, req.SelectedSubtitle)
	assert.Equal(t, "lang=en", req.SelectedSubtitle.ID)
	assert.Equal(t, testManifest, req.SourceURL)
	assert.Equal(t, "pilot", req.OutputName)

	// space on a selected optional track clears it
	m = press(t, m, spaceKey)
	assert.Nil(t, m.buildRequest().SelectedSubtitle)
}

func TestUpdate_AudioOnlyDropsVideo(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, _ := newTestModel(t, bridge)
	m = loadManifest(t, m)

	m = press(t, m, audioKey)

	req := m.buildRequest()
	assert.True(t, req.AudioOnly)
	assert.Nil(t, req.SelectedVideo)
	assert.NotNil(t, req.SelectedAudio)
}

func TestUpdate_EscReturnsToInput(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, _ := newTestModel(t, bridge)
	m = loadManifest(t, m)

	m = press(t, m, escKey)
	assert.Equal(t, InputScreen, m.CurrentScreen())
	assert.Equal(t, testManifest, m.inputs[urlField].Value())
}

func TestUpdate_InvalidRequestStaysOnOptions(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, _ := newTestModel(t, bridge)
	m = loadManifest(t, m)

	m.nameInput.SetValue("")
	m = press(t, m, enterKey)

	assert.Equal(t, OptionsScreen, m.CurrentScreen())
	assert.Zero(t, bridge.StartCount.Load())
	assert.NotEmpty(t, m.view.Message)
}

// =============================================================================
// Download lifecycle
// =============================================================================

func TestUpdate_DownloadLifecycle(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, ctrl := newTestModel(t, bridge)
	m = loadManifest(t, m)

	m = press(t, m, enterKey)
	require.Equal(t, DownloadScreen, m.CurrentScreen())
	id := ctrl.View().SessionID

	bridge.Progress(id, types.SessionSnapshot{
		Video: &types.TrackProgress{Current: 50, Total: 100, Percentage: 50, SpeedLabel: "2.00MBps", ETALabel: "00:00:30", DownloadedLabel: "50/100"},
		Audio: &types.TrackProgress{Current: 100, Total: 100, Percentage: 100},
	})
	m = step(t, m, viewChangedMsg{})

	assert.InDelta(t, 55.0, m.view.Overall, 0.001)
	assert.Equal(t, "2.00MBps", m.view.Display.Speed)
	require.Len(t, m.SpeedHistory, 1)
	assert.Equal(t, 2e6, m.SpeedHistory[0])
	assert.Contains(t, m.View(), "00:00:30")

	bridge.Complete(id, 0)
	m = step(t, m, viewChangedMsg{})
	assert.Equal(t, ResultScreen, m.CurrentScreen())
	assert.Contains(t, m.View(), "Download complete: pilot")

	m = press(t, m, enterKey)
	assert.Equal(t, OptionsScreen, m.CurrentScreen())
	assert.Equal(t, session.StateIdle, m.view.State)
}

func TestUpdate_AutoStartUsesDefaultSelection(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, _ := newTestModel(t, bridge)
	m.Settings.Session.AutoStart = true

	m.inputs[urlField].SetValue(testManifest)
	next, cmd := m.Update(enterKey)
	m = next.(RootModel)
	require.NotNil(t, cmd)

	next, cmd = m.Update(cmd())
	m = next.(RootModel)
	require.NotNil(t, cmd, "a loaded list should trigger a start")

	var msgs []tea.Msg
	out := cmd()
	if batch, ok := out.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c != nil {
				msgs = append(msgs, c())
			}
		}
	} else {
		msgs = append(msgs, out)
	}
	for _, msg := range msgs {
		if done, ok := msg.(startDoneMsg); ok {
			m = step(t, m, done)
		}
	}

	last, ok := bridge.LastStart()
	require.True(t, ok)
	assert.Equal(t, "res=1920x1080", last.Request.SelectedVideo.ID)
	assert.Equal(t, "id=aud-en", last.Request.SelectedAudio.ID)
	assert.Equal(t, DownloadScreen, m.CurrentScreen())
}

func TestUpdate_RejectedStartShowsFailure(t *testing.T) {
	bridge := testutil.NewMockBridge(
		testutil.WithStreams(testStreams()),
		testutil.WithStartError(errors.New("binary not found")),
	)
	m, _ := newTestModel(t, bridge)
	m = loadManifest(t, m)

	m = press(t, m, enterKey)

	assert.Equal(t, ResultScreen, m.CurrentScreen())
	assert.Equal(t, session.StateFailed, m.view.State)
	assert.Contains(t, m.View(), "binary not found")
}

func TestUpdate_StaleViewIsDropped(t *testing.T) {
	bridge := testutil.NewMockBridge(testutil.WithStreams(testStreams()))
	m, _ := newTestModel(t, bridge)
	m = loadManifest(t, m)

	stale := m.view
	stale.Seq--
	stale.State = session.StateLoading
	m, _ = m.applyView(stale)

	assert.Equal(t, OptionsScreen, m.CurrentScreen())
}

func TestUpdate_BusyRefusalIsNotified(t *testing.T) {
	m, _ := newTestModel(t, testutil.NewMockBridge())

	m = step(t, m, loadDoneMsg{err: session.ErrSessionBusy})
	assert.Equal(t, session.ErrSessionBusy.Error(), m.notification)

	m = step(t, m, loadDoneMsg{})
	assert.Empty(t, m.notification)
}

// =============================================================================
// Settings
// =============================================================================

func TestUpdate_SettingsEditAndSave(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	m, _ := newTestModel(t, testutil.NewMockBridge())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, SettingsScreen, m.CurrentScreen())

	// Session tab, second row is auto_merge
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	m = press(t, m, downKey)
	require.Equal(t, "auto_merge", m.getCurrentSettingKey())
	m = press(t, m, enterKey)
	assert.False(t, m.Settings.Session.AutoMerge)

	// first row is the discovery timeout
	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = press(t, m, enterKey)
	require.True(t, m.SettingsIsEditing)
	m.SettingsInput.SetValue("45s")
	m = press(t, m, enterKey)
	assert.Equal(t, 45*time.Second, m.Settings.Session.Timeout)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.Equal(t, types.DefaultEnumerateTimeout, m.Settings.Session.Timeout)

	m = press(t, m, escKey)
	assert.Equal(t, InputScreen, m.CurrentScreen())

	saved, err := config.LoadSettings()
	require.NoError(t, err)
	assert.False(t, saved.Session.AutoMerge)
}

func TestSetSettingValue_RejectsBadNumbers(t *testing.T) {
	m, _ := newTestModel(t, testutil.NewMockBridge())

	assert.Error(t, m.setSettingValue("Worker", "thread_count", "many"))
	assert.Error(t, m.setSettingValue("Worker", "thread_count", "-2"))
	require.NoError(t, m.setSettingValue("Worker", "thread_count", " 8 "))
	assert.Equal(t, 8, m.Settings.Worker.ThreadCount)

	require.NoError(t, m.setSettingValue("Worker", "sub_format", "vtt"))
	assert.Equal(t, "VTT", m.Settings.Worker.SubFormat)

	assert.Error(t, m.setSettingValue("Session", "timeout", "soon"))
	assert.Error(t, m.setSettingValue("Worker", "nope", "1"))
}

// =============================================================================
// Clipboard
// =============================================================================

func TestApplyClipboard(t *testing.T) {
	m, _ := newTestModel(t, testutil.NewMockBridge())

	m = m.applyClipboard(clipboardMsg{text: "not a url", auto: true})
	assert.Empty(t, m.inputs[urlField].Value())
	assert.Empty(t, m.notification)

	m = m.applyClipboard(clipboardMsg{text: "not a url"})
	assert.NotEmpty(t, m.notification)

	m = m.applyClipboard(clipboardMsg{text: "  " + testManifest + "\n", auto: true})
	assert.Equal(t, testManifest, m.inputs[urlField].Value())

	// the startup probe never overwrites typed input
	m = m.applyClipboard(clipboardMsg{text: "https://other.example.com/a.m3u8", auto: true})
	assert.Equal(t, testManifest, m.inputs[urlField].Value())
}

// =============================================================================
// Helpers
// =============================================================================

func TestParseSpeed(t *testing.T) {
	tests := []struct {
		label string
		want  float64
	}{
		{"5.20MBps", 5.2e6},
		{"512KBps", 512e3},
		{"1.5 MB/s", 1.5e6},
		{"0.00 B/s", 0},
		{"", 0},
		{"fast", 0},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.InDelta(t, tt.want, parseSpeed(tt.label), 1)
		})
	}
}

func TestRenderSpeedGraph(t *testing.T) {
	out := renderSpeedGraph([]float64{0, 5, 10}, 6, 3, 10, ColorNeonPink)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, out, "█")

	assert.Empty(t, renderSpeedGraph(nil, 0, 3, 10, ColorNeonPink))
}

func TestGraphScale(t *testing.T) {
	assert.Equal(t, 1.0, graphScale(nil))
	assert.Equal(t, 20.0, graphScale([]float64{12}))
	assert.Equal(t, 6e6, graphScale([]float64{5.2e6}))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}
