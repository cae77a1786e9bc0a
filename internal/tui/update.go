package tui

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/session"
	"github.com/streamgrab/streamgrab/internal/utils"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width, BoxWidth) - 2*ProgressBarWidthOffset - 4
		return m, nil

	case viewChangedMsg:
		var cmd tea.Cmd
		m, cmd = m.applyView(m.ctrl.View())
		return m, tea.Batch(cmd, listenForActivity(m.changes))

	case loadDoneMsg:
		return m.afterCall(msg.err)

	case startDoneMsg:
		return m.afterCall(msg.err)

	case clipboardMsg:
		return m.applyClipboard(msg), nil

	case spinner.TickMsg:
		if m.screen != LoadingScreen && m.screen != DownloadScreen {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.screen {
		case InputScreen:
			return m.updateInput(msg)
		case OptionsScreen:
			return m.updateOptions(msg)
		case LoadingScreen, DownloadScreen:
			if key.Matches(msg, ProgressKeys.Quit) {
				return m, tea.Quit
			}
		case ResultScreen:
			return m.updateResult(msg)
		case SettingsScreen:
			return m.updateSettings(msg)
		}
	}

	return m, nil
}

// afterCall refreshes the view after a controller call returned. Refusals
// that never reach the view are shown as a notification.
func (m RootModel) afterCall(err error) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m, cmd = m.applyView(m.ctrl.View())
	switch {
	case errors.Is(err, session.ErrSessionBusy), errors.Is(err, session.ErrSessionFinished), errors.Is(err, session.ErrClosed):
		m.notification = err.Error()
	case err == nil:
		m.notification = ""
	}
	return m, cmd
}

// applyView moves the UI to the screen that matches v.
func (m RootModel) applyView(v session.View) (RootModel, tea.Cmd) {
	if v.Seq < m.view.Seq {
		return m, nil
	}
	prev := m.view.State
	m.view = v

	current := m.screen
	if current == SettingsScreen {
		current = m.prevScreen
	}
	target := current
	autoStart := false

	switch v.State {
	case session.StateLoading:
		target = LoadingScreen
	case session.StateReady:
		if prev != session.StateReady || current == LoadingScreen {
			m.resetSelections()
			target = OptionsScreen
			autoStart = m.Settings.Session.AutoStart
		}
	case session.StateStarting, session.StateDownloading:
		target = DownloadScreen
		if prev != session.StateStarting && prev != session.StateDownloading {
			m.SpeedHistory = nil
		}
		if v.Snapshot != nil {
			m.recordSpeed(v.Display.Speed)
		}
	case session.StateComplete, session.StateFailed:
		target = ResultScreen
	case session.StateIdle:
		switch current {
		case LoadingScreen:
			target = InputScreen
		case ResultScreen, DownloadScreen:
			if v.Options != nil {
				target = OptionsScreen
			} else {
				target = InputScreen
			}
		}
	}

	var cmd tea.Cmd
	if target != current && (target == LoadingScreen || target == DownloadScreen) {
		cmd = m.spinner.Tick
	}
	if m.screen == SettingsScreen {
		m.prevScreen = target
	} else {
		m.screen = target
	}
	if target == InputScreen {
		m.focusInput(m.focusedInput)
	}
	if autoStart {
		cmd = tea.Batch(cmd, m.startCmd(m.buildRequest()))
	}
	return m, cmd
}

func (m *RootModel) recordSpeed(label string) {
	m.SpeedHistory = append(m.SpeedHistory, parseSpeed(label))
	if len(m.SpeedHistory) > SpeedHistoryLength {
		m.SpeedHistory = m.SpeedHistory[len(m.SpeedHistory)-SpeedHistoryLength:]
	}
}

// parseSpeed converts worker speed labels such as "5.20MBps" to bytes per
// second. Unparseable labels count as zero.
func parseSpeed(label string) float64 {
	s := strings.TrimSpace(label)
	s = strings.TrimSuffix(s, "/s")
	s = strings.TrimSuffix(s, "ps")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0
	}
	return float64(n)
}

func (m *RootModel) resetSelections() {
	opts := m.view.Options
	if opts == nil {
		opts = &types.StreamOptions{}
	}
	m.columns[videoColumn] = trackColumn{selected: firstOrNone(len(opts.Video))}
	m.columns[audioColumn] = trackColumn{selected: firstOrNone(len(opts.Audio))}
	m.columns[subtitleColumn] = trackColumn{selected: noSelection}
	m.audioOnly = false
	m.focusColumn = videoColumn
	if len(opts.Video) == 0 && len(opts.Audio) > 0 {
		m.focusColumn = audioColumn
		m.audioOnly = true
	}
	m.nameInput.Blur()
	m.nameInput.SetValue(utils.DefaultOutputName(m.view.SourceURL))
}

func firstOrNone(n int) int {
	if n > 0 {
		return 0
	}
	return noSelection
}

func (m RootModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, InputKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, InputKeys.Settings):
		return m.openSettings(), nil
	case key.Matches(msg, InputKeys.Paste):
		return m, readClipboard(false)
	case key.Matches(msg, InputKeys.Next):
		m.focusInput((m.focusedInput + 1) % fieldCount)
		return m, nil
	case key.Matches(msg, InputKeys.Prev):
		m.focusInput((m.focusedInput + fieldCount - 1) % fieldCount)
		return m, nil
	case key.Matches(msg, InputKeys.Submit):
		url := strings.TrimSpace(m.inputs[urlField].Value())
		if url == "" {
			m.focusInput(urlField)
			return m, nil
		}
		m.notification = ""
		headers := types.ParseHeaderList(m.inputs[headersField].Value())
		return m, m.loadCmd(url, headers)
	}

	var cmd tea.Cmd
	m.inputs[m.focusedInput], cmd = m.inputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *RootModel) focusInput(i int) {
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	m.focusedInput = i
}

func (m RootModel) updateOptions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, OptionsKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, OptionsKeys.Back):
		m.screen = InputScreen
		m.focusInput(urlField)
		return m, nil
	case key.Matches(msg, OptionsKeys.Column):
		m.focusColumn = (m.focusColumn + 1) % columnCount
		if m.focusColumn == nameColumn {
			m.nameInput.Focus()
		} else {
			m.nameInput.Blur()
		}
		return m, nil
	case key.Matches(msg, OptionsKeys.AudioOnly):
		m.audioOnly = !m.audioOnly
		return m, nil
	case key.Matches(msg, OptionsKeys.Merge):
		m.autoMerge = !m.autoMerge
		return m, nil
	case key.Matches(msg, OptionsKeys.Start):
		m.notification = ""
		return m, m.startCmd(m.buildRequest())
	}

	if m.focusColumn == nameColumn {
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd
	}

	col := &m.columns[m.focusColumn]
	n := m.trackCount(m.focusColumn)
	switch {
	case key.Matches(msg, OptionsKeys.Up):
		if col.cursor > 0 {
			col.cursor--
		}
	case key.Matches(msg, OptionsKeys.Down):
		if col.cursor < n-1 {
			col.cursor++
		}
	case key.Matches(msg, OptionsKeys.Select):
		if n == 0 {
			break
		}
		if m.focusColumn != videoColumn && col.selected == col.cursor {
			col.selected = noSelection
		} else {
			col.selected = col.cursor
		}
	}
	return m, nil
}

func (m RootModel) tracks(column int) []types.TrackOption {
	opts := m.view.Options
	if opts == nil {
		return nil
	}
	switch column {
	case videoColumn:
		return opts.Video
	case audioColumn:
		return opts.Audio
	case subtitleColumn:
		return opts.Subtitle
	}
	return nil
}

func (m RootModel) trackCount(column int) int {
	return len(m.tracks(column))
}

func (m RootModel) selectedTrack(column int) *types.TrackOption {
	list := m.tracks(column)
	idx := m.columns[column].selected
	if idx < 0 || idx >= len(list) {
		return nil
	}
	t := list[idx]
	return &t
}

// buildRequest turns the current selection into a download request.
func (m RootModel) buildRequest() types.DownloadRequest {
	req := types.DownloadRequest{
		SourceURL:        m.view.SourceURL,
		OutputName:       strings.TrimSpace(m.nameInput.Value()),
		Headers:          types.ParseHeaderList(m.inputs[headersField].Value()),
		SelectedAudio:    m.selectedTrack(audioColumn),
		SelectedSubtitle: m.selectedTrack(subtitleColumn),
		AutoMerge:        m.autoMerge,
		AudioOnly:        m.audioOnly,
	}
	if !m.audioOnly {
		req.SelectedVideo = m.selectedTrack(videoColumn)
	}
	return req
}

func (m RootModel) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, ResultKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, ResultKeys.Dismiss):
		m.ctrl.Dismiss()
		var cmd tea.Cmd
		m, cmd = m.applyView(m.ctrl.View())
		return m, cmd
	}
	return m, nil
}

func readClipboard(auto bool) tea.Cmd {
	return func() tea.Msg {
		text, err := clipboard.ReadAll()
		if err != nil {
			utils.Debug("clipboard unavailable: %v", err)
			return nil
		}
		return clipboardMsg{text: text, auto: auto}
	}
}

func (m RootModel) applyClipboard(msg clipboardMsg) RootModel {
	url, err := session.ValidateSourceURL(msg.text)
	if err != nil {
		if !msg.auto {
			m.notification = "Clipboard does not hold a manifest URL"
		}
		return m
	}
	if msg.auto && m.inputs[urlField].Value() != "" {
		return m
	}
	m.inputs[urlField].SetValue(url)
	m.notification = "Manifest URL pasted from clipboard"
	return m
}
