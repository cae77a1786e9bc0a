package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/streamgrab/streamgrab/internal/config"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/session"
)

type Screen int

const (
	InputScreen Screen = iota
	LoadingScreen
	OptionsScreen
	DownloadScreen
	ResultScreen
	SettingsScreen
)

// Input fields on the input screen.
const (
	urlField = iota
	headersField
	fieldCount
)

// Columns on the options screen.
const (
	videoColumn = iota
	audioColumn
	subtitleColumn
	nameColumn
	columnCount
)

// noSelection marks an optional track column with nothing chosen.
const noSelection = -1

// trackColumn is one selectable list of the options screen.
type trackColumn struct {
	cursor   int
	selected int
}

type RootModel struct {
	ctrl     *session.Controller
	Settings *config.Settings
	ctx      context.Context

	width  int
	height int
	screen Screen
	// screen to return to when the settings modal closes
	prevScreen Screen

	inputs       []textinput.Model
	focusedInput int
	nameInput    textinput.Model

	columns     [3]trackColumn
	focusColumn int
	audioOnly   bool
	autoMerge   bool

	view    session.View
	changes <-chan struct{}

	spinner      spinner.Model
	progress     progress.Model
	help         help.Model
	SpeedHistory []float64

	notification string

	// Settings modal
	SettingsActiveTab   int
	SettingsSelectedRow int
	SettingsIsEditing   bool
	SettingsInput       textinput.Model
}

// ViewFeed connects a controller observer to the TUI. Notifications are
// coalesced; the model always reads the latest view from the controller.
type ViewFeed struct {
	ch chan struct{}
}

func NewViewFeed() *ViewFeed {
	return &ViewFeed{ch: make(chan struct{}, 1)}
}

// Observe is passed to session.WithObserver.
func (f *ViewFeed) Observe(session.View) {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

func (f *ViewFeed) Changes() <-chan struct{} {
	return f.ch
}

// InitialRootModel builds the model around a running controller.
func InitialRootModel(ctx context.Context, ctrl *session.Controller, settings *config.Settings, feed *ViewFeed) RootModel {
	urlInput := textinput.New()
	urlInput.Placeholder = "https://example.com/master.m3u8"
	urlInput.Focus()
	urlInput.Width = InputWidth
	urlInput.Prompt = ""

	headersInput := textinput.New()
	headersInput.Placeholder = "Referer: https://example.com; Cookie: a=b"
	headersInput.Width = InputWidth
	headersInput.Prompt = ""

	nameInput := textinput.New()
	nameInput.Placeholder = "output name"
	nameInput.Width = InputWidth - 20
	nameInput.Prompt = ""

	settingsInput := textinput.New()
	settingsInput.Width = 30
	settingsInput.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = CursorItemStyle

	if settings == nil {
		settings = config.DefaultSettings()
	}

	return RootModel{
		ctrl:          ctrl,
		Settings:      settings,
		ctx:           ctx,
		screen:        InputScreen,
		inputs:        []textinput.Model{urlInput, headersInput},
		nameInput:     nameInput,
		autoMerge:     settings.Session.AutoMerge,
		view:          ctrl.View(),
		changes:       feed.Changes(),
		spinner:       sp,
		progress:      progress.New(progress.WithGradient(string(ColorNeonPurple), string(ColorNeonPink))),
		help:          help.New(),
		SettingsInput: settingsInput,
	}
}

func (m RootModel) Init() tea.Cmd {
	cmds := []tea.Cmd{listenForActivity(m.changes), textinput.Blink}
	if m.Settings.General.ClipboardMonitor {
		cmds = append(cmds, readClipboard(true))
	}
	return tea.Batch(cmds...)
}

// viewChangedMsg reports that the controller published a new view.
type viewChangedMsg struct{}

// loadDoneMsg and startDoneMsg carry the results of controller calls.
type loadDoneMsg struct{ err error }

type startDoneMsg struct{ err error }

// clipboardMsg carries clipboard text. auto marks the startup probe.
type clipboardMsg struct {
	text string
	auto bool
}

func listenForActivity(sub <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-sub; !ok {
			return nil
		}
		return viewChangedMsg{}
	}
}

func (m RootModel) loadCmd(url string, headers []types.RequestHeader) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return loadDoneMsg{err: ctrl.LoadOptions(ctx, url, headers)}
	}
}

func (m RootModel) startCmd(req types.DownloadRequest) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return startDoneMsg{err: ctrl.Start(ctx, req)}
	}
}

// CurrentScreen returns the screen being shown.
func (m RootModel) CurrentScreen() Screen {
	return m.screen
}

// WithSourceURL prefills the manifest URL field.
func (m RootModel) WithSourceURL(url string) RootModel {
	m.inputs[urlField].SetValue(url)
	return m
}
