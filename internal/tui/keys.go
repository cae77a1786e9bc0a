package tui

import "github.com/charmbracelet/bubbles/key"

type inputKeyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Submit   key.Binding
	Paste    key.Binding
	Settings key.Binding
	Quit     key.Binding
}

func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.Paste, k.Settings, k.Quit}
}

func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Prev}}
}

var InputKeys = inputKeyMap{
	Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
	Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load tracks")),
	Paste:    key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "paste url")),
	Settings: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "settings")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+c", "quit")),
}

type optionsKeyMap struct {
	Column    key.Binding
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	AudioOnly key.Binding
	Merge     key.Binding
	Start     key.Binding
	Back      key.Binding
	Quit      key.Binding
}

func (k optionsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Column, k.Select, k.AudioOnly, k.Merge, k.Start, k.Back}
}

func (k optionsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Up, k.Down, k.Quit}}
}

var OptionsKeys = optionsKeyMap{
	Column:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "column")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	AudioOnly: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "audio only")),
	Merge:     key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "auto merge")),
	Start:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "new url")),
	Quit:      key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+c", "quit")),
}

type resultKeyMap struct {
	Dismiss key.Binding
	Quit    key.Binding
}

func (k resultKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dismiss, k.Quit}
}

func (k resultKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var ResultKeys = resultKeyMap{
	Dismiss: key.NewBinding(key.WithKeys("enter", "esc"), key.WithHelp("enter", "dismiss")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type progressKeyMap struct {
	Quit key.Binding
}

func (k progressKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

func (k progressKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var ProgressKeys = progressKeyMap{
	Quit: key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+c", "quit and stop")),
}

type settingsKeyMap struct {
	Tab   key.Binding
	Up    key.Binding
	Down  key.Binding
	Edit  key.Binding
	Reset key.Binding
	Save  key.Binding
}

func (k settingsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Edit, k.Reset, k.Save}
}

func (k settingsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Up, k.Down}}
}

var SettingsKeys = settingsKeyMap{
	Tab:   key.NewBinding(key.WithKeys("tab", "1", "2", "3"), key.WithHelp("tab/1-3", "category")),
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Edit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Save:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "save")),
}
