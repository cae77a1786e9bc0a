package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/session"
)

const logoText = `
 ▄▄▄ ▄▄▄▄▄ ▄▄▄▄  ▄▄▄▄▄  ▄▄▄  ▄   ▄  ▄▄▄  ▄▄▄▄   ▄▄▄  ▄▄▄▄
█      █   █   █ █     █   █ ██ ██ █     █   █ █   █ █   █
 ▀▀▄   █   █▀▀▄  █▀▀   █▀▀▀█ █ ▀ █ █  ▄▄ █▀▀▄  █▀▀▀█ █▀▀▄
▄▄▄▀   █   █   █ █▄▄▄▄ █   █ █   █  ▀▀▀  █   █ █   █ █▄▄▀`

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.screen {
	case SettingsScreen:
		return m.viewSettings()
	case InputScreen:
		body = m.viewInput()
	case LoadingScreen:
		body = m.viewLoading()
	case OptionsScreen:
		body = m.viewOptions()
	case DownloadScreen:
		body = m.viewDownload()
	case ResultScreen:
		body = m.viewResult()
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		LogoStyle.Render(logoText),
		"",
		body,
		m.renderFooter(),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m RootModel) boxWidth() int {
	w := min(m.width-4, BoxWidth)
	return max(w, MinBoxWidth)
}

func (m RootModel) renderFooter() string {
	if m.notification != "" {
		return NotificationStyle.Render(m.notification)
	}
	return ""
}

func (m RootModel) viewInput() string {
	lines := []string{
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, LabelStyle.Render("URL:"), m.inputs[urlField].View()),
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, LabelStyle.Render("Headers:"), m.inputs[headersField].View()),
		"",
	}
	if m.view.Err != nil && m.view.Message != "" {
		lines = append(lines, ErrorBannerStyle.Render("✖ "+m.view.Message), "")
	}
	lines = append(lines, m.help.View(InputKeys))

	content := lipgloss.NewStyle().Padding(0, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return renderBtopBox("Open Manifest", content, m.boxWidth(), len(lines)+2, ColorNeonPink, false)
}

func (m RootModel) viewLoading() string {
	content := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left,
		m.spinner.View()+" Asking the worker for the stream list...",
		"",
		HintStyle.Render(truncateString(m.view.SourceURL, m.boxWidth()-12)),
	))
	return renderBtopBox("Loading", content, m.boxWidth(), 7, ColorNeonCyan, false)
}

func (m RootModel) viewOptions() string {
	w := m.boxWidth()
	colWidth := (w - 8) / 3

	columns := []string{
		m.renderTrackColumn("Video", videoColumn, colWidth, m.audioOnly),
		m.renderTrackColumn("Audio", audioColumn, colWidth, false),
		m.renderTrackColumn("Subtitles", subtitleColumn, colWidth, false),
	}
	lists := lipgloss.JoinHorizontal(lipgloss.Top, columns...)

	nameLabel := LabelStyle.Render("Name:")
	if m.focusColumn == nameColumn {
		nameLabel = LabelStyle.Foreground(ColorNeonPink).Render("Name:")
	}

	lines := []string{
		lists,
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, nameLabel, m.nameInput.View()),
		"",
		fmt.Sprintf("%s  %s", toggle("Audio only", m.audioOnly), toggle("Auto merge", m.autoMerge)),
	}
	if m.view.Message != "" {
		lines = append(lines, "", ErrorBannerStyle.Render("✖ "+m.view.Message))
	}
	lines = append(lines, "", m.help.View(OptionsKeys))

	content := lipgloss.NewStyle().Padding(0, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	height := lipgloss.Height(content) + 2
	return renderBtopBox("Select Tracks", content, w, height, ColorNeonPink, false)
}

func toggle(label string, on bool) string {
	if on {
		return SelectedItemStyle.Render("[x] " + label)
	}
	return ItemStyle.Render("[ ] " + label)
}

func (m RootModel) renderTrackColumn(title string, column, width int, disabled bool) string {
	list := m.tracks(column)
	col := m.columns[column]

	titleStyle := ColumnTitleStyle
	if m.focusColumn == column {
		titleStyle = titleStyle.Foreground(ColorNeonPink)
	}
	lines := []string{titleStyle.Render(fmt.Sprintf("%s (%d)", title, len(list)))}

	if len(list) == 0 {
		lines = append(lines, HintStyle.Render("none"))
	}

	start := 0
	if col.cursor >= TrackListRows {
		start = col.cursor - TrackListRows + 1
	}
	for i := start; i < len(list) && i < start+TrackListRows; i++ {
		mark := "( )"
		if i == col.selected {
			mark = "(•)"
		}
		line := truncateString(mark+" "+list[i].Label, width-4)
		switch {
		case disabled:
			line = HintStyle.Render(line)
		case i == col.cursor && m.focusColumn == column:
			line = CursorItemStyle.Render("> " + line)
		case i == col.selected:
			line = SelectedItemStyle.Render("  " + line)
		default:
			line = ItemStyle.Render("  " + line)
		}
		lines = append(lines, line)
	}

	return lipgloss.NewStyle().Width(width).MarginRight(1).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m RootModel) viewDownload() string {
	w := m.boxWidth()
	v := m.view

	name := ""
	if v.Request != nil {
		name = v.Request.OutputName
	}
	status := "Downloading"
	if v.State == session.StateStarting {
		status = "Starting worker"
	}

	stats := lipgloss.JoinVertical(lipgloss.Left,
		statLine("Overall", fmt.Sprintf("%.1f%%", v.Overall)),
		statLine("Downloaded", v.Display.Downloaded),
		statLine("Speed", v.Display.Speed),
		statLine("ETA", v.Display.ETA),
	)

	lines := []string{
		m.spinner.View() + " " + SelectedItemStyle.Render(status) + " " + ItemStyle.Render(truncateString(name, w-30)),
		"",
		m.progress.ViewAs(clampRatio(v.Overall)),
		"",
		stats,
		"",
		m.renderTracks(v.Snapshot, v.AudioOnly),
		"",
		m.renderGraph(w - 8),
		"",
		m.help.View(ProgressKeys),
	}

	content := lipgloss.NewStyle().Padding(0, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return renderBtopBox("Download", content, w, lipgloss.Height(content)+2, ColorNeonCyan, false)
}

func statLine(label, value string) string {
	return StatLabelStyle.Render(label) + StatValueStyle.Render(value)
}

func clampRatio(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 1
	}
	return pct / 100
}

func (m RootModel) renderTracks(s *types.SessionSnapshot, audioOnly bool) string {
	if s == nil {
		return HintStyle.Render("waiting for the first progress report")
	}
	rows := []struct {
		name string
		p    *types.TrackProgress
		skip bool
	}{
		{"Video", s.Video, audioOnly},
		{"Audio", s.Audio, false},
		{"Subtitle", s.Subtitle, audioOnly},
	}
	var lines []string
	for _, r := range rows {
		if r.skip || r.p == nil {
			continue
		}
		size := r.p.DownloadedLabel
		if r.p.TotalSizeLabel != "" {
			size += " / " + r.p.TotalSizeLabel
		}
		lines = append(lines, fmt.Sprintf("%s %6.2f%%  %s", StatLabelStyle.Render(r.name), r.p.Percentage, HintStyle.Render(size)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m RootModel) renderGraph(width int) string {
	axisWidth := 10
	graphWidth := max(width-axisWidth-1, 10)
	maxVal := graphScale(m.SpeedHistory)

	axisStyle := lipgloss.NewStyle().Width(axisWidth).Foreground(ColorGray).Align(lipgloss.Right)
	top := axisStyle.Render(humanize.Bytes(uint64(maxVal)) + "/s")
	bottom := axisStyle.Render("0")
	axis := lipgloss.JoinVertical(lipgloss.Right, top, strings.Repeat("\n", max(GraphHeight-3, 0)), bottom)

	graph := renderSpeedGraph(m.SpeedHistory, graphWidth, GraphHeight, maxVal, ColorNeonPink)
	return lipgloss.JoinHorizontal(lipgloss.Top, axis, lipgloss.NewStyle().MarginLeft(1).Render(graph))
}

func (m RootModel) viewResult() string {
	v := m.view
	var banner string
	color := ColorSuccess
	if v.State == session.StateComplete {
		banner = SuccessBannerStyle.Render("✔ " + v.Message)
	} else {
		color = ColorError
		banner = ErrorBannerStyle.Render("✖ " + v.Message)
	}

	lines := []string{"", banner, ""}
	if v.State == session.StateComplete && m.Settings != nil {
		lines = append(lines, HintStyle.Render("Saved to "+m.Settings.General.DownloadLocation), "")
	}
	lines = append(lines, m.help.View(ResultKeys))

	content := lipgloss.NewStyle().Padding(0, 2).Width(m.boxWidth() - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return renderBtopBox("Result", content, m.boxWidth(), lipgloss.Height(content)+2, color, false)
}

func truncateString(s string, i int) string {
	if i < 4 {
		i = 4
	}
	runes := []rune(s)
	if len(runes) > i {
		return string(runes[:i-3]) + "..."
	}
	return s
}

// renderBtopBox creates a btop-style box with title embedded in the top border
// Example: ╭─ TITLE ─────────────────────────────────╮
func renderBtopBox(title string, content string, width, height int, borderColor lipgloss.Color, titleRight bool) string {
	const (
		topLeft     = "╭"
		topRight    = "╮"
		bottomLeft  = "╰"
		bottomRight = "╯"
		horizontal  = "─"
		vertical    = "│"
	)

	innerWidth := max(width-2, 1)
	border := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true)

	titleText := fmt.Sprintf(" %s ", title)
	remaining := max(innerWidth-lipgloss.Width(titleText)-1, 0)

	var top string
	if titleRight {
		top = border.Render(topLeft+strings.Repeat(horizontal, remaining)) +
			titleStyle.Render(titleText) +
			border.Render(horizontal+topRight)
	} else {
		top = border.Render(topLeft+horizontal) +
			titleStyle.Render(titleText) +
			border.Render(strings.Repeat(horizontal, remaining)+topRight)
	}
	bottom := border.Render(bottomLeft + strings.Repeat(horizontal, innerWidth) + bottomRight)

	contentLines := strings.Split(content, "\n")
	rows := make([]string, 0, height-2)
	for i := 0; i < height-2; i++ {
		line := ""
		if i < len(contentLines) {
			line = contentLines[i]
		}
		if lw := lipgloss.Width(line); lw < innerWidth {
			line += strings.Repeat(" ", innerWidth-lw)
		} else if lw > innerWidth {
			line = lipgloss.NewStyle().MaxWidth(innerWidth).Render(line)
		}
		rows = append(rows, border.Render(vertical)+line+border.Render(vertical))
	}

	return lipgloss.JoinVertical(lipgloss.Left, top, strings.Join(rows, "\n"), bottom)
}
