package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/streamgrab/streamgrab/internal/config"
)

var (
	// Colors
	ColorNeonPurple = lipgloss.Color("#bd93f9") // Dracula Purple
	ColorNeonPink   = lipgloss.Color("#ff79c6") // Dracula Pink
	ColorNeonCyan   = lipgloss.Color("#8be9fd") // Dracula Cyan
	ColorSuccess    = lipgloss.Color("#50fa7b") // Dracula Green
	ColorError      = lipgloss.Color("#ff5555") // Dracula Red
	ColorWarning    = lipgloss.Color("#ffb86c") // Dracula Orange
	ColorText       = lipgloss.Color("#f8f8f2") // Dracula Foreground
	ColorLightGray  = lipgloss.Color("#a4a7b8")
	ColorGray       = lipgloss.Color("#6272a4") // Dracula Comment
	ColorBorder     = lipgloss.Color("#44475a") // Dracula Selection

	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPurple).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(ColorLightGray)

	HintStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	// List Styles
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(ColorNeonPink).
				Bold(true)

	CursorItemStyle = lipgloss.NewStyle().
			Foreground(ColorNeonCyan)

	ItemStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	ColumnTitleStyle = lipgloss.NewStyle().
				Foreground(ColorNeonPurple).
				Bold(true).
				Underline(true)

	// Tabs
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true).
			Padding(0, 1)

	// Readout
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Width(12)

	StatValueStyle = lipgloss.NewStyle().
			Foreground(ColorNeonCyan).
			Bold(true)

	// Banners
	SuccessBannerStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess).
				Bold(true)

	ErrorBannerStyle = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	NotificationStyle = lipgloss.NewStyle().
				Foreground(ColorWarning)
)

// ApplyColorProfile selects the color profile of the output terminal and the
// background the styles assume.
func ApplyColorProfile(output *termenv.Output, theme int) {
	lipgloss.SetColorProfile(output.Profile)
	switch theme {
	case config.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	case config.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	default:
		lipgloss.SetHasDarkBackground(output.HasDarkBackground())
	}
}
