package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/streamgrab/streamgrab/internal/config"
)

// viewSettings renders the Btop-style settings page
func (m RootModel) viewSettings() string {
	width := 76
	height := 26
	if m.width > 0 && m.width < width+4 {
		width = m.width - 4
	}
	if m.height > 0 && m.height < height+4 {
		height = m.height - 4
	}

	categories := config.CategoryOrder()
	metadata := config.GetSettingsMetadata()

	// === TAB BAR ===
	var tabItems []string
	for i, cat := range categories {
		label := fmt.Sprintf("[%d] %s", i+1, cat)
		if i == m.SettingsActiveTab {
			tabItems = append(tabItems, ActiveTabStyle.Render(label))
		} else {
			tabItems = append(tabItems, TabStyle.Render(label))
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Left, tabItems...)

	currentCategory := categories[m.SettingsActiveTab]
	settingsMeta := metadata[currentCategory]
	values := m.getSettingsValues(currentCategory)

	leftWidth := 26
	rightWidth := width - leftWidth - 5

	// === LEFT COLUMN: names ===
	var listLines []string
	for i, meta := range settingsMeta {
		if i == m.SettingsSelectedRow {
			listLines = append(listLines, SelectedItemStyle.Render("> "+meta.Label))
		} else {
			listLines = append(listLines, lipgloss.NewStyle().Foreground(ColorLightGray).Render("  "+meta.Label))
		}
	}
	listBox := lipgloss.NewStyle().Width(leftWidth).Render(lipgloss.JoinVertical(lipgloss.Left, listLines...))

	separator := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.TrimSuffix(strings.Repeat("│\n", len(settingsMeta)), "\n"))

	// === RIGHT COLUMN: value + description ===
	var rightContent string
	if m.SettingsSelectedRow < len(settingsMeta) {
		meta := settingsMeta[m.SettingsSelectedRow]
		valueStr := formatSettingValue(values[meta.Key], meta.Type)
		if m.SettingsIsEditing {
			valueStr = m.SettingsInput.View()
		}
		valueDisplay := StatValueStyle.Render("Value: " + valueStr)
		descDisplay := lipgloss.NewStyle().
			Foreground(ColorGray).
			Width(rightWidth - 2).
			Render(meta.Description)
		rightContent = valueDisplay + "\n\n" + descDisplay
	}
	rightBox := lipgloss.NewStyle().Width(rightWidth).PaddingLeft(1).Render(rightContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listBox, separator, rightBox)

	fullContent := lipgloss.JoinVertical(lipgloss.Left,
		tabBar,
		"",
		content,
		"",
		m.help.View(SettingsKeys),
	)

	box := renderBtopBox("Settings", fullContent, width, height, ColorNeonPink, false)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m RootModel) openSettings() RootModel {
	m.prevScreen = m.screen
	m.screen = SettingsScreen
	m.SettingsActiveTab = 0
	m.SettingsSelectedRow = 0
	m.SettingsIsEditing = false
	return m
}

func (m RootModel) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	category := config.CategoryOrder()[m.SettingsActiveTab]

	if m.SettingsIsEditing {
		switch msg.String() {
		case "enter":
			if err := m.setSettingValue(category, m.getCurrentSettingKey(), m.SettingsInput.Value()); err != nil {
				m.notification = err.Error()
			}
			m.SettingsIsEditing = false
			m.SettingsInput.Blur()
			return m, nil
		case "esc":
			m.SettingsIsEditing = false
			m.SettingsInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.SettingsInput, cmd = m.SettingsInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, SettingsKeys.Save):
		if err := config.SaveSettings(m.Settings); err != nil {
			m.notification = "Failed to save settings: " + err.Error()
		} else {
			m.notification = "Settings saved. Worker settings apply to the next run."
		}
		m.screen = m.prevScreen
		return m, nil
	case key.Matches(msg, SettingsKeys.Tab):
		n := len(config.CategoryOrder())
		if idx, err := strconv.Atoi(msg.String()); err == nil && idx >= 1 && idx <= n {
			m.SettingsActiveTab = idx - 1
		} else {
			m.SettingsActiveTab = (m.SettingsActiveTab + 1) % n
		}
		m.SettingsSelectedRow = 0
	case key.Matches(msg, SettingsKeys.Up):
		if m.SettingsSelectedRow > 0 {
			m.SettingsSelectedRow--
		}
	case key.Matches(msg, SettingsKeys.Down):
		if m.SettingsSelectedRow < m.getSettingsCount()-1 {
			m.SettingsSelectedRow++
		}
	case key.Matches(msg, SettingsKeys.Reset):
		m.resetSettingToDefault(category, m.getCurrentSettingKey(), config.DefaultSettings())
	case key.Matches(msg, SettingsKeys.Edit):
		if m.getCurrentSettingType() == "bool" {
			_ = m.setSettingValue(category, m.getCurrentSettingKey(), "")
			return m, nil
		}
		value := m.getSettingsValues(category)[m.getCurrentSettingKey()]
		if s, ok := value.(string); ok {
			m.SettingsInput.SetValue(s)
		} else {
			m.SettingsInput.SetValue(formatSettingValue(value, m.getCurrentSettingType()))
		}
		m.SettingsInput.Focus()
		m.SettingsIsEditing = true
	}
	return m, nil
}

// getSettingsValues returns a map of setting key -> value for a category
func (m RootModel) getSettingsValues(category string) map[string]any {
	values := make(map[string]any)
	g, w, s := m.Settings.General, m.Settings.Worker, m.Settings.Session

	switch category {
	case "General":
		values["download_location"] = g.DownloadLocation
		values["clipboard_monitor"] = g.ClipboardMonitor
		values["theme"] = g.Theme
		values["log_level"] = g.LogLevel
		values["log_retention_count"] = g.LogRetentionCount
		values["debug_mode"] = g.DebugMode
	case "Worker":
		values["binary_path"] = w.BinaryPath
		values["tmp_dir"] = w.TmpDir
		values["thread_count"] = w.ThreadCount
		values["download_retry_count"] = w.DownloadRetryCount
		values["sub_format"] = w.SubFormat
		values["log_level"] = w.LogLevel
		values["default_format"] = w.DefaultFormat
		values["check_segments_count"] = w.CheckSegmentsCount
		values["binary_merge"] = w.BinaryMerge
		values["use_ffmpeg_concat_demuxer"] = w.UseFFmpegConcatDemuxer
		values["del_after_done"] = w.DelAfterDone
		values["no_date_info"] = w.NoDateInfo
		values["no_log"] = w.NoLog
		values["write_meta_json"] = w.WriteMetaJSON
		values["append_url_params"] = w.AppendURLParams
		values["concurrent_download"] = w.ConcurrentDownload
		values["sub_only"] = w.SubOnly
		values["auto_subtitle_fix"] = w.AutoSubtitleFix
		values["use_system_proxy"] = w.UseSystemProxy
	case "Session":
		values["timeout"] = s.Timeout
		values["auto_merge"] = s.AutoMerge
		values["auto_start"] = s.AutoStart
		values["keep_history"] = s.KeepHistory
		values["history_limit"] = s.HistoryLimit
	}
	return values
}

// boolField returns the address of a boolean setting.
func (m *RootModel) boolField(category, key string) *bool {
	g, w, s := &m.Settings.General, &m.Settings.Worker, &m.Settings.Session
	fields := map[string]map[string]*bool{
		"General": {
			"clipboard_monitor": &g.ClipboardMonitor,
			"debug_mode":        &g.DebugMode,
		},
		"Worker": {
			"check_segments_count":      &w.CheckSegmentsCount,
			"binary_merge":              &w.BinaryMerge,
			"use_ffmpeg_concat_demuxer": &w.UseFFmpegConcatDemuxer,
			"del_after_done":            &w.DelAfterDone,
			"no_date_info":              &w.NoDateInfo,
			"no_log":                    &w.NoLog,
			"write_meta_json":           &w.WriteMetaJSON,
			"append_url_params":         &w.AppendURLParams,
			"concurrent_download":       &w.ConcurrentDownload,
			"sub_only":                  &w.SubOnly,
			"auto_subtitle_fix":         &w.AutoSubtitleFix,
			"use_system_proxy":          &w.UseSystemProxy,
		},
		"Session": {
			"auto_merge":   &s.AutoMerge,
			"auto_start":   &s.AutoStart,
			"keep_history": &s.KeepHistory,
		},
	}
	return fields[category][key]
}

// setSettingValue sets a setting value from string input. Booleans toggle.
func (m *RootModel) setSettingValue(category, key, value string) error {
	if b := m.boolField(category, key); b != nil {
		*b = !*b
		return nil
	}

	value = strings.TrimSpace(value)
	atoi := func(dst *int) error {
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return fmt.Errorf("%s must be a non-negative number", key)
		}
		*dst = v
		return nil
	}

	g, w, s := &m.Settings.General, &m.Settings.Worker, &m.Settings.Session
	switch category + "." + key {
	case "General.download_location":
		g.DownloadLocation = value
	case "General.theme":
		return atoi(&g.Theme)
	case "General.log_level":
		g.LogLevel = value
	case "General.log_retention_count":
		return atoi(&g.LogRetentionCount)
	case "Worker.binary_path":
		w.BinaryPath = value
	case "Worker.tmp_dir":
		w.TmpDir = value
	case "Worker.thread_count":
		return atoi(&w.ThreadCount)
	case "Worker.download_retry_count":
		return atoi(&w.DownloadRetryCount)
	case "Worker.sub_format":
		w.SubFormat = strings.ToUpper(value)
	case "Worker.log_level":
		w.LogLevel = strings.ToUpper(value)
	case "Worker.default_format":
		w.DefaultFormat = strings.ToLower(value)
	case "Session.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		s.Timeout = d
	case "Session.history_limit":
		return atoi(&s.HistoryLimit)
	default:
		return fmt.Errorf("unknown setting %s.%s", category, key)
	}
	return nil
}

// getCurrentSettingKey returns the key of the currently selected setting
func (m RootModel) getCurrentSettingKey() string {
	meta := m.currentMeta()
	if meta == nil {
		return ""
	}
	return meta.Key
}

// getCurrentSettingType returns the type of the currently selected setting
func (m RootModel) getCurrentSettingType() string {
	meta := m.currentMeta()
	if meta == nil {
		return ""
	}
	return meta.Type
}

func (m RootModel) currentMeta() *config.SettingMeta {
	category := config.CategoryOrder()[m.SettingsActiveTab]
	metas := config.GetSettingsMetadata()[category]
	if m.SettingsSelectedRow < len(metas) {
		return &metas[m.SettingsSelectedRow]
	}
	return nil
}

// getSettingsCount returns the number of settings in the current category
func (m RootModel) getSettingsCount() int {
	category := config.CategoryOrder()[m.SettingsActiveTab]
	return len(config.GetSettingsMetadata()[category])
}

// formatSettingValue formats a setting value for display
func formatSettingValue(value any, typ string) string {
	if value == nil {
		return "-"
	}

	switch typ {
	case "bool":
		if b, ok := value.(bool); ok {
			if b {
				return "True"
			}
			return "False"
		}
	case "duration":
		if d, ok := value.(time.Duration); ok {
			return d.String()
		}
	case "string":
		if s, ok := value.(string); ok {
			if s == "" {
				return "(default)"
			}
			return truncateString(s, 30)
		}
	}
	return fmt.Sprintf("%v", value)
}

// resetSettingToDefault resets a specific setting to its default value
func (m *RootModel) resetSettingToDefault(category, key string, defaults *config.Settings) {
	saved := *m.Settings
	*m.Settings = *defaults
	want := m.getSettingsValues(category)[key]
	*m.Settings = saved

	switch v := want.(type) {
	case bool:
		if b := m.boolField(category, key); b != nil {
			*b = v
		}
	case time.Duration:
		_ = m.setSettingValue(category, key, v.String())
	default:
		_ = m.setSettingValue(category, key, fmt.Sprintf("%v", v))
	}
}
