package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// blocks are the eighth-height bar glyphs, empty first.
var blocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// renderSpeedGraph draws the newest len(data) <= width samples as a bar
// graph height rows tall, scaled to maxVal. Missing samples leave the grid
// showing on the left.
func renderSpeedGraph(data []float64, width, height int, maxVal float64, color lipgloss.Color) string {
	if width < 1 || height < 1 {
		return ""
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	gridStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	barStyle := lipgloss.NewStyle().Foreground(color)
	offset := width - len(data)
	levels := len(blocks) - 1

	lines := make([]string, height)
	for row := 0; row < height; row++ {
		// row 0 is the top line
		floor := height - 1 - row
		var b strings.Builder
		for col := 0; col < width; col++ {
			if col < offset {
				b.WriteString(gridCell(row, gridStyle))
				continue
			}
			v := data[col-offset]
			if v > maxVal {
				v = maxVal
			}
			eighths := int(v/maxVal*float64(height*levels) + 0.5)
			fill := eighths - floor*levels
			switch {
			case fill <= 0:
				b.WriteString(gridCell(row, gridStyle))
			case fill >= levels:
				b.WriteString(barStyle.Render(blocks[levels]))
			default:
				b.WriteString(barStyle.Render(blocks[fill]))
			}
		}
		lines[row] = b.String()
	}
	return strings.Join(lines, "\n")
}

func gridCell(row int, style lipgloss.Style) string {
	if row%2 == 0 {
		return style.Render("╌")
	}
	return " "
}

// graphScale rounds the peak of data up to a tidy axis maximum.
func graphScale(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return 1
	}
	peak *= 1.1
	step := 1.0
	for step*10 <= peak {
		step *= 10
	}
	return float64(int(peak/step)+1) * step
}
