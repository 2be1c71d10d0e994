package tui

import (
	"fmt"
	"strings"
)

func (m Model) viewLoading() string {
	if m.width == 0 || m.height == 0 {
		return fmt.Sprintf("\n\n   %s %s\n\n", m.spinner.View(), m.status)
	}

	return renderLoadingScreen(m.width, m.height, m.spinner.View()+" "+m.status)
}

func renderLoadingScreen(width, height int, status string) string {
	logo := []string{
		" _____ _                        _",
		"|_   _| |__  _ __ ___  __ _  __| |___",
		"  | | | '_ \\| '__/ _ \\/ _` |/ _` / __|",
		"  | | | | | | | |  __/ (_| | (_| \\__ \\",
		"  |_| |_| |_|_|  \\___|\\__,_|\\__,_|___/",
	}

	blockHeight := len(logo) + 2
	startRow := (height - blockHeight) / 2
	statusRow := startRow + len(logo) + 1

	var b strings.Builder
	for y := range height {
		var line string
		switch {
		case y >= startRow && y < startRow+len(logo):
			line = center(titleStyle.Render(logo[y-startRow]), len(logo[y-startRow]), width)
		case y == statusRow:
			line = center(navStyle.Render(status), len([]rune(status)), width)
		default:
			line = strings.Repeat(" ", width)
		}
		b.WriteString(line)
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func center(rendered string, textWidth, width int) string {
	pad := max(width-textWidth, 0)
	left := pad / 2
	return strings.Repeat(" ", left) + rendered + strings.Repeat(" ", pad-left)
}
