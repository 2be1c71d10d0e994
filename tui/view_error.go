package tui

import "fmt"

func (m Model) viewError() string {
	return fmt.Sprintf("\n\n   %s\n\n   %s\n", errorStyle.Render(m.err.Error()), navStyle.Render("Press q to quit."))
}
