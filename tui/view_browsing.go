package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

func (m Model) viewBrowsing() string {
	if m.width == 0 || m.height == 0 || m.page == nil {
		return "Loading..."
	}

	var b strings.Builder

	// Header: page title on the left, reply form state on the right
	title := m.page.Doc.Title()
	if title == "" {
		title = m.cfg.URL
	}
	right := ""
	if c := m.page.Controller; c != nil {
		right = fmt.Sprintf("%d comments  reply form %s", c.Thread().Len(), c.State())
	}
	maxTitle := max(m.width-runewidth.StringWidth(right)-2, 1)
	title = runewidth.Truncate(title, maxTitle, "...")
	gap := max(m.width-runewidth.StringWidth(title)-runewidth.StringWidth(right), 1)
	b.WriteString(titleStyle.Render(title) + strings.Repeat(" ", gap) + mutedStyle.Render(right) + "\n")
	b.WriteString(navStyle.Render(strings.Repeat("─", m.width)) + "\n")

	b.WriteString(m.viewport.View() + "\n")

	// Status line
	status := m.status
	if n := m.backend.Pending(); n > 0 {
		status = fmt.Sprintf("%s sending (%d)", m.spinner.View(), n)
	} else if m.editing {
		status = "editing: ctrl+s to send, esc to leave"
	}
	b.WriteString(mutedStyle.Render(status) + "\n")

	b.WriteString(m.help.View(m.keys))

	return b.String()
}
