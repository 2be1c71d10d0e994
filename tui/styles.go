package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	textStyle = lipgloss.NewStyle()

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	navStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	focusStyle = lipgloss.NewStyle().
			Reverse(true).
			Foreground(lipgloss.Color("33"))

	// the "post is off" curtain
	curtainStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("208"))

	fieldStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241"))

	fieldFocusStyle = fieldStyle.
			BorderForeground(lipgloss.Color("33"))
)
