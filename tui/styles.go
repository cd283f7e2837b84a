package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	crumbStyle = lipgloss.NewStyle().Faint(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

	faintStyle = lipgloss.NewStyle().Faint(true)

	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))

	pageStyle = lipgloss.NewStyle().Bold(true)

	disabledStyle = lipgloss.NewStyle().Faint(true)

	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	strongStyle = lipgloss.NewStyle().Bold(true)

	emphasisStyle = lipgloss.NewStyle().Italic(true)
)
