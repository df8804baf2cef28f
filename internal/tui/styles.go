package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("39")
	colorMuted  = lipgloss.Color("241")
	colorError  = lipgloss.Color("203")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(30)
	headingStyle = lipgloss.NewStyle().Bold(true)
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	statusStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)
