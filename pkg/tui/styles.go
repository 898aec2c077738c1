package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	tabStyle       = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("241"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).Underline(true).Foreground(lipgloss.Color("205"))

	checkDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	checkTodoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	buttonStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	disabledStyle = lipgloss.NewStyle().Faint(true)

	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("241")).Padding(0, 1)
	originStyle = lipgloss.NewStyle().Faint(true)

	alertStyle = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("196")).Padding(0, 2)
	helpStyle  = lipgloss.NewStyle().Faint(true)
)
