package tui

import "github.com/charmbracelet/lipgloss"

// TabHome is the tab every build of the app registers. The back action
// contract is defined against it: back from any other tab lands here.
const TabHome = "Home"

const homeTab = 0

// Shell is the tab bar hosting the screen. Today the app registers
// only Home; the shell still carries the full switch/back contract so
// more tabs can be added without touching the interception rule.
type Shell struct {
	tabs   []string
	active int
}

func NewShell(tabs ...string) *Shell {
	if len(tabs) == 0 {
		tabs = []string{TabHome}
	}
	return &Shell{tabs: tabs}
}

func (s *Shell) Len() int    { return len(s.tabs) }
func (s *Shell) Active() int { return s.active }

func (s *Shell) ActiveName() string {
	return s.tabs[s.active]
}

// SwitchTab activates the tab at i. Out-of-range indices are ignored.
func (s *Shell) SwitchTab(i int) {
	if i >= 0 && i < len(s.tabs) {
		s.active = i
	}
}

// Back consumes a navigation intent. It reports true when the intent
// was handled by switching back to Home; false means Home was already
// active and the default back behavior should run.
func (s *Shell) Back() bool {
	if s.active != homeTab {
		s.active = homeTab
		return true
	}
	return false
}

// BarView renders the tab bar with the active tab highlighted.
func (s *Shell) BarView() string {
	parts := make([]string, 0, len(s.tabs))
	for i, name := range s.tabs {
		style := tabStyle
		if i == s.active {
			style = activeTabStyle
		}
		parts = append(parts, style.Render(name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
