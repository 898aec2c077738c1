// Package tui implements the active calories screen: a setup
// checklist that walks the health client to ready, then a scrollable
// list of the last seven days of records, hosted in a tab shell.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kcal-sh/kcal/pkg/api"
	"github.com/kcal-sh/kcal/pkg/client"
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

// Platform is the surface of the health service the screen talks to.
type Platform interface {
	Initialize(appID string) (*api.InitializeResponse, error)
	RequestPermissions(appID string, perms []permission.Permission) ([]permission.Permission, error)
	ReadRecords(appID, recordType string, tr api.TimeRangeFilter) ([]record.CalorieRecord, error)
}

var _ Platform = (*client.Client)(nil)

// Lines of screen chrome around the viewport: title, tab bar, status
// and help, plus their spacing.
const chromeHeight = 7

// Model is the Bubble Tea model for the screen. The two controllers
// own all mutable state; the model routes messages to them and holds
// the presentation widgets.
type Model struct {
	setup *SetupController
	fetch *FetchController
	shell *Shell

	spinner  spinner.Model
	viewport viewport.Model

	// alert is a blocking overlay; every key but the dismissing ones
	// is swallowed while it shows.
	alert string
}

// New builds the screen model. Extra tabs beyond Home are only used to
// exercise the shell contract; the app itself registers none.
func New(p Platform, appID string, extraTabs ...string) Model {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	return Model{
		setup:    NewSetupController(p, appID),
		fetch:    NewFetchController(p, appID),
		shell:    NewShell(append([]string{TabHome}, extraTabs...)...),
		spinner:  spin,
		viewport: viewport.New(80, 20),
	}
}

// Init starts the spinner and runs setup once. There is no manual
// trigger for the first initialize; the retry button appears only if
// it fails.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.setup.BeginInitialize())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case BackMsg:
		if m.shell.Back() {
			return m, nil
		}
		return m, tea.Quit

	case initDoneMsg:
		return m, m.setup.ApplyInitialize(msg)

	case permissionDoneMsg:
		m.setup.ApplyPermissions(msg)
		if m.setup.Ready() {
			// Setup just completed, load the list without waiting for
			// a refresh key.
			return m, m.fetch.Begin(m.setup.Initialized(), m.setup.HasPermissions())
		}
		return m, nil

	case recordsMsg:
		m.alert = m.fetch.Apply(msg)
		m.syncViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.syncViewport()
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// A blocking alert swallows everything until dismissed.
	if m.alert != "" {
		if key == "enter" || key == "esc" {
			m.alert = ""
		}
		return m, nil
	}

	// Retry-or-cancel confirm after a permission denial. Retrying has
	// no attempt limit.
	if m.setup.State() == StatePermissionDenied {
		switch key {
		case "y":
			return m, m.setup.BeginRequestPermissions()
		case "n", "esc":
			m.setup.DismissDenied()
		}
		return m, nil
	}

	if n := tabNumber(key); n >= 0 && m.shell.Len() > 1 {
		m.shell.SwitchTab(n)
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "esc":
		// The device back action surfaces as a navigation intent; the
		// pages never see the key itself.
		return m, func() tea.Msg { return BackMsg{} }
	}

	if m.shell.ActiveName() != TabHome {
		return m, nil
	}
	if m.setup.Ready() {
		return m.handleReadyKey(msg)
	}
	return m.handleSetupKey(msg)
}

func (m Model) handleSetupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A single action button, disabled while a call is in flight.
	if msg.String() != "enter" || m.setup.Loading() {
		return m, nil
	}

	if !m.setup.Initialized() {
		return m, m.setup.BeginInitialize()
	}
	return m, m.setup.BeginRequestPermissions()
}

func (m Model) handleReadyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "r" {
		if m.fetch.Loading() {
			return m, nil
		}
		return m, m.fetch.Begin(m.setup.Initialized(), m.setup.HasPermissions())
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) syncViewport() {
	m.viewport.SetContent(renderRecordList(m.fetch.Records()))
}

func tabNumber(key string) int {
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		return int(key[0] - '1')
	}
	return -1
}

// Run starts the screen and blocks until the user leaves it.
func Run(p Platform, appID string) error {
	_, err := tea.NewProgram(New(p, appID), tea.WithAltScreen()).Run()
	return err
}
