package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

// SetupState tracks how far the screen has come in connecting to the
// health service.
type SetupState int

const (
	StateUninitialized SetupState = iota
	StateInitializing
	StateInitFailed
	StateNoPermission
	StatePermissionRequesting
	StatePermissionDenied
	StateReady
)

// SetupController drives the client from cold start to ready:
// initialize, then evaluate permissions, then hand over to the fetch
// path. Platform calls run off-loop inside tea.Cmd closures; state only
// changes in the Begin*/Apply* methods, which run on the event loop.
type SetupController struct {
	platform Platform
	appID    string

	state          SetupState
	isInitialized  bool
	hasPermissions bool
	initError      string
	loading        bool
}

func NewSetupController(p Platform, appID string) *SetupController {
	return &SetupController{platform: p, appID: appID}
}

func (s *SetupController) State() SetupState     { return s.state }
func (s *SetupController) Initialized() bool     { return s.isInitialized }
func (s *SetupController) HasPermissions() bool  { return s.hasPermissions }
func (s *SetupController) Err() string           { return s.initError }
func (s *SetupController) Loading() bool         { return s.loading }

// Ready reports whether records may be fetched.
func (s *SetupController) Ready() bool {
	return s.isInitialized && s.hasPermissions
}

// NextAction names the single action the setup screen offers: the
// first step that has not completed yet.
func (s *SetupController) NextAction() string {
	if !s.isInitialized {
		return "Initialize"
	}
	return "Grant Permissions"
}

// BeginInitialize starts the initialize call. Also used as the retry
// action after a failure; there is no backoff and no attempt limit.
func (s *SetupController) BeginInitialize() tea.Cmd {
	s.state = StateInitializing
	s.loading = true
	s.initError = ""

	return func() tea.Msg {
		resp, err := s.platform.Initialize(s.appID)
		if err != nil {
			return initDoneMsg{err: err}
		}
		return initDoneMsg{initialized: resp.Initialized, reason: resp.Reason}
	}
}

// ApplyInitialize folds the initialize result into the state machine.
// On success it chains straight into permission evaluation and returns
// that command; on failure it returns nil and no permission call is
// made.
func (s *SetupController) ApplyInitialize(msg initDoneMsg) tea.Cmd {
	if msg.err != nil {
		s.state = StateInitFailed
		s.initError = msg.err.Error()
		s.loading = false
		return nil
	}
	if !msg.initialized {
		s.state = StateInitFailed
		s.initError = msg.reason
		if s.initError == "" {
			s.initError = "the health service refused to initialize this app"
		}
		s.loading = false
		return nil
	}

	s.isInitialized = true
	s.initError = ""
	return s.BeginRequestPermissions()
}

// BeginRequestPermissions starts the combined check-and-request call
// for read access on active calories.
func (s *SetupController) BeginRequestPermissions() tea.Cmd {
	s.state = StatePermissionRequesting
	s.loading = true

	return func() tea.Msg {
		granted, err := s.platform.RequestPermissions(s.appID, []permission.Permission{
			permission.Read(record.TypeActiveCaloriesBurned),
		})
		return permissionDoneMsg{granted: granted, err: err}
	}
}

// ApplyPermissions folds the permission result into the state machine.
// The granted set is inspected for an exact read grant on the active
// calories record type; anything else counts as a denial.
func (s *SetupController) ApplyPermissions(msg permissionDoneMsg) {
	s.loading = false

	if msg.err != nil {
		s.state = StateNoPermission
		s.hasPermissions = false
		s.initError = msg.err.Error()
		return
	}

	s.hasPermissions = permission.Granted(msg.granted, permission.Read(record.TypeActiveCaloriesBurned))
	if s.hasPermissions {
		s.state = StateReady
		s.initError = ""
		return
	}
	s.state = StatePermissionDenied
}

// DismissDenied leaves the retry-or-cancel confirm without retrying.
// The setup screen then offers Grant Permissions as its next action.
func (s *SetupController) DismissDenied() {
	if s.state == StatePermissionDenied {
		s.state = StateNoPermission
	}
}
