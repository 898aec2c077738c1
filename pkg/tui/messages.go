package tui

import (
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

// The three platform calls are the only asynchronous work this screen
// does. Each resolves into exactly one of these messages on the event
// loop; results are applied unconditionally in arrival order.

type initDoneMsg struct {
	initialized bool
	reason      string
	err         error
}

type permissionDoneMsg struct {
	granted []permission.Permission
	err     error
}

type recordsMsg struct {
	records []record.CalorieRecord
	err     error
}

// BackMsg is the navigation intent raised by the device back action.
// The shell consumes it by returning to the Home tab; when Home is
// already active the default behavior applies and the program exits.
type BackMsg struct{}
