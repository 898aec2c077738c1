package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when the kcal daemon is not running
	ErrDaemonNotRunning = errors.New("health service not running")

	// ErrPermissionDenied is returned when the caller may not perform the
	// requested action, either on the socket or because a grant is missing
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the daemon
	ErrNotFound = errors.New("404 not found")
)
