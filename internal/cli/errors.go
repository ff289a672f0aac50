package cli

import "errors"

var (
	ErrStale             = errors.New("build directory is out of date")
	ErrOutputConflict    = errors.New("several specs render into the same directory")
	ErrDaemonUnavailable = errors.New("daemon is not reachable")
	ErrDaemon            = errors.New("daemon reported an error")
)
