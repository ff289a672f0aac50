package internal

import (
	"strconv"
	"sync/atomic"
)

// Output modes of the process. Linker flags seed them and the -q, -v and
// -d flags raise them once parsed.
var (
	quietMode   atomic.Bool
	debugMode   atomic.Bool
	verboseMode atomic.Bool
)

func init() {
	seedMode(&quietMode, rawQuiet)
	seedMode(&debugMode, rawDebug)
	seedMode(&verboseMode, rawVerbose)
}

// Stores a linker-flag value. A malformed value leaves the mode off.
func seedMode(mode *atomic.Bool, raw string) {
	if v, err := strconv.ParseBool(raw); err == nil {
		mode.Store(v)
	}
}

// Enables the modes selected on the command line. A mode already enabled,
// for instance by linker flags, stays enabled.
func ApplyFlags(quiet, verbose, debug bool) {
	if quiet {
		quietMode.Store(true)
	}
	if verbose {
		verboseMode.Store(true)
	}
	if debug {
		debugMode.Store(true)
	}
}

// Whether informational output is suppressed.
func IsQuiet() bool {
	return quietMode.Load()
}

// Whether debug records are logged.
func IsDebug() bool {
	return debugMode.Load()
}

// Whether log records carry their source location.
func IsVerbose() bool {
	return verboseMode.Load()
}

// Returns the names of the enabled modes in a fixed order.
func Modes() []string {
	var modes []string
	if IsQuiet() {
		modes = append(modes, "quiet")
	}
	if IsVerbose() {
		modes = append(modes, "verbose")
	}
	if IsDebug() {
		modes = append(modes, "debug")
	}
	return modes
}
