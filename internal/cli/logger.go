package cli

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/cruciblehq/imgspec/internal"
)

// Level of the process logger. Seeded from build-time linker flags and
// adjusted once command-line flags are parsed.
var logLevel = new(slog.LevelVar)

// Creates the process logger, seeded from build-time linker flags.
//
// The logger is reconfigured after flag parsing via [Execute].
func NewLogger() *slog.Logger {
	logLevel.Set(levelFor(internal.IsDebug(), internal.IsQuiet()))
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler.WithGroup(internal.Name))
}

// Configures the global logger based on CLI flags.
//
// Interactive terminals get text records; anything else gets JSON so that
// logs can be collected by machines. Verbose output adds source locations.
func configureLogger() {
	internal.ApplyFlags(RootCmd.Quiet, RootCmd.Verbose, RootCmd.Debug)

	logLevel.Set(levelFor(internal.IsDebug(), internal.IsQuiet()))

	opts := &slog.HandlerOptions{Level: logLevel, AddSource: internal.IsVerbose()}

	var handler slog.Handler
	if interactive(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler.WithGroup(internal.Name)))
}

func levelFor(debug, quiet bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	if quiet {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// Whether the given file is an interactive terminal.
func interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
