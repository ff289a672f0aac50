// Parses flags and dispatches the imgspec commands.
//
// The program accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-s, --socket    Unix socket path of the daemon.
//
// The render and validate commands work on local spec files directly. The
// start command runs the render daemon; status and stop talk to a running
// daemon over its socket.
//
// Flags override build-time defaults set via linker flags and the JSON
// configuration file. After parsing, the global logger is reconfigured to
// reflect the final level and verbosity before the command runs.
package cli
