// Package server implements the imgspec daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands
// from the imgspec CLI or from build tooling. Each connection carries a
// single request-response exchange: the client sends a newline-delimited
// JSON envelope, the server dispatches the command, and writes the result
// back before closing the connection.
//
// Supported commands are rendering a spec file into a build directory,
// validating a spec file, querying daemon status, and initiating shutdown.
// Render and validate commands are delegated to the build package. Spec
// files and build directories are paths on the daemon's host. Failures are
// reported with a kind derived from the error class, so clients can tell a
// broken spec from a daemon problem.
//
// Example usage:
//
//	srv := server.New(server.Config{
//	    Options: build.Options{MergeRuns: true},
//	})
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
