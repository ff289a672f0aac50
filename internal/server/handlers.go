package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cruciblehq/imgspec/internal"
	"github.com/cruciblehq/imgspec/internal/build"
	"github.com/cruciblehq/imgspec/internal/manifest"
	"github.com/cruciblehq/imgspec/internal/protocol"
)

// Handles a render command.
//
// Loads the spec named by the request from the daemon's filesystem,
// generates the Dockerfile and writes or checks the build directory.
func (s *Server) handleRender(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.RenderRequest](payload)
	if err != nil {
		s.fail(conn, err)
		return
	}

	report, err := build.Run(ctx, build.Target{
		Spec:    req.Spec,
		Context: req.Context,
		Output:  req.Output,
		Check:   req.Check,
	}, s.options(req.Options))
	if err != nil {
		s.fail(conn, err)
		return
	}

	s.mu.Lock()
	s.renders++
	s.mu.Unlock()

	out := report.Output
	files := make([]string, len(out.Files))
	for i, f := range out.Files {
		files[i] = f.Path
	}

	s.respond(conn, protocol.CmdOK, &protocol.RenderResult{
		Dockerfile: out.Script.String(),
		Digest:     out.Script.Digest().String(),
		Files:      files,
		Written:    report.Written,
		Stale:      report.Stale,
	})
}

// Handles a validate command.
//
// Runs validation and macro expansion without rendering, so that errors that
// depend on earlier instructions are reported too.
func (s *Server) handleValidate(conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.ValidateRequest](payload)
	if err != nil {
		s.fail(conn, err)
		return
	}

	spec, err := manifest.Load(req.Spec)
	if err != nil {
		s.fail(conn, err)
		return
	}

	buildCtx := req.Context
	if buildCtx == "" {
		buildCtx = filepath.Dir(req.Spec)
	}

	steps, err := build.Prepare(spec, manifest.FSLookup{FS: os.DirFS(buildCtx)}, s.defaults)
	if err != nil {
		s.fail(conn, err)
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.ValidateResult{
		Instructions: len(spec.Instructions),
		Steps:        len(steps),
	})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	renders := s.renders
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  uptime.String(),
		Renders: renders,
		Modes:   internal.Modes(),
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}

// Overlays request options on the server defaults.
func (s *Server) options(req protocol.RenderOptions) build.Options {
	opts := s.defaults
	if req.CondaDir != "" {
		opts.CondaDir = req.CondaDir
	}
	if req.Arch != "" {
		opts.Arch = req.Arch
	}
	if req.CommandsDir != "" {
		opts.CommandsDir = req.CommandsDir
	}
	opts.MergeRuns = opts.MergeRuns || req.MergeRuns
	opts.AnnotateBase = opts.AnnotateBase || req.AnnotateBase
	return opts
}
