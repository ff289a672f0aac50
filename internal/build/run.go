package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/containerd/errdefs"
	"github.com/pkg/errors"

	"github.com/cruciblehq/imgspec/internal/manifest"
)

// Names a spec file and the directories it is rendered against.
type Target struct {
	Spec    string // Path to the spec file.
	Context string // Build context directory. Defaults to the spec's directory.
	Output  string // Build directory. Empty renders without writing.
	Check   bool   // Compare with the build directory instead of writing.
}

// Returned after a target has been processed.
type Report struct {
	Output  *Output  // Generated script and side files.
	Stale   []string // Out-of-date paths in the build directory, when checking.
	Written bool     // Whether the build directory was updated.
}

// Loads a spec file, generates its Dockerfile and either writes it to the
// build directory or checks the directory against it.
//
// Copy sources are resolved against the build context. When the build
// directory is elsewhere, the sources are staged into it along with the
// Dockerfile, so it can serve as the context of the image build. The
// context is consulted before anything is written, so a cancelled caller
// leaves the build directory untouched.
func Run(ctx context.Context, target Target, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	spec, err := manifest.Load(target.Spec)
	if err != nil {
		return nil, err
	}

	buildCtx := target.Context
	if buildCtx == "" {
		buildCtx = filepath.Dir(target.Spec)
	}

	info, err := os.Stat(buildCtx)
	if err != nil {
		return nil, errors.Wrap(err, "build context")
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "build context %s is not a directory", buildCtx)
	}

	slog.Info("rendering spec", "spec", target.Spec, "context", buildCtx, "output", target.Output)

	out, err := Generate(spec, manifest.FSLookup{FS: os.DirFS(buildCtx)}, opts)
	if err != nil {
		return nil, errors.WithMessage(err, target.Spec)
	}

	report := &Report{Output: out}

	if target.Output == "" {
		return report, nil
	}

	files, dirs, err := stage(spec, buildCtx, target.Output, opts.CommandsDir)
	if err != nil {
		return nil, errors.WithMessage(err, target.Spec)
	}
	out.Files = append(out.Files, files...)
	out.Dirs = append(out.Dirs, dirs...)

	if target.Check {
		report.Stale, err = Stale(out, target.Output)
		return report, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := Write(out, target.Output); err != nil {
		return nil, err
	}
	report.Written = true

	return report, nil
}
