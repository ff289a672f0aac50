package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/cruciblehq/imgspec/internal/build"
	"github.com/cruciblehq/imgspec/internal/manifest"
)

// Represents the 'imgspec validate' command.
type ValidateCmd struct {
	Specs   []string `arg:"" name:"spec" help:"Spec files to check." type:"existingfile"`
	Context string   `short:"c" help:"Build context for copy sources. Defaults to each spec's directory." type:"existingdir" placeholder:"DIR"`

	RenderFlags `embed:""`
}

// Executes the validate command.
//
// Each spec is validated against its build context and its macros are
// expanded, so every error a render would report is found without writing
// anything.
func (c *ValidateCmd) Run(ctx context.Context) error {
	var g errgroup.Group

	for _, path := range c.Specs {
		g.Go(func() error {
			return c.validate(path)
		})
	}

	return g.Wait()
}

func (c *ValidateCmd) validate(path string) error {
	spec, err := manifest.Load(path)
	if err != nil {
		return err
	}

	buildCtx := c.Context
	if buildCtx == "" {
		buildCtx = filepath.Dir(path)
	}

	steps, err := build.Prepare(spec, manifest.FSLookup{FS: os.DirFS(buildCtx)}, c.options())
	if err != nil {
		return errors.WithMessage(err, path)
	}

	slog.Info("valid", "spec", path, "instructions", len(spec.Instructions), "steps", len(steps))
	return nil
}
