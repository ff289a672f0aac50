package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/cruciblehq/imgspec/internal/build"
)

// Represents the 'imgspec render' command.
type RenderCmd struct {
	Specs   []string `arg:"" name:"spec" help:"Spec files to render." type:"existingfile"`
	Context string   `short:"c" help:"Build context for copy sources. Defaults to each spec's directory." type:"existingdir" placeholder:"DIR"`
	Output  string   `short:"o" help:"Build directory. Defaults to the build context; with several specs, one subdirectory per spec." placeholder:"DIR"`
	Check   bool     `help:"Fail when a build directory is out of date instead of writing it." xor:"mode"`
	Print   bool     `short:"p" help:"Print Dockerfiles to standard output instead of writing them." xor:"mode"`
	Jobs    int      `short:"j" help:"Number of specs rendered concurrently." default:"4"`

	RenderFlags `embed:""`
}

// Executes the render command.
//
// Specs are rendered concurrently; the first failure cancels the rest and
// nothing further is written. Results are reported in argument order.
func (c *RenderCmd) Run(ctx context.Context) error {
	targets, err := c.targets()
	if err != nil {
		return err
	}

	reports := make([]*build.Report, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Jobs, 1))

	for i, target := range targets {
		g.Go(func() error {
			report, err := build.Run(ctx, target, c.options())
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return c.report(targets, reports)
}

// Resolves the build directory of every spec.
func (c *RenderCmd) targets() ([]build.Target, error) {
	targets := make([]build.Target, len(c.Specs))
	seen := make(map[string]string)

	for i, spec := range c.Specs {
		target := build.Target{Spec: spec, Context: c.Context, Check: c.Check}

		switch {
		case c.Print:
		case c.Output == "" && c.Context != "":
			target.Output = c.Context
		case c.Output == "":
			target.Output = filepath.Dir(spec)
		case len(c.Specs) == 1:
			target.Output = c.Output
		default:
			target.Output = filepath.Join(c.Output, stem(spec))
		}

		if target.Output != "" {
			abs, err := filepath.Abs(target.Output)
			if err != nil {
				return nil, err
			}
			if other, dup := seen[abs]; dup {
				return nil, errors.Wrapf(ErrOutputConflict, "%s and %s both render into %s", other, spec, target.Output)
			}
			seen[abs] = spec
		}

		targets[i] = target
	}

	return targets, nil
}

// Prints or logs the outcome of each target.
func (c *RenderCmd) report(targets []build.Target, reports []*build.Report) error {
	stale := 0

	for i, r := range reports {
		t := targets[i]
		switch {
		case c.Print:
			fmt.Print(r.Output.Script.String())
		case c.Check && len(r.Stale) > 0:
			stale++
			slog.Warn("out of date", "spec", t.Spec, "output", t.Output, "paths", r.Stale)
		case c.Check:
			slog.Info("up to date", "spec", t.Spec, "output", t.Output)
		default:
			slog.Info("rendered", "spec", t.Spec, "output", t.Output, "digest", r.Output.Script.Digest())
		}
	}

	if stale > 0 {
		return errors.Wrapf(ErrStale, "%d of %d specs", stale, len(reports))
	}
	return nil
}

// Returns the spec file name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
