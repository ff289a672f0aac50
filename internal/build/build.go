package build

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/pkg/errors"

	"github.com/cruciblehq/imgspec/internal/descriptor"
	"github.com/cruciblehq/imgspec/internal/manifest"
)

const (

	// Default Miniconda install prefix inside the image.
	DefaultCondaDir = "/opt/miniconda-latest"

	// Default Miniconda installer architecture.
	DefaultArch = "x86_64"

	// Default context-relative directory for descriptor side files.
	DefaultCommandsDir = "xnat_commands"

	// Name of the generated script in the build directory.
	DockerfileName = "Dockerfile"
)

// Controls expansion and rendering.
//
// The zero value is ready to use; empty fields take the defaults above.
type Options struct {
	CondaDir     string // Miniconda install prefix inside the image.
	Arch         string // Miniconda installer architecture, e.g. "aarch64".
	MergeRuns    bool   // Join adjacent run steps into one RUN stanza.
	AnnotateBase bool   // Label the image with its base image reference.
	CommandsDir  string // Context-relative directory for descriptor side files.
}

func (o Options) withDefaults() Options {
	if o.CondaDir == "" {
		o.CondaDir = DefaultCondaDir
	}
	if o.Arch == "" {
		o.Arch = DefaultArch
	}
	if o.CommandsDir == "" {
		o.CommandsDir = DefaultCommandsDir
	}
	o.CommandsDir = path.Clean(o.CommandsDir)
	return o
}

// File written next to the Dockerfile.
type File struct {
	Path string      // Slash-separated, relative to the build directory.
	Data []byte
	Mode fs.FileMode // Permission bits; zero means paths.DefaultFileMode.
}

// Returned after successful generation.
type Output struct {
	Script *Script  // Rendered Dockerfile.
	Files  []File   // Descriptor side files in spec order, then staged copy sources.
	Dirs   []string // Directories to create, relative to the build directory.
}

// Validates, expands and renders a spec, collecting the descriptor side
// files the image build needs.
//
// Every command descriptor carried by a label is also stored as an indented
// JSON file named after the command under the commands directory, which is
// always created so that the spec may copy it into the image.
//
// Nothing is written; see [Write].
func Generate(spec *manifest.Spec, lookup manifest.PathLookup, opts Options) (*Output, error) {
	opts = opts.withDefaults()

	steps, err := Prepare(spec, lookup, opts)
	if err != nil {
		return nil, err
	}

	files, err := sideFiles(spec, opts.CommandsDir)
	if err != nil {
		return nil, err
	}

	script, err := Render(spec, steps, opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("generated",
		"instructions", len(spec.Instructions),
		"steps", len(steps),
		"files", len(files),
	)

	return &Output{Script: script, Files: files, Dirs: []string{opts.CommandsDir}}, nil
}

// Validates a spec against the build context and expands its macros,
// without rendering.
//
// The lookup sees the commands directory as existing, since it is created
// with the output. A nil lookup skips the existence check on copy sources.
func Prepare(spec *manifest.Spec, lookup manifest.PathLookup, opts Options) ([]Step, error) {
	opts = opts.withDefaults()

	if path.IsAbs(opts.CommandsDir) || opts.CommandsDir == ".." || strings.HasPrefix(opts.CommandsDir, "../") {
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "commands directory %q must stay inside the build directory", opts.CommandsDir)
	}

	if lookup != nil {
		lookup = manifest.OverlayLookup{
			Base:   lookup,
			Staged: map[string]bool{opts.CommandsDir: true},
		}
	}

	if err := manifest.Validate(spec, lookup); err != nil {
		return nil, err
	}
	if err := checkCommandNames(spec); err != nil {
		return nil, err
	}

	return Expand(spec, opts)
}

// Command names are unique within a label but may repeat across labels;
// a repeat would overwrite an earlier side file and is rejected.
func checkCommandNames(spec *manifest.Spec) error {
	seen := make(map[string]int)

	for i, ins := range spec.Instructions {
		label, ok := ins.(manifest.Label)
		if !ok {
			continue
		}

		for _, cmd := range label.Commands {
			if prev, dup := seen[cmd.Name]; dup {
				return &manifest.ValidationError{
					Index:  i,
					Kind:   manifest.KindLabel,
					Field:  descriptor.LabelKey,
					Reason: fmt.Sprintf("command %q is already described by instructions[%d]", cmd.Name, prev),
				}
			}
			seen[cmd.Name] = i
		}
	}

	return nil
}

// Collects one indented JSON file per command descriptor, in spec order.
func sideFiles(spec *manifest.Spec, dir string) ([]File, error) {
	var files []File

	for _, ins := range spec.Instructions {
		label, ok := ins.(manifest.Label)
		if !ok {
			continue
		}

		for _, cmd := range label.Commands {
			data, err := descriptor.MarshalIndent(cmd)
			if err != nil {
				return nil, err
			}
			files = append(files, File{Path: path.Join(dir, cmd.Name+".json"), Data: data})
		}
	}

	return files, nil
}
