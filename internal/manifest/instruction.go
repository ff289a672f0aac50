package manifest

import (
	"maps"
	"slices"

	"github.com/cruciblehq/imgspec/internal/descriptor"
	"github.com/cruciblehq/imgspec/internal/pkgmgr"
)

// Identifies the kind of an instruction.
type Kind string

const (
	KindFrom       Kind = "from_"
	KindInstall    Kind = "install"
	KindCopy       Kind = "copy"
	KindRun        Kind = "run"
	KindLabel      Kind = "label"
	KindEnv        Kind = "env"
	KindArg        Kind = "arg"
	KindWorkdir    Kind = "workdir"
	KindUser       Kind = "user"
	KindEntrypoint Kind = "entrypoint"
	KindCmd        Kind = "cmd"
	KindMiniconda  Kind = "miniconda"

	// Produced by macro expansion only; spec files cannot name them.
	KindCondaEnv   Kind = "conda_env"
	KindPipInstall Kind = "pip_install"
)

// Image specification.
type Spec struct {
	PackageManager pkgmgr.Name   // System package manager used by install instructions.
	Instructions   []Instruction // Build steps in order.
}

// A single build step.
//
// The set of implementations is closed; see the Kind constants. Values are
// treated as immutable once parsed.
type Instruction interface {
	Kind() Kind
	instruction()
}

// Reports whether the instruction expands into other instructions before
// rendering.
func IsMacro(ins Instruction) bool {
	return ins.Kind() == KindMiniconda
}

// Selects the base image.
type From struct {
	Image string // Image reference, e.g. "debian:bullseye".
}

// Installs system packages.
type Install struct {
	Packages []string    // Package names, in install order.
	Manager  pkgmgr.Name // Optional; must match the spec's manager when set.
}

// Copies a file or directory from the build context into the image.
type Copy struct {
	Source string // Path relative to the build context.
	Dest   string // Absolute path in the image.
}

// Runs shell commands at build time.
type Run struct {
	Commands []string // One shell command per entry.
	Chain    bool     // Render all commands as one step joined with "&&".
}

// Attaches labels to the image.
type Label struct {
	Pairs    map[string]string    // Plain key/value labels.
	Commands []descriptor.Command // Value of the org.nrg.commands key; nil when absent.
}

// Sets environment variables in the image.
type Env struct {
	Vars map[string]string
}

// Declares build arguments with defaults.
type Arg struct {
	Vars map[string]string
}

// Sets the working directory.
type Workdir struct {
	Path string
}

// Sets the user subsequent steps run as.
type User struct {
	Name string
}

// Sets the image entrypoint.
type Entrypoint struct {
	Args  []string // Exec form arguments, or the single shell command.
	Shell bool     // Shell form: Args holds exactly one command string.
}

// Sets the default command.
type Cmd struct {
	Args  []string
	Shell bool
}

// Installs Miniconda and a conda environment with Python packages.
type Miniconda struct {
	CreateEnv     string   // Environment to create.
	UseEnv        string   // Existing environment to install into.
	InstallPython []string // Conda package specifiers, e.g. "python=3.9".
	CondaOpts     string   // Extra conda flags, applied to the conda step only.
	PipInstall    []string // Pip specifiers or paths.
	PipOpts       string   // Extra pip flags, applied to the pip step only.
	Installed     bool     // Conda is already present in the base image.
	Version       string   // Miniconda installer version; empty means latest.
}

// Creates a conda environment or installs packages into an existing one.
type CondaEnv struct {
	Env      string   // Environment name.
	Packages []string // Conda package specifiers.
	Opts     string   // Extra conda flags, verbatim.
	Create   bool     // Create the environment rather than extend it.
}

// Installs pip packages into a conda environment.
type PipInstall struct {
	Env      string   // Target environment; never the base interpreter.
	Packages []string // Pip specifiers or paths.
	Opts     string   // Extra pip flags, verbatim.
}

func (From) Kind() Kind       { return KindFrom }
func (Install) Kind() Kind    { return KindInstall }
func (Copy) Kind() Kind       { return KindCopy }
func (Run) Kind() Kind        { return KindRun }
func (Label) Kind() Kind      { return KindLabel }
func (Env) Kind() Kind        { return KindEnv }
func (Arg) Kind() Kind        { return KindArg }
func (Workdir) Kind() Kind    { return KindWorkdir }
func (User) Kind() Kind       { return KindUser }
func (Entrypoint) Kind() Kind { return KindEntrypoint }
func (Cmd) Kind() Kind        { return KindCmd }
func (Miniconda) Kind() Kind  { return KindMiniconda }
func (CondaEnv) Kind() Kind   { return KindCondaEnv }
func (PipInstall) Kind() Kind { return KindPipInstall }

func (From) instruction()       {}
func (Install) instruction()    {}
func (Copy) instruction()       {}
func (Run) instruction()        {}
func (Label) instruction()      {}
func (Env) instruction()        {}
func (Arg) instruction()        {}
func (Workdir) instruction()    {}
func (User) instruction()       {}
func (Entrypoint) instruction() {}
func (Cmd) instruction()        {}
func (Miniconda) instruction()  {}
func (CondaEnv) instruction()   {}
func (PipInstall) instruction() {}

// Returns the label keys in sorted order, including the commands key when
// descriptors are present.
func (l Label) Keys() []string {
	keys := slices.Collect(maps.Keys(l.Pairs))
	if l.Commands != nil {
		keys = append(keys, descriptor.LabelKey)
	}
	slices.Sort(keys)
	return keys
}

// Returns the environment variable names in sorted order.
func (e Env) Keys() []string {
	return slices.Sorted(maps.Keys(e.Vars))
}

// Returns the argument names in sorted order.
func (a Arg) Keys() []string {
	return slices.Sorted(maps.Keys(a.Vars))
}

// Returns the environment the instruction targets.
func (m Miniconda) Env() string {
	if m.CreateEnv != "" {
		return m.CreateEnv
	}
	return m.UseEnv
}
