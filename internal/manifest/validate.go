package manifest

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/shlex"

	"github.com/cruciblehq/imgspec/internal/descriptor"
	"github.com/cruciblehq/imgspec/internal/pkgmgr"
)

// Word appended to a command to see whether it survives as a separate word.
const chainSentinel = "__imgspec_next__"

var (
	identPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	envNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// Checks the structural invariants of a spec before rendering.
//
// The spec must be non-empty and start with from_, every copy source must be
// a context-relative path that lookup reports as existing, every label's
// command descriptors must be valid, and each instruction must carry the
// fields its kind requires. A nil lookup skips the existence check only.
//
// Returns the first violation as a [*ValidationError]. Validation does not
// expand macros; problems only visible after expansion are reported by the
// expander.
func Validate(spec *Spec, lookup PathLookup) error {
	if spec == nil || len(spec.Instructions) == 0 {
		return invalidf(-1, "", "instructions", "must not be empty")
	}

	if _, err := pkgmgr.Lookup(spec.PackageManager); err != nil {
		e := invalidf(-1, "", "pkg_manager", "%v", err)
		e.Err = err
		return e
	}

	if first := spec.Instructions[0]; first.Kind() != KindFrom {
		return invalidf(0, first.Kind(), "name", "first instruction must be %s", KindFrom)
	}

	for i, ins := range spec.Instructions {
		if err := validateInstruction(i, ins, spec, lookup); err != nil {
			return err
		}
	}

	return nil
}

func validateInstruction(i int, ins Instruction, spec *Spec, lookup PathLookup) error {
	k := ins.Kind()

	switch ins := ins.(type) {
	case From:
		if ins.Image == "" {
			return invalidf(i, k, "base_image", "required")
		}
		if _, err := name.ParseReference(ins.Image); err != nil {
			return invalidf(i, k, "base_image", "%v", err)
		}

	case Install:
		if err := validatePackages(i, k, "packages", ins.Packages, true, false); err != nil {
			return err
		}
		if ins.Manager != "" && ins.Manager != spec.PackageManager {
			return invalidf(i, k, "pkg_manager", "%q differs from the spec's %q; mixing package managers is not supported", ins.Manager, spec.PackageManager)
		}

	case Copy:
		return validateCopy(i, ins, lookup)

	case Run:
		if len(ins.Commands) == 0 {
			return invalidf(i, k, "commands", "required")
		}
		for _, c := range ins.Commands {
			if strings.TrimSpace(c) == "" {
				return invalidf(i, k, "commands", "empty command")
			}
			if strings.ContainsAny(c, "\r\n") {
				return invalidf(i, k, "commands", "command %q spans several lines", c)
			}
		}
		if ins.Chain {
			for _, c := range ins.Commands[:len(ins.Commands)-1] {
				if !Chainable(c) {
					return invalidf(i, k, "commands", "command %q would swallow the commands chained after it", c)
				}
			}
		}

	case Label:
		return validateLabel(i, ins)

	case Env:
		return validateVars(i, k, ins.Vars)

	case Arg:
		return validateVars(i, k, ins.Vars)

	case Workdir:
		if ins.Path == "" {
			return invalidf(i, k, "path", "required")
		}

	case User:
		if ins.Name == "" {
			return invalidf(i, k, "name", "required")
		}

	case Entrypoint:
		return validateCommandForm(i, k, ins.Args, ins.Shell)

	case Cmd:
		return validateCommandForm(i, k, ins.Args, ins.Shell)

	case Miniconda:
		return validateMiniconda(i, ins)

	case CondaEnv:
		if err := validateEnvName(i, k, "env", ins.Env); err != nil {
			return err
		}
		if err := validatePackages(i, k, "packages", ins.Packages, false, true); err != nil {
			return err
		}
		return validateOpts(i, k, "opts", ins.Opts)

	case PipInstall:
		if err := validateEnvName(i, k, "env", ins.Env); err != nil {
			return err
		}
		if err := validatePackages(i, k, "packages", ins.Packages, true, true); err != nil {
			return err
		}
		return validateOpts(i, k, "opts", ins.Opts)
	}

	return nil
}

// Copy sources must stay inside the build context and exist there.
func validateCopy(i int, c Copy, lookup PathLookup) error {
	if c.Source == "" {
		return invalidf(i, KindCopy, "source_path", "required")
	}
	if path.IsAbs(c.Source) {
		return invalidf(i, KindCopy, "source_path", "%q must be relative to the build context", c.Source)
	}

	src := path.Clean(c.Source)
	if src == ".." || strings.HasPrefix(src, "../") {
		return invalidf(i, KindCopy, "source_path", "%q escapes the build context", c.Source)
	}
	if lookup != nil && !lookup.Exists(src) {
		return invalidf(i, KindCopy, "source_path", "%q does not exist in the build context", c.Source)
	}

	if !path.IsAbs(c.Dest) {
		return invalidf(i, KindCopy, "dest_path", "%q must be an absolute path", c.Dest)
	}

	return nil
}

func validateLabel(i int, l Label) error {
	if len(l.Pairs) == 0 && l.Commands == nil {
		return invalidf(i, KindLabel, "kwds", "no labels")
	}

	for key, value := range l.Pairs {
		if key == "" || strings.ContainsAny(key, " \t\r\n=\"") {
			return invalidf(i, KindLabel, key, "invalid label key")
		}
		if key == descriptor.LabelKey {
			return invalidf(i, KindLabel, key, "must be given as command descriptors")
		}
		if strings.ContainsAny(value, "\r\n") {
			return invalidf(i, KindLabel, key, "value spans several lines")
		}
	}

	if l.Commands != nil {
		if err := descriptor.ValidateAll(l.Commands); err != nil {
			return &ValidationError{Index: i, Kind: KindLabel, Field: descriptor.LabelKey, Reason: err.Error(), Err: err}
		}
	}

	return nil
}

func validateVars(i int, k Kind, vars map[string]string) error {
	if len(vars) == 0 {
		return invalidf(i, k, "kwds", "no variables")
	}
	for key, value := range vars {
		if !identPattern.MatchString(key) {
			return invalidf(i, k, key, "invalid variable name")
		}
		if strings.ContainsAny(value, "\r\n") {
			return invalidf(i, k, key, "value spans several lines")
		}
	}
	return nil
}

func validateCommandForm(i int, k Kind, args []string, shell bool) error {
	if len(args) == 0 {
		return invalidf(i, k, "args", "required")
	}
	if shell && len(args) != 1 {
		return invalidf(i, k, "args", "shell form takes exactly one command")
	}
	for _, a := range args {
		if strings.ContainsAny(a, "\r\n") {
			return invalidf(i, k, "args", "argument %q spans several lines", a)
		}
	}
	return nil
}

func validateMiniconda(i int, m Miniconda) error {
	k := KindMiniconda

	switch {
	case m.CreateEnv == "" && m.UseEnv == "":
		return invalidf(i, k, "create_env", "one of create_env or use_env is required")
	case m.CreateEnv != "" && m.UseEnv != "":
		return invalidf(i, k, "use_env", "cannot be combined with create_env")
	}

	field := "create_env"
	if m.UseEnv != "" {
		field = "use_env"
	}
	if err := validateEnvName(i, k, field, m.Env()); err != nil {
		return err
	}

	if err := validatePackages(i, k, "install_python", m.InstallPython, false, true); err != nil {
		return err
	}
	if err := validatePackages(i, k, "pip_install", m.PipInstall, false, true); err != nil {
		return err
	}
	if err := validateOpts(i, k, "conda_opts", m.CondaOpts); err != nil {
		return err
	}
	if err := validateOpts(i, k, "pip_opts", m.PipOpts); err != nil {
		return err
	}

	if m.Version != "" && !envNamePattern.MatchString(m.Version) {
		return invalidf(i, k, "version", "invalid installer version %q", m.Version)
	}

	return nil
}

func validateEnvName(i int, k Kind, field, env string) error {
	if env == "" {
		return invalidf(i, k, field, "required")
	}
	if !envNamePattern.MatchString(env) {
		return invalidf(i, k, field, "invalid environment name %q", env)
	}
	return nil
}

// Package names are passed to the shell as words, so they may not be empty
// or contain line breaks. Unquoted names additionally may not contain
// whitespace.
func validatePackages(i int, k Kind, field string, pkgs []string, required, quoted bool) error {
	if len(pkgs) == 0 && required {
		return invalidf(i, k, field, "required")
	}
	for _, p := range pkgs {
		if p == "" {
			return invalidf(i, k, field, "empty package name")
		}
		if strings.ContainsAny(p, "\r\n") || (!quoted && strings.ContainsAny(p, " \t")) {
			return invalidf(i, k, field, "invalid package name %q", p)
		}
	}
	return nil
}

// Option strings are inserted verbatim, so they must at least split into
// shell words cleanly.
func validateOpts(i int, k Kind, field, opts string) error {
	if opts == "" {
		return nil
	}
	if strings.ContainsAny(opts, "\r\n") {
		return invalidf(i, k, field, "options span several lines")
	}
	if _, err := shlex.Split(opts); err != nil {
		return invalidf(i, k, field, "%v", err)
	}
	return nil
}

// Reports whether a command can be followed by "&& next" on the same shell
// line without absorbing it. A trailing comment, an unterminated quote or a
// dangling escape would swallow whatever is joined after the command, and
// with it any failure.
func Chainable(cmd string) bool {
	words, err := shlex.Split(cmd + " " + chainSentinel)
	return err == nil && len(words) > 0 && words[len(words)-1] == chainSentinel
}
