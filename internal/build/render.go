package build

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/containerd/errdefs"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"

	"github.com/cruciblehq/imgspec/internal/descriptor"
	"github.com/cruciblehq/imgspec/internal/manifest"
	"github.com/cruciblehq/imgspec/internal/pkgmgr"
)

// Separates key/value pairs of one LABEL or ENV stanza.
const pairSeparator = " \\\n    "

// Holds shared state while rendering the steps of one spec.
type renderer struct {
	mgr     pkgmgr.Manager // Adapter for install steps.
	opts    Options        // Render knobs, defaults applied.
	stanzas []Stanza       // Output so far.
}

// Renders expanded steps into a Dockerfile.
//
// Each step yields one stanza, except run steps without chaining, which
// yield one stanza per command. With [Options.MergeRuns] adjacent run steps
// are joined into a single stanza with "&&", so any failing command still
// fails the step. Steps must come from [Expand]; a macro is rejected.
//
// The output is deterministic: map-valued instructions are rendered with
// their keys sorted.
func Render(spec *manifest.Spec, steps []Step, opts Options) (*Script, error) {
	opts = opts.withDefaults()

	mgr, err := pkgmgr.Lookup(spec.PackageManager)
	if err != nil {
		return nil, err
	}

	r := &renderer{mgr: mgr, opts: opts}

	for i := 0; i < len(steps); i++ {
		step := steps[i]

		if run, ok := step.Instruction.(manifest.Run); ok && opts.MergeRuns {
			commands := slices.Clone(run.Commands)
			origins := slices.Repeat([]int{step.Origin}, len(run.Commands))
			for i+1 < len(steps) {
				next, ok := steps[i+1].Instruction.(manifest.Run)
				if !ok {
					break
				}
				commands = append(commands, next.Commands...)
				origins = append(origins, slices.Repeat([]int{steps[i+1].Origin}, len(next.Commands))...)
				i++
			}
			args, err := chain(origins, commands)
			if err != nil {
				return nil, err
			}
			r.emit(step.Origin, "RUN", args)
			continue
		}

		if err := r.render(step); err != nil {
			return nil, err
		}
	}

	script := newScript(r.stanzas)
	if err := script.lint(); err != nil {
		return nil, err
	}

	slog.Debug("rendered script", "stanzas", len(r.stanzas), "digest", script.Digest())

	return script, nil
}

// Appends a stanza.
func (r *renderer) emit(origin int, keyword, args string) {
	slog.Debug("stanza", "origin", origin, "keyword", keyword)
	r.stanzas = append(r.stanzas, Stanza{Origin: origin, Keyword: keyword, Args: args})
}

// Renders a single primitive step.
func (r *renderer) render(step Step) error {
	i := step.Origin

	switch ins := step.Instruction.(type) {
	case manifest.From:
		r.emit(i, "FROM", ins.Image)
		if r.opts.AnnotateBase {
			r.emit(i, "LABEL", ocispec.AnnotationBaseImageName+"="+quote(descriptor.Escape(ins.Image)))
		}

	case manifest.Install:
		r.emit(i, "RUN", r.mgr.Install(ins.Packages))

	case manifest.Copy:
		r.emit(i, "COPY", execForm([]string{ins.Source, ins.Dest}))

	case manifest.Run:
		if ins.Chain {
			args, err := chain(slices.Repeat([]int{i}, len(ins.Commands)), ins.Commands)
			if err != nil {
				return err
			}
			r.emit(i, "RUN", args)
			break
		}
		for _, c := range ins.Commands {
			r.emit(i, "RUN", c)
		}

	case manifest.Label:
		args, err := labelArgs(ins)
		if err != nil {
			return err
		}
		r.emit(i, "LABEL", args)

	case manifest.Env:
		pairs := make([]string, 0, len(ins.Vars))
		for _, k := range ins.Keys() {
			pairs = append(pairs, k+"="+quote(escapeEnv(ins.Vars[k])))
		}
		r.emit(i, "ENV", strings.Join(pairs, pairSeparator))

	case manifest.Arg:
		for _, k := range ins.Keys() {
			r.emit(i, "ARG", k+"="+quote(escapeEnv(ins.Vars[k])))
		}

	case manifest.Workdir:
		r.emit(i, "WORKDIR", ins.Path)

	case manifest.User:
		r.emit(i, "USER", ins.Name)

	case manifest.Entrypoint:
		r.emit(i, "ENTRYPOINT", commandForm(ins.Args, ins.Shell))

	case manifest.Cmd:
		r.emit(i, "CMD", commandForm(ins.Args, ins.Shell))

	case manifest.CondaEnv:
		r.emit(i, "RUN", condaEnvCommand(ins))

	case manifest.PipInstall:
		r.emit(i, "RUN", pipInstallCommand(ins))

	default:
		return errors.Wrapf(errdefs.ErrInvalidArgument, "instructions[%d]: %s must be expanded before rendering", i, ins.Kind())
	}

	return nil
}

// Joins user commands into one fragment with "&&". Every command but the
// last must end where it appears to end; otherwise it would absorb the
// commands after it and hide their exit status.
func chain(origins []int, commands []string) (string, error) {
	for j := 0; j+1 < len(commands); j++ {
		if !manifest.Chainable(commands[j]) {
			return "", &manifest.ValidationError{
				Index:  origins[j],
				Kind:   manifest.KindRun,
				Field:  "commands",
				Reason: fmt.Sprintf("command %q would swallow the commands joined after it", commands[j]),
			}
		}
	}
	return pkgmgr.Chain(commands...), nil
}

// Formats label pairs with sorted keys, one per continuation line. The
// commands key carries the encoded descriptors.
func labelArgs(l manifest.Label) (string, error) {
	keys := l.Keys()
	pairs := make([]string, 0, len(keys))

	for _, k := range keys {
		if k == descriptor.LabelKey && l.Commands != nil {
			value, err := descriptor.Encode(l.Commands)
			if err != nil {
				return "", err
			}
			pairs = append(pairs, k+"="+quote(value))
			continue
		}
		pairs = append(pairs, k+"="+quote(descriptor.Escape(l.Pairs[k])))
	}

	return strings.Join(pairs, pairSeparator), nil
}

func condaEnvCommand(c manifest.CondaEnv) string {
	verb := "install"
	if c.Create {
		verb = "create"
	}

	cmd := "conda " + verb + " -y -q --name " + c.Env
	if c.Opts != "" {
		cmd += " " + c.Opts
	}
	if len(c.Packages) > 0 {
		cmd += " \\\n" + pkgmgr.List(shellQuoteAll(c.Packages))
	}

	return pkgmgr.Chain(cmd, "conda clean -y --all")
}

// Pip runs inside the target environment, never the base interpreter.
func pipInstallCommand(p manifest.PipInstall) string {
	cmd := "conda run --no-capture-output --name " + p.Env + " python -m pip install --no-cache-dir"
	if p.Opts != "" {
		cmd += " " + p.Opts
	}
	return cmd + " \\\n" + pkgmgr.List(shellQuoteAll(p.Packages))
}

// Formats arguments as a JSON array, or the single command verbatim for the
// shell form.
func commandForm(args []string, shell bool) string {
	if shell {
		return args[0]
	}
	return execForm(args)
}

func execForm(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = jsonString(a)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func jsonString(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}

func quote(escaped string) string {
	return `"` + escaped + `"`
}

// Escapes an ENV or ARG value for double quotes. Unlike label values, "$"
// is left alone so references such as $PATH still expand.
var envEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeEnv(s string) string {
	return envEscaper.Replace(s)
}

// Quotes a word for a POSIX shell double-quoted string.
var shellEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

func shellQuoteAll(words []string) []string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = quote(shellEscaper.Replace(w))
	}
	return quoted
}
