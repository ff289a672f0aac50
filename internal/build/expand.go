package build

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/cruciblehq/imgspec/internal/manifest"
)

// Installer downloaded into the image when conda is bootstrapped.
const condaInstaller = "/tmp/miniconda.sh"

// Primitive instruction ready for rendering.
type Step struct {
	Origin      int                  // Position of the spec instruction the step came from.
	Instruction manifest.Instruction // Never a macro.
}

// Rewrites macro instructions into primitive ones.
//
// Non-macro instructions pass through unchanged and in order. The input spec
// is not modified. A miniconda macro becomes a conda bootstrap (at most once
// per spec, and only when conda is not already installed), an environment
// step, and a batched pip install into that environment. Expansion problems
// that depend on earlier instructions are reported as [*ExpansionError].
func Expand(spec *manifest.Spec, opts Options) ([]Step, error) {
	opts = opts.withDefaults()
	state := newExpandState()

	steps := make([]Step, 0, len(spec.Instructions))
	for i, ins := range spec.Instructions {
		expanded, err := expandInstruction(i, ins, state, opts)
		if err != nil {
			return nil, err
		}
		steps = append(steps, expanded...)
	}

	return steps, nil
}

// Expands a single instruction against the current state.
func expandInstruction(index int, ins manifest.Instruction, state *expandState, opts Options) ([]Step, error) {
	m, ok := ins.(manifest.Miniconda)
	if !ok {
		return []Step{{Origin: index, Instruction: ins}}, nil
	}

	instructions, err := expandMiniconda(index, m, state, opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("expanded miniconda", "index", index, "env", m.Env(), "steps", len(instructions))

	steps := make([]Step, len(instructions))
	for i, expanded := range instructions {
		steps[i] = Step{Origin: index, Instruction: expanded}
	}
	return steps, nil
}

func expandMiniconda(index int, m manifest.Miniconda, state *expandState, opts Options) ([]manifest.Instruction, error) {
	env := m.Env()

	switch {
	case m.CreateEnv != "" && len(m.InstallPython) == 0 && len(m.PipInstall) > 0:
		return nil, expansionErrorf(index, "create_env %q installs pip packages without install_python; the environment would have no interpreter", env)
	case m.CreateEnv != "" && state.hasEnv(env):
		return nil, expansionErrorf(index, "create_env %q: environment already exists", env)
	case m.UseEnv != "" && !state.hasEnv(env):
		return nil, expansionErrorf(index, "use_env %q: environment was not created earlier", env)
	}

	var out []manifest.Instruction

	if !m.Installed && !state.condaReady {
		out = append(out, condaBootstrap(m.Version, opts)...)
	}
	state.condaReady = true

	if m.CreateEnv != "" {
		out = append(out, manifest.CondaEnv{
			Env:      env,
			Packages: slices.Clone(m.InstallPython),
			Opts:     m.CondaOpts,
			Create:   true,
		})
		state.addEnv(env)
	} else if len(m.InstallPython) > 0 {
		out = append(out, manifest.CondaEnv{
			Env:      env,
			Packages: slices.Clone(m.InstallPython),
			Opts:     m.CondaOpts,
		})
	}

	if len(m.PipInstall) > 0 {
		out = append(out, manifest.PipInstall{
			Env:      env,
			Packages: slices.Clone(m.PipInstall),
			Opts:     m.PipOpts,
		})
	}

	return out, nil
}

// Returns the instructions that install Miniconda under the configured
// prefix and put it on the PATH.
func condaBootstrap(version string, opts Options) []manifest.Instruction {
	if version == "" {
		version = "latest"
	}
	url := fmt.Sprintf("https://repo.anaconda.com/miniconda/Miniconda3-%s-Linux-%s.sh", version, opts.Arch)

	return []manifest.Instruction{
		manifest.Install{Packages: []string{"bzip2", "ca-certificates", "curl"}},
		manifest.Env{Vars: map[string]string{
			"CONDA_DIR": opts.CondaDir,
			"PATH":      opts.CondaDir + "/bin:$PATH",
		}},
		manifest.Run{Chain: true, Commands: []string{
			"curl -fsSL --retry 5 -o " + condaInstaller + " " + url,
			"bash " + condaInstaller + " -b -p " + opts.CondaDir,
			"rm -f " + condaInstaller,
			"conda config --system --set auto_update_conda false",
			"conda config --system --set show_channel_urls true",
			"conda clean -y --all",
		}},
	}
}
