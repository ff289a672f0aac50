package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const pipelineYAML = `pkg_manager: apt
instructions:
  - name: from_
    kwds: {base_image: "debian:bullseye"}
  - [install, [git]]
  - name: copy
    kwds: {source_path: ./arcana, dest_path: /python-packages/arcana}
  - name: miniconda
    kwds:
      create_env: arcana
      install_python: ["python=3.9"]
      pip_install: [/python-packages/arcana]
  - name: copy
    kwds: {source_path: ./xnat_commands, dest_path: /xnat_commands}
`

// Lays out a project directory holding the spec and its build context.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "arcana"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arcana", "setup.py"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.yaml"), []byte(pipelineYAML), 0o644))
	return dir
}

func TestRun(t *testing.T) {
	dir := project(t)
	out := filepath.Join(dir, "build")

	report, err := Run(context.Background(), Target{
		Spec:    filepath.Join(dir, "pipeline.yaml"),
		Context: dir,
		Output:  out,
	}, Options{})
	require.NoError(t, err)
	if !report.Written {
		t.Fatal("Written = false, want true")
	}

	data, err := os.ReadFile(filepath.Join(out, DockerfileName))
	require.NoError(t, err)
	if string(data) != report.Output.Script.String() {
		t.Fatal("Dockerfile does not match the report")
	}

	report, err = Run(context.Background(), Target{
		Spec:   filepath.Join(dir, "pipeline.yaml"),
		Output: out,
		Check:  true,
	}, Options{})
	require.NoError(t, err)
	if report.Written || len(report.Stale) != 0 {
		t.Fatalf("check report = %+v, want clean and unwritten", report)
	}
}

func TestRunStagesCopySources(t *testing.T) {
	dir := project(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "run.sh"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data", "empty"), 0o755))
	spec := pipelineYAML + "  - [copy, [./scripts/run.sh, /usr/local/bin/run.sh]]\n  - [copy, [./data, /data]]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.yaml"), []byte(spec), 0o644))

	target := Target{Spec: filepath.Join(dir, "pipeline.yaml"), Context: dir, Output: t.TempDir()}

	_, err := Run(context.Background(), target, Options{})
	require.NoError(t, err)

	for _, p := range []string{"arcana/setup.py", "scripts/run.sh", "data/empty", DockerfileName} {
		if _, err := os.Stat(filepath.Join(target.Output, p)); err != nil {
			t.Fatalf("build directory lacks %s: %v", p, err)
		}
	}
	info, err := os.Stat(filepath.Join(target.Output, "scripts", "run.sh"))
	require.NoError(t, err)
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("mode = %v, want the executable bit kept", info.Mode())
	}
	info, err = os.Stat(filepath.Join(target.Output, DefaultCommandsDir))
	require.NoError(t, err)
	if !info.IsDir() {
		t.Fatal("commands path is not a directory")
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultCommandsDir)); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("build context modified: %v", err)
	}

	check := target
	check.Check = true
	report, err := Run(context.Background(), check, Options{})
	require.NoError(t, err)
	if len(report.Stale) != 0 {
		t.Fatalf("stale = %v, want none", report.Stale)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "run.sh"), []byte("#!/bin/sh\nexit 1\n"), 0o755))
	report, err = Run(context.Background(), check, Options{})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"scripts/run.sh"}, report.Stale); diff != "" {
		t.Fatalf("stale mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSkipsOutputInsideContext(t *testing.T) {
	dir := project(t)
	spec := pipelineYAML + "  - [copy, [., /src]]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.yaml"), []byte(spec), 0o644))

	target := Target{Spec: filepath.Join(dir, "pipeline.yaml"), Output: filepath.Join(dir, "build")}

	for range 2 {
		report, err := Run(context.Background(), target, Options{})
		require.NoError(t, err)

		for _, f := range report.Output.Files {
			if strings.HasPrefix(f.Path, "build/") || f.Path == DockerfileName {
				t.Fatalf("staged %s from the build directory itself", f.Path)
			}
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "build", "pipeline.yaml")); err != nil {
		t.Fatalf("context root not staged: %v", err)
	}
}

func TestRunWithoutOutput(t *testing.T) {
	dir := project(t)

	report, err := Run(context.Background(), Target{Spec: filepath.Join(dir, "pipeline.yaml")}, Options{})
	require.NoError(t, err)
	if report.Written {
		t.Fatal("Written = true without an output directory")
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultCommandsDir)); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("commands directory created without an output directory: %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	dir := project(t)
	out := filepath.Join(dir, "build")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Target{Spec: filepath.Join(dir, "pipeline.yaml"), Output: out}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(out); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("build directory written after cancellation")
	}
}

func TestRunErrors(t *testing.T) {
	dir := project(t)

	_, err := Run(context.Background(), Target{Spec: filepath.Join(dir, "missing.yaml")}, Options{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing spec error = %v, want fs.ErrNotExist", err)
	}

	_, err = Run(context.Background(), Target{
		Spec:    filepath.Join(dir, "pipeline.yaml"),
		Context: filepath.Join(dir, "pipeline.yaml"),
	}, Options{})
	if !errdefs.IsInvalidArgument(err) {
		t.Fatalf("file context error = %v, want invalid argument", err)
	}

	_, err = Run(context.Background(), Target{
		Spec:    filepath.Join(dir, "pipeline.yaml"),
		Context: t.TempDir(),
	}, Options{})
	if !errdefs.IsInvalidArgument(err) {
		t.Fatalf("empty context error = %v, want invalid argument", err)
	}
}
