package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/cruciblehq/imgspec/internal/build"
	"github.com/cruciblehq/imgspec/internal/server"
)

const specYAML = `pkg_manager: yum
instructions:
  - [base, "centos:7"]
  - [install, [git]]
  - [copy, [./src, /src]]
  - [run, "make -C /src"]
`

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.yaml"), []byte(specYAML), 0o644))
	return dir
}

func defaultFlags() RenderFlags {
	return RenderFlags{
		CondaDir:    build.DefaultCondaDir,
		CondaArch:   build.DefaultArch,
		CommandsDir: build.DefaultCommandsDir,
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"a/b/pipeline.yaml": "pipeline",
		"spec.v2.json":      "spec.v2",
		"noext":             "noext",
	}
	for in, want := range tests {
		if got := stem(in); got != want {
			t.Fatalf("stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		debug, quiet bool
		want         slog.Level
	}{
		{false, false, slog.LevelInfo},
		{true, false, slog.LevelDebug},
		{false, true, slog.LevelWarn},
		{true, true, slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := levelFor(tt.debug, tt.quiet); got != tt.want {
			t.Fatalf("levelFor(%v, %v) = %v, want %v", tt.debug, tt.quiet, got, tt.want)
		}
	}
}

// Parses args against the render flags with defaults from a config file.
func parseWithConfig(t *testing.T, config string, args ...string) RenderFlags {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(config), 0o644))

	var cli struct {
		RenderFlags `embed:""`
	}
	k, err := kong.New(&cli,
		kong.Configuration(yamlConfig, file),
		kong.Vars{
			"conda_dir":    build.DefaultCondaDir,
			"conda_arch":   build.DefaultArch,
			"commands_dir": build.DefaultCommandsDir,
		},
	)
	require.NoError(t, err)
	_, err = k.Parse(args)
	require.NoError(t, err)
	return cli.RenderFlags
}

func TestYAMLConfig(t *testing.T) {
	config := "merge_runs: true\nconda_dir: /opt/mc\ncommandsDir: cmds\n"

	got := parseWithConfig(t, config)
	want := RenderFlags{
		MergeRuns:   true,
		CondaDir:    "/opt/mc",
		CondaArch:   build.DefaultArch,
		CommandsDir: "cmds",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}

	got = parseWithConfig(t, config, "--conda-dir=/usr/local/mc")
	if got.CondaDir != "/usr/local/mc" {
		t.Fatalf("CondaDir = %q, command line should win over the config file", got.CondaDir)
	}
}

func TestYAMLConfigAcceptsJSONAndEmpty(t *testing.T) {
	got := parseWithConfig(t, `{"annotate_base": true}`)
	require.True(t, got.AnnotateBase)

	got = parseWithConfig(t, "")
	if diff := cmp.Diff(defaultFlags(), got); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLConfigRejectsMalformed(t *testing.T) {
	_, err := yamlConfig(strings.NewReader("merge_runs: [unterminated"))
	require.Error(t, err)
}

func TestInteractive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	if interactive(f) {
		t.Fatal("a regular file was reported as a terminal")
	}
}

func TestRenderTargets(t *testing.T) {
	tests := []struct {
		name string
		cmd  RenderCmd
		want []string
		err  error
	}{
		{
			name: "defaults to the spec directory",
			cmd:  RenderCmd{Specs: []string{"a/one.yaml", "b/two.yaml"}},
			want: []string{"a", "b"},
		},
		{
			name: "single spec uses the output as is",
			cmd:  RenderCmd{Specs: []string{"a/one.yaml"}, Output: "out"},
			want: []string{"out"},
		},
		{
			name: "several specs get one subdirectory each",
			cmd:  RenderCmd{Specs: []string{"a/one.yaml", "a/two.yaml"}, Output: "out"},
			want: []string{filepath.Join("out", "one"), filepath.Join("out", "two")},
		},
		{
			name: "context is the default output",
			cmd:  RenderCmd{Specs: []string{"a/one.yaml"}, Context: "ctx"},
			want: []string{"ctx"},
		},
		{
			name: "print writes nothing",
			cmd:  RenderCmd{Specs: []string{"a/one.yaml", "a/two.yaml"}, Print: true},
			want: []string{"", ""},
		},
		{
			name: "specs sharing a directory conflict",
			cmd:  RenderCmd{Specs: []string{"a/one.yaml", "a/two.yaml"}},
			err:  ErrOutputConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := tt.cmd.targets()
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("error = %v, want %v", err, tt.err)
				}
				return
			}
			require.NoError(t, err)

			var got []string
			for _, target := range targets {
				got = append(got, target.Output)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("outputs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderAndCheck(t *testing.T) {
	dir := project(t)
	spec := filepath.Join(dir, "image.yaml")

	render := RenderCmd{Specs: []string{spec}, Jobs: 2, RenderFlags: defaultFlags()}
	require.NoError(t, render.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, build.DockerfileName))
	require.NoError(t, err)
	require.Contains(t, string(data), "RUN yum install -y -q")

	check := RenderCmd{Specs: []string{spec}, Check: true, RenderFlags: defaultFlags()}
	require.NoError(t, check.Run(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, build.DockerfileName), []byte("FROM scratch\n"), 0o644))
	err = check.Run(context.Background())
	if !errors.Is(err, ErrStale) {
		t.Fatalf("error = %v, want ErrStale", err)
	}
}

func TestRenderFailureStopsWrites(t *testing.T) {
	good := project(t)
	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, "image.yaml"), []byte(specYAML), 0o644))

	render := RenderCmd{
		Specs:       []string{filepath.Join(bad, "image.yaml"), filepath.Join(good, "image.yaml")},
		Jobs:        1,
		RenderFlags: defaultFlags(),
	}
	if err := render.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want missing copy source")
	}
	if _, err := os.Stat(filepath.Join(bad, build.DockerfileName)); err == nil {
		t.Fatal("Dockerfile written for the invalid spec")
	}
}

func TestValidateCmd(t *testing.T) {
	dir := project(t)

	ok := ValidateCmd{Specs: []string{filepath.Join(dir, "image.yaml")}, RenderFlags: defaultFlags()}
	require.NoError(t, ok.Run(context.Background()))

	if _, err := os.Stat(filepath.Join(dir, build.DockerfileName)); err == nil {
		t.Fatal("validate wrote a Dockerfile")
	}

	bad := ValidateCmd{
		Specs:       []string{filepath.Join(dir, "image.yaml")},
		Context:     t.TempDir(),
		RenderFlags: defaultFlags(),
	}
	require.Error(t, bad.Run(context.Background()))
}

func TestDaemonCommands(t *testing.T) {
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	xdg.Reload()

	socket := filepath.Join(t.TempDir(), "imgspec.sock")
	srv := server.New(server.Config{SocketPath: socket})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	prev := RootCmd.Socket
	RootCmd.Socket = socket
	t.Cleanup(func() { RootCmd.Socket = prev })

	require.NoError(t, (&StatusCmd{}).Run(context.Background()))
	require.NoError(t, (&StopCmd{}).Run(context.Background()))

	srv.Wait()

	err := (&StatusCmd{}).Run(context.Background())
	if !errors.Is(err, ErrDaemonUnavailable) {
		t.Fatalf("error after stop = %v, want ErrDaemonUnavailable", err)
	}
}
