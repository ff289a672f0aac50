package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cruciblehq/imgspec/internal/descriptor"
	"github.com/cruciblehq/imgspec/internal/pkgmgr"
)

const arcanaSpec = `
pkg_manager: apt
instructions:
  - name: from_
    kwds: {base_image: "debian:bullseye"}
  - name: install
    kwds: [git, vim]
  - name: copy
    kwds: {source_path: ./arcana, dest_path: /python-packages/arcana}
  - name: miniconda
    kwds:
      create_env: arcana
      install_python: ["python=3.9", numpy]
      conda_opts: --channel mrtrix3
      pip_install: ["/pkg[test]"]
  - name: label
    kwds:
      maintainer: someone@example.org
  - name: run
    kwds: ["mkdir -p /work", "chmod 777 /work"]
`

func TestParse(t *testing.T) {
	spec, err := Parse([]byte(arcanaSpec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Spec{
		PackageManager: pkgmgr.Apt,
		Instructions: []Instruction{
			From{Image: "debian:bullseye"},
			Install{Packages: []string{"git", "vim"}},
			Copy{Source: "./arcana", Dest: "/python-packages/arcana"},
			Miniconda{
				CreateEnv:     "arcana",
				InstallPython: []string{"python=3.9", "numpy"},
				CondaOpts:     "--channel mrtrix3",
				PipInstall:    []string{"/pkg[test]"},
			},
			Label{Pairs: map[string]string{"maintainer": "someone@example.org"}},
			Run{Commands: []string{"mkdir -p /work", "chmod 777 /work"}},
		},
	}

	if diff := cmp.Diff(want, spec); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePairForm(t *testing.T) {
	doc := `{
		"pkg_manager": "yum",
		"instructions": [
			["base", "centos:7"],
			["install", ["git"]],
			["copy", ["./xnat_commands", "/xnat_commands"]],
			["miniconda", {"create_env": "arcana", "conda_install": ["python=3.9"]}]
		]
	}`

	spec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Spec{
		PackageManager: pkgmgr.Yum,
		Instructions: []Instruction{
			From{Image: "centos:7"},
			Install{Packages: []string{"git"}},
			Copy{Source: "./xnat_commands", Dest: "/xnat_commands"},
			Miniconda{CreateEnv: "arcana", InstallPython: []string{"python=3.9"}},
		},
	}

	if diff := cmp.Diff(want, spec); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKwdsShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Instruction
	}{
		{
			name: "from string",
			doc:  `[from_, "debian:bullseye"]`,
			want: From{Image: "debian:bullseye"},
		},
		{
			name: "install mapping",
			doc:  `{name: install, kwds: {pkgs: [curl], pkg_manager: apt}}`,
			want: Install{Packages: []string{"curl"}, Manager: pkgmgr.Apt},
		},
		{
			name: "run string",
			doc:  `[run, "echo hi"]`,
			want: Run{Commands: []string{"echo hi"}},
		},
		{
			name: "run chained",
			doc:  `[run, {commands: [a, b], chain: true}]`,
			want: Run{Commands: []string{"a", "b"}, Chain: true},
		},
		{
			name: "env scalars",
			doc:  `[env, {LANG: C.UTF-8, LEVEL: 3, DEBUG: true}]`,
			want: Env{Vars: map[string]string{"LANG": "C.UTF-8", "LEVEL": "3", "DEBUG": "true"}},
		},
		{
			name: "workdir string",
			doc:  `[workdir, /work]`,
			want: Workdir{Path: "/work"},
		},
		{
			name: "user mapping",
			doc:  `[user, {name: nonroot}]`,
			want: User{Name: "nonroot"},
		},
		{
			name: "entrypoint exec form",
			doc:  `[entrypoint, [conda, run, "-n", arcana]]`,
			want: Entrypoint{Args: []string{"conda", "run", "-n", "arcana"}},
		},
		{
			name: "cmd shell form",
			doc:  `[cmd, "arcana --help"]`,
			want: Cmd{Args: []string{"arcana --help"}, Shell: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Parse([]byte("instructions:\n  - " + tt.doc + "\n"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(spec.Instructions) != 1 {
				t.Fatalf("len(Instructions) = %d, want 1", len(spec.Instructions))
			}
			if diff := cmp.Diff(tt.want, spec.Instructions[0]); diff != "" {
				t.Fatalf("instruction mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDefaultsToApt(t *testing.T) {
	spec, err := Parse([]byte(`instructions: [[from_, "debian:bullseye"]]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.PackageManager != pkgmgr.Apt {
		t.Fatalf("PackageManager = %q, want apt", spec.PackageManager)
	}
}

func TestParseKeepsScalarText(t *testing.T) {
	doc := `instructions:
  - [label, {version: 1.10, enabled: yes, build: 007, mask: 0x1F, ratio: .5}]
  - [env, {PY: 3.10, FLAG: on, ZIP: 01234}]
  - [arg, {TAG: 1_000}]
  - [install, [git, yes, no, on, y]]
`
	spec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Instruction{
		Label{Pairs: map[string]string{"version": "1.10", "enabled": "yes", "build": "007", "mask": "0x1F", "ratio": ".5"}},
		Env{Vars: map[string]string{"PY": "3.10", "FLAG": "on", "ZIP": "01234"}},
		Arg{Vars: map[string]string{"TAG": "1_000"}},
		Install{Packages: []string{"git", "yes", "no", "on", "y"}},
	}
	if diff := cmp.Diff(want, spec.Instructions); diff != "" {
		t.Fatalf("instructions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTypedScalars(t *testing.T) {
	spec, err := Parse([]byte(`instructions:
  - [run, {commands: [a, b], chain: True}]
  - [label, {org.nrg.commands: [{name: bet, schema-version: "1.0", command-line: bet, inputs: [{name: n, type: number, default-value: 2.50}]}]}]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run := spec.Instructions[0].(Run); !run.Chain {
		t.Fatal("Chain = false, want true")
	}
	label := spec.Instructions[1].(Label)
	if got := label.Commands[0].Inputs[0].DefaultValue; got != 2.5 {
		t.Fatalf("DefaultValue = %#v, want 2.5", got)
	}
}

func TestParseLabelCommands(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{
			name:  "json string",
			value: `'[{"name": "bet", "schema-version": "1.0", "command-line": "bet"}]'`,
		},
		{
			name:  "list",
			value: `[{name: bet, schema-version: "1.0", command-line: bet}]`,
		},
		{
			name:  "single object",
			value: `{name: bet, schema-version: "1.0", command-line: bet}`,
		},
	}

	want := []descriptor.Command{{
		Name:          "bet",
		SchemaVersion: "1.0",
		CommandLine:   "bet",
		Mounts:        []descriptor.Mount{},
		Ports:         map[string]string{},
		Inputs:        []descriptor.Input{},
		Outputs:       []descriptor.Output{},
		Xnat:          []descriptor.Wrapper{},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "instructions:\n  - [label, {maintainer: me, org.nrg.commands: " + tt.value + "}]\n"
			spec, err := Parse([]byte(doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			label, ok := spec.Instructions[0].(Label)
			if !ok {
				t.Fatalf("instruction is %T, want Label", spec.Instructions[0])
			}
			if label.Pairs["maintainer"] != "me" {
				t.Fatalf("Pairs = %v, want maintainer=me", label.Pairs)
			}
			if _, ok := label.Pairs[descriptor.LabelKey]; ok {
				t.Fatal("commands key leaked into plain pairs")
			}
			if diff := cmp.Diff(want, label.Commands); diff != "" {
				t.Fatalf("Commands mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		index int
		field string
	}{
		{
			name:  "unknown instruction",
			doc:   `instructions: [[from_, "a"], [frobnicate, {}]]`,
			index: 1,
			field: "name",
		},
		{
			name:  "expansion-only kind",
			doc:   `instructions: [[pip_install, {env: a}]]`,
			field: "name",
		},
		{
			name:  "missing kwds",
			doc:   `instructions: [{name: run}]`,
			field: "kwds",
		},
		{
			name:  "pair with three elements",
			doc:   `instructions: [[run, a, b]]`,
			field: "name",
		},
		{
			name:  "install with non-string package",
			doc:   `instructions: [[install, [git, {x: 1}]]]`,
			field: "kwds",
		},
		{
			name:  "copy with three paths",
			doc:   `instructions: [[copy, [a, b, /c]]]`,
			field: "kwds",
		},
		{
			name:  "unknown miniconda key",
			doc:   `instructions: [[miniconda, {create_env: a, conda_channel: x}]]`,
			field: "kwds",
		},
		{
			name:  "aliased keys both set",
			doc:   `instructions: [[miniconda, {create_env: a, install_python: [x], conda_install: [y]}]]`,
			field: "install_python",
		},
		{
			name:  "label with list value",
			doc:   `instructions: [[label, {a: [1, 2]}]]`,
			field: "a",
		},
		{
			name:  "malformed commands json",
			doc:   `instructions: [[label, {org.nrg.commands: "[{"}]]`,
			field: descriptor.LabelKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if !errors.Is(err, ErrParse) {
				t.Fatalf("err = %v, want ErrParse", err)
			}
			if vErr.Index != tt.index {
				t.Fatalf("Index = %d, want %d", vErr.Index, tt.index)
			}
			if vErr.Field != tt.field {
				t.Fatalf("Field = %q, want %q (%v)", vErr.Field, tt.field, err)
			}
		})
	}
}

func TestParseConflictingManagers(t *testing.T) {
	_, err := Parse([]byte(`{pkg_manager: apt, package_manager: yum, instructions: []}`))

	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Index != -1 {
		t.Fatalf("err = %v, want spec-level *ValidationError", err)
	}
}

func TestParseMalformedDocument(t *testing.T) {
	_, err := Parse([]byte("instructions: [unterminated"))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.yaml")
	if err := os.WriteFile(path, []byte(arcanaSpec), 0644); err != nil {
		t.Fatal(err)
	}

	spec, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spec.Instructions) != 6 {
		t.Fatalf("len(Instructions) = %d, want 6", len(spec.Instructions))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
