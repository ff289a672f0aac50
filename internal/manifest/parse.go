package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/cruciblehq/imgspec/internal/descriptor"
	"github.com/cruciblehq/imgspec/internal/pkgmgr"
)

// Default package manager when a spec file names none.
const DefaultPackageManager = pkgmgr.Apt

// On-disk layout of a spec file.
type file struct {
	PkgManager     string            `json:"pkg_manager"`
	PackageManager string            `json:"package_manager"`
	Instructions   []json.RawMessage `json:"instructions"`
}

// Record form of an instruction: {"name": ..., "kwds": ...}.
type record struct {
	Name string          `json:"name"`
	Kwds json.RawMessage `json:"kwds"`
}

// Normalizes the keyword arguments of one instruction kind.
type parseFunc func(index int, kwds json.RawMessage) (Instruction, error)

var parsers = map[string]parseFunc{
	"from_":      parseFrom,
	"base":       parseFrom,
	"install":    parseInstall,
	"copy":       parseCopy,
	"run":        parseRun,
	"label":      parseLabel,
	"env":        parseEnv,
	"arg":        parseArg,
	"workdir":    parseWorkdir,
	"user":       parseUser,
	"entrypoint": parseEntrypoint,
	"cmd":        parseCmd,
	"miniconda":  parseMiniconda,
}

// Reads and parses a spec file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading spec %s", path)
	}

	spec, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing spec %s", path)
	}

	return spec, nil
}

// Parses a YAML or JSON spec document.
//
// Instructions may be given as {name, kwds} records or as [name, kwds]
// pairs. Keyword arguments are normalized into the kind's record; shapes
// that do not fit are rejected with a [ValidationError] wrapping
// [ErrParse]. Parsing does not check cross-instruction invariants; see
// [Validate].
func Parse(data []byte) (*Spec, error) {
	js, err := yamlToJSON(data)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	var f file
	if err := decodeStrict(js, &f); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	spec := &Spec{PackageManager: DefaultPackageManager}

	switch {
	case f.PkgManager != "" && f.PackageManager != "" && f.PkgManager != f.PackageManager:
		return nil, parseErrorf(-1, "", "pkg_manager", "conflicts with package_manager %q", f.PackageManager)
	case f.PkgManager != "":
		spec.PackageManager = pkgmgr.Name(f.PkgManager)
	case f.PackageManager != "":
		spec.PackageManager = pkgmgr.Name(f.PackageManager)
	}

	spec.Instructions = make([]Instruction, 0, len(f.Instructions))
	for i, raw := range f.Instructions {
		ins, err := parseInstruction(i, raw)
		if err != nil {
			return nil, err
		}
		spec.Instructions = append(spec.Instructions, ins)
	}

	return spec, nil
}

func parseInstruction(index int, raw json.RawMessage) (Instruction, error) {
	name, kwds, err := splitInstruction(raw)
	if err != nil {
		return nil, parseErrorf(index, "", "name", "%v", err)
	}

	parse, ok := parsers[name]
	if !ok {
		return nil, parseErrorf(index, "", "name", "unknown instruction %q", name)
	}
	if len(kwds) == 0 || string(kwds) == "null" {
		return nil, parseErrorf(index, Kind(name), "kwds", "required")
	}

	return parse(index, kwds)
}

// Splits either instruction form into its name and raw keyword arguments.
func splitInstruction(raw json.RawMessage) (string, json.RawMessage, error) {
	switch shape(raw) {
	case '{':
		var r record
		if err := decodeStrict(raw, &r); err != nil {
			return "", nil, err
		}
		return r.Name, r.Kwds, nil

	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil {
			return "", nil, err
		}
		if len(pair) != 2 {
			return "", nil, errors.Errorf("expected [name, kwds], got %d elements", len(pair))
		}
		var name string
		if err := json.Unmarshal(pair[0], &name); err != nil {
			return "", nil, errors.New("instruction name must be a string")
		}
		return name, pair[1], nil
	}

	return "", nil, errors.New("instruction must be a {name, kwds} record or a [name, kwds] pair")
}

func parseFrom(index int, kwds json.RawMessage) (Instruction, error) {
	if shape(kwds) == '"' {
		var image string
		if err := json.Unmarshal(kwds, &image); err != nil {
			return nil, parseErrorf(index, KindFrom, "kwds", "%v", err)
		}
		return From{Image: image}, nil
	}

	var k struct {
		BaseImage string `json:"base_image"`
		Image     string `json:"image"`
	}
	if err := decodeStrict(kwds, &k); err != nil {
		return nil, parseErrorf(index, KindFrom, "kwds", "%v", err)
	}
	image, err := oneOf(k.BaseImage, k.Image)
	if err != nil {
		return nil, parseErrorf(index, KindFrom, "base_image", "%v", err)
	}

	return From{Image: image}, nil
}

func parseInstall(index int, kwds json.RawMessage) (Instruction, error) {
	if shape(kwds) == '[' {
		pkgs, err := decodeStrings(kwds)
		if err != nil {
			return nil, parseErrorf(index, KindInstall, "kwds", "%v", err)
		}
		return Install{Packages: pkgs}, nil
	}

	var k struct {
		Pkgs       []string `json:"pkgs"`
		Packages   []string `json:"packages"`
		PkgManager string   `json:"pkg_manager"`
	}
	if err := decodeStrict(kwds, &k); err != nil {
		return nil, parseErrorf(index, KindInstall, "kwds", "%v", err)
	}
	if k.Pkgs != nil && k.Packages != nil {
		return nil, parseErrorf(index, KindInstall, "packages", "conflicts with pkgs")
	}
	pkgs := k.Packages
	if pkgs == nil {
		pkgs = k.Pkgs
	}

	return Install{Packages: pkgs, Manager: pkgmgr.Name(k.PkgManager)}, nil
}

func parseCopy(index int, kwds json.RawMessage) (Instruction, error) {
	if shape(kwds) == '[' {
		paths, err := decodeStrings(kwds)
		if err != nil {
			return nil, parseErrorf(index, KindCopy, "kwds", "%v", err)
		}
		if len(paths) != 2 {
			return nil, parseErrorf(index, KindCopy, "kwds", "expected [source, destination], got %d paths", len(paths))
		}
		return Copy{Source: paths[0], Dest: paths[1]}, nil
	}

	var k struct {
		SourcePath  string `json:"source_path"`
		Source      string `json:"source"`
		DestPath    string `json:"dest_path"`
		Destination string `json:"destination"`
	}
	if err := decodeStrict(kwds, &k); err != nil {
		return nil, parseErrorf(index, KindCopy, "kwds", "%v", err)
	}
	src, err := oneOf(k.SourcePath, k.Source)
	if err != nil {
		return nil, parseErrorf(index, KindCopy, "source_path", "%v", err)
	}
	dest, err := oneOf(k.DestPath, k.Destination)
	if err != nil {
		return nil, parseErrorf(index, KindCopy, "dest_path", "%v", err)
	}

	return Copy{Source: src, Dest: dest}, nil
}

func parseRun(index int, kwds json.RawMessage) (Instruction, error) {
	switch shape(kwds) {
	case '"':
		var cmd string
		if err := json.Unmarshal(kwds, &cmd); err != nil {
			return nil, parseErrorf(index, KindRun, "kwds", "%v", err)
		}
		return Run{Commands: []string{cmd}}, nil

	case '[':
		cmds, err := decodeStrings(kwds)
		if err != nil {
			return nil, parseErrorf(index, KindRun, "kwds", "%v", err)
		}
		return Run{Commands: cmds}, nil
	}

	var k struct {
		Commands []string `json:"commands"`
		Chain    bool     `json:"chain"`
	}
	if err := decodeStrict(kwds, &k); err != nil {
		return nil, parseErrorf(index, KindRun, "kwds", "%v", err)
	}

	return Run{Commands: k.Commands, Chain: k.Chain}, nil
}

// Parses label pairs. The commands key may hold a JSON string (as produced
// by json.dumps), a list of descriptor objects, or a single object.
func parseLabel(index int, kwds json.RawMessage) (Instruction, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(kwds, &raw); err != nil || shape(kwds) != '{' {
		return nil, parseErrorf(index, KindLabel, "kwds", "expected a mapping of label keys to values")
	}

	label := Label{Pairs: make(map[string]string, len(raw))}
	for key, value := range raw {
		if key == descriptor.LabelKey {
			cmds, err := parseCommands(value)
			if err != nil {
				return nil, &ValidationError{Index: index, Kind: KindLabel, Field: key, Reason: err.Error(), Err: ErrParse}
			}
			label.Commands = cmds
			continue
		}
		s, err := scalarString(value)
		if err != nil {
			return nil, parseErrorf(index, KindLabel, key, "%v", err)
		}
		label.Pairs[key] = s
	}

	return label, nil
}

func parseCommands(value json.RawMessage) ([]descriptor.Command, error) {
	if shape(value) == '"' {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, err
		}
		value = json.RawMessage(s)
	}

	var cmds []descriptor.Command
	switch shape(value) {
	case '[':
		if err := decodeStrict(value, &cmds); err != nil {
			return nil, err
		}
	case '{':
		var c descriptor.Command
		if err := decodeStrict(value, &c); err != nil {
			return nil, err
		}
		cmds = []descriptor.Command{c}
	default:
		return nil, errors.New("expected a command descriptor or a list of them")
	}

	if cmds == nil {
		cmds = []descriptor.Command{}
	}
	for i := range cmds {
		cmds[i].Normalize()
	}

	return cmds, nil
}

func parseEnv(index int, kwds json.RawMessage) (Instruction, error) {
	vars, err := decodeScalarMap(kwds)
	if err != nil {
		return nil, parseErrorf(index, KindEnv, "kwds", "%v", err)
	}
	return Env{Vars: vars}, nil
}

func parseArg(index int, kwds json.RawMessage) (Instruction, error) {
	vars, err := decodeScalarMap(kwds)
	if err != nil {
		return nil, parseErrorf(index, KindArg, "kwds", "%v", err)
	}
	return Arg{Vars: vars}, nil
}

func parseWorkdir(index int, kwds json.RawMessage) (Instruction, error) {
	path, err := stringOrField(kwds, "path")
	if err != nil {
		return nil, parseErrorf(index, KindWorkdir, "kwds", "%v", err)
	}
	return Workdir{Path: path}, nil
}

func parseUser(index int, kwds json.RawMessage) (Instruction, error) {
	name, err := stringOrField(kwds, "name")
	if err != nil {
		return nil, parseErrorf(index, KindUser, "kwds", "%v", err)
	}
	return User{Name: name}, nil
}

func parseEntrypoint(index int, kwds json.RawMessage) (Instruction, error) {
	args, shell, err := parseCommandForm(kwds)
	if err != nil {
		return nil, parseErrorf(index, KindEntrypoint, "kwds", "%v", err)
	}
	return Entrypoint{Args: args, Shell: shell}, nil
}

func parseCmd(index int, kwds json.RawMessage) (Instruction, error) {
	args, shell, err := parseCommandForm(kwds)
	if err != nil {
		return nil, parseErrorf(index, KindCmd, "kwds", "%v", err)
	}
	return Cmd{Args: args, Shell: shell}, nil
}

// Parses the shell form (a string) or exec form (a list, or {args: [...]})
// shared by entrypoint and cmd.
func parseCommandForm(kwds json.RawMessage) ([]string, bool, error) {
	switch shape(kwds) {
	case '"':
		var s string
		if err := json.Unmarshal(kwds, &s); err != nil {
			return nil, false, err
		}
		return []string{s}, true, nil
	case '[':
		args, err := decodeStrings(kwds)
		return args, false, err
	}

	var k struct {
		Args []string `json:"args"`
	}
	if err := decodeStrict(kwds, &k); err != nil {
		return nil, false, err
	}
	return k.Args, false, nil
}

func parseMiniconda(index int, kwds json.RawMessage) (Instruction, error) {
	var k struct {
		CreateEnv     string   `json:"create_env"`
		UseEnv        string   `json:"use_env"`
		InstallPython []string `json:"install_python"`
		CondaInstall  []string `json:"conda_install"`
		CondaOpts     string   `json:"conda_opts"`
		PipInstall    []string `json:"pip_install"`
		PipOpts       string   `json:"pip_opts"`
		Installed     bool     `json:"installed"`
		Version       string   `json:"version"`
	}
	if err := decodeStrict(kwds, &k); err != nil {
		return nil, parseErrorf(index, KindMiniconda, "kwds", "%v", err)
	}
	if k.InstallPython != nil && k.CondaInstall != nil {
		return nil, parseErrorf(index, KindMiniconda, "install_python", "conflicts with conda_install")
	}
	pkgs := k.InstallPython
	if pkgs == nil {
		pkgs = k.CondaInstall
	}

	return Miniconda{
		CreateEnv:     k.CreateEnv,
		UseEnv:        k.UseEnv,
		InstallPython: pkgs,
		CondaOpts:     k.CondaOpts,
		PipInstall:    k.PipInstall,
		PipOpts:       k.PipOpts,
		Installed:     k.Installed,
		Version:       k.Version,
	}, nil
}

// Returns the first non-whitespace byte of a JSON value, which identifies
// its shape: '{', '[', '"', or the first byte of a scalar.
func shape(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// Decodes JSON into v, rejecting unknown object fields and trailing data.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func decodeStrings(raw json.RawMessage) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		if shape(item) != '"' {
			return nil, errors.Errorf("element %d: expected a string, got %s", i, item)
		}
		if err := json.Unmarshal(item, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Decodes a mapping whose values are strings, numbers or booleans.
func decodeScalarMap(raw json.RawMessage) (map[string]string, error) {
	var m map[string]json.RawMessage
	if shape(raw) != '{' {
		return nil, errors.New("expected a mapping")
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, err := scalarString(v)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		out[k] = s
	}
	return out, nil
}

func scalarString(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", errors.Errorf("expected a string, number or boolean, got %s", raw)
}

// Accepts either a bare string or a mapping with a single named field.
func stringOrField(raw json.RawMessage, field string) (string, error) {
	if shape(raw) == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}

	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}
	for k := range m {
		if k != field {
			return "", errors.Errorf("unknown field %q", k)
		}
	}
	return m[field], nil
}

// Returns whichever of two aliased values is set.
func oneOf(a, b string) (string, error) {
	if a != "" && b != "" && a != b {
		return "", errors.Errorf("conflicting values %q and %q", a, b)
	}
	if a != "" {
		return a, nil
	}
	return b, nil
}

func parseErrorf(index int, kind Kind, field, format string, args ...any) *ValidationError {
	e := invalidf(index, kind, field, format, args...)
	e.Err = ErrParse
	return e
}
