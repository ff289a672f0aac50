package descriptor

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-containerregistry/pkg/name"
)

// Matches replacement tokens in a command-line template.
var tokenPattern = regexp.MustCompile(`\[[A-Z][A-Z0-9_]*\]`)

// Schema versions this package knows how to produce.
var supportedSchema = mustConstraint("^1")

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// Returns the replacement tokens of a command-line template in order of
// appearance, brackets included. Repeated tokens are listed once.
func Tokens(template string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, t := range tokenPattern.FindAllString(template, -1) {
		if !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Validates a set of descriptors destined for one label.
//
// Each descriptor must pass [Validate] and names must be unique across the
// set, since they also name the side files written next to the Dockerfile.
func ValidateAll(cmds []Command) error {
	names := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		if err := Validate(c); err != nil {
			return err
		}
		if names[c.Name] {
			return encodingErrorf(c.Name, "name", "duplicate command name")
		}
		names[c.Name] = true
	}
	return nil
}

// Checks the structural invariants of a single descriptor.
//
// Every token in the command line must correspond to exactly one input's
// replacement key, every mount referenced by an output or a wrapper must be
// declared, and wrapper bindings must point at declared inputs and outputs.
func Validate(c Command) error {
	if c.Name == "" {
		return encodingErrorf("", "name", "required")
	}
	if strings.ContainsAny(c.Name, `/\`) || c.Name == "." || c.Name == ".." {
		return encodingErrorf(c.Name, "name", "must be usable as a file name")
	}
	if err := validateSchemaVersion(c); err != nil {
		return err
	}
	if c.Image != "" {
		if _, err := name.ParseReference(c.Image); err != nil {
			return encodingErrorf(c.Name, "image", "%v", err)
		}
	}
	if c.CommandLine == "" {
		return encodingErrorf(c.Name, "command-line", "required")
	}

	mounts, err := validateMounts(c)
	if err != nil {
		return err
	}
	inputs, err := validateInputs(c)
	if err != nil {
		return err
	}
	outputs, err := validateOutputs(c, mounts)
	if err != nil {
		return err
	}

	for _, token := range Tokens(c.CommandLine) {
		if _, ok := inputs.byKey[token]; !ok {
			return encodingErrorf(c.Name, "command-line", "token %s has no input with that replacement-key", token)
		}
	}

	for i, w := range c.Xnat {
		if err := validateWrapper(c.Name, fmt.Sprintf("xnat[%d]", i), w, mounts, inputs.byName, outputs); err != nil {
			return err
		}
	}

	return nil
}

func validateSchemaVersion(c Command) error {
	if c.SchemaVersion == "" {
		return encodingErrorf(c.Name, "schema-version", "required")
	}
	v, err := semver.NewVersion(c.SchemaVersion)
	if err != nil {
		return encodingErrorf(c.Name, "schema-version", "%v", err)
	}
	if !supportedSchema.Check(v) {
		return encodingErrorf(c.Name, "schema-version", "unsupported version %s", c.SchemaVersion)
	}
	return nil
}

func validateMounts(c Command) (map[string]bool, error) {
	mounts := make(map[string]bool, len(c.Mounts))
	for i, m := range c.Mounts {
		field := fmt.Sprintf("mounts[%d]", i)
		if m.Name == "" {
			return nil, encodingErrorf(c.Name, field+".name", "required")
		}
		if mounts[m.Name] {
			return nil, encodingErrorf(c.Name, field+".name", "duplicate mount %q", m.Name)
		}
		if !path.IsAbs(m.Path) {
			return nil, encodingErrorf(c.Name, field+".path", "%q is not absolute", m.Path)
		}
		mounts[m.Name] = true
	}
	return mounts, nil
}

// Declared inputs indexed by name and by replacement key.
type inputIndex struct {
	byName map[string]bool
	byKey  map[string]string
}

func validateInputs(c Command) (inputIndex, error) {
	idx := inputIndex{
		byName: make(map[string]bool, len(c.Inputs)),
		byKey:  make(map[string]string, len(c.Inputs)),
	}
	for i, in := range c.Inputs {
		field := fmt.Sprintf("inputs[%d]", i)
		if in.Name == "" {
			return idx, encodingErrorf(c.Name, field+".name", "required")
		}
		if idx.byName[in.Name] {
			return idx, encodingErrorf(c.Name, field+".name", "duplicate input %q", in.Name)
		}
		if !validDefault(in.DefaultValue) {
			return idx, encodingErrorf(c.Name, field+".default-value", "unsupported type %T", in.DefaultValue)
		}
		if in.ReplacementKey != "" {
			if other, ok := idx.byKey[in.ReplacementKey]; ok {
				return idx, encodingErrorf(c.Name, field+".replacement-key", "%s is already bound to input %q", in.ReplacementKey, other)
			}
			idx.byKey[in.ReplacementKey] = in.Name
		}
		idx.byName[in.Name] = true
	}
	return idx, nil
}

func validateOutputs(c Command, mounts map[string]bool) (map[string]bool, error) {
	outputs := make(map[string]bool, len(c.Outputs))
	for i, out := range c.Outputs {
		field := fmt.Sprintf("outputs[%d]", i)
		if out.Name == "" {
			return nil, encodingErrorf(c.Name, field+".name", "required")
		}
		if outputs[out.Name] {
			return nil, encodingErrorf(c.Name, field+".name", "duplicate output %q", out.Name)
		}
		if !mounts[out.Mount] {
			return nil, encodingErrorf(c.Name, field+".mount", "undeclared mount %q", out.Mount)
		}
		outputs[out.Name] = true
	}
	return outputs, nil
}

func validateWrapper(cmd, field string, w Wrapper, mounts, inputs, outputs map[string]bool) error {
	if w.Name == "" {
		return encodingErrorf(cmd, field+".name", "required")
	}

	// Wrapper inputs may be derived from external inputs or from each other.
	wrapperInputs := make(map[string]bool, len(w.ExternalInputs)+len(w.DerivedInputs))

	for i, in := range w.ExternalInputs {
		f := fmt.Sprintf("%s.external-inputs[%d]", field, i)
		if !validDefault(in.DefaultValue) {
			return encodingErrorf(cmd, f+".default-value", "unsupported type %T", in.DefaultValue)
		}
		if in.ProvidesFilesForCommandMount != "" && !mounts[in.ProvidesFilesForCommandMount] {
			return encodingErrorf(cmd, f+".provides-files-for-command-mount", "undeclared mount %q", in.ProvidesFilesForCommandMount)
		}
		if in.ProvidesValueForCommandInput != "" && !inputs[in.ProvidesValueForCommandInput] {
			return encodingErrorf(cmd, f+".provides-value-for-command-input", "undeclared input %q", in.ProvidesValueForCommandInput)
		}
		wrapperInputs[in.Name] = true
	}

	for i, in := range w.DerivedInputs {
		f := fmt.Sprintf("%s.derived-inputs[%d]", field, i)
		if !wrapperInputs[in.DerivedFromWrapperInput] {
			return encodingErrorf(cmd, f+".derived-from-wrapper-input", "undeclared wrapper input %q", in.DerivedFromWrapperInput)
		}
		if in.ProvidesValueForCommandInput != "" && !inputs[in.ProvidesValueForCommandInput] {
			return encodingErrorf(cmd, f+".provides-value-for-command-input", "undeclared input %q", in.ProvidesValueForCommandInput)
		}
		wrapperInputs[in.Name] = true
	}

	for i, h := range w.OutputHandlers {
		if !outputs[h.AcceptsCommandOutput] {
			return encodingErrorf(cmd, fmt.Sprintf("%s.output-handlers[%d].accepts-command-output", field, i), "undeclared output %q", h.AcceptsCommandOutput)
		}
	}

	return nil
}

// Reports whether v is a JSON scalar that decodes back to the same Go value.
func validDefault(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64:
		return true
	}
	return false
}
