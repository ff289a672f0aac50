package descriptor

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Serializes descriptors to canonical compact JSON.
//
// The descriptors are validated first. A nil slice encodes as an empty
// array, since the label must always carry a JSON array.
func Marshal(cmds []Command) ([]byte, error) {
	if err := ValidateAll(cmds); err != nil {
		return nil, err
	}
	if cmds == nil {
		cmds = []Command{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cmds); err != nil {
		return nil, encodingErrorf("", "", "%v", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Serializes a single descriptor with four-space indentation, the form
// written to side files next to the Dockerfile.
func MarshalIndent(c Command) ([]byte, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(c); err != nil {
		return nil, encodingErrorf(c.Name, "", "%v", err)
	}

	return buf.Bytes(), nil
}

// Encodes descriptors as a label value ready to sit between double quotes
// in a Dockerfile.
//
// The encoded value is decoded again before it is returned; descriptors
// that do not survive the round trip unchanged (for instance strings with
// invalid UTF-8) are rejected.
func Encode(cmds []Command) (string, error) {
	data, err := Marshal(cmds)
	if err != nil {
		return "", err
	}

	value := Escape(string(data))

	decoded, err := Decode(value)
	if err != nil {
		return "", err
	}
	if cmds != nil && !reflect.DeepEqual(decoded, cmds) {
		return "", encodingErrorf("", LabelKey, "descriptors do not survive the encoding round trip")
	}

	return value, nil
}

// Decodes a label value produced by [Encode].
//
// Unknown fields are rejected and the decoded descriptors are validated.
// The result is never nil.
func Decode(value string) ([]Command, error) {
	data, err := Unescape(value)
	if err != nil {
		return nil, encodingErrorf("", LabelKey, "%v", err)
	}

	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()

	var cmds []Command
	if err := dec.Decode(&cmds); err != nil {
		return nil, encodingErrorf("", LabelKey, "%v", err)
	}
	if dec.More() {
		return nil, encodingErrorf("", LabelKey, "trailing data after JSON array")
	}
	if cmds == nil {
		cmds = []Command{}
	}

	if err := ValidateAll(cmds); err != nil {
		return nil, err
	}

	return cmds, nil
}

// Escapes a string for use inside a double-quoted Dockerfile word.
//
// Backslashes, double quotes and dollar signs are prefixed with a backslash
// so that neither quoting nor variable expansion alters the value.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '"', '$':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Reverses [Escape].
func Unescape(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	if escaped {
		return "", errors.Wrap(ErrEscape, "trailing backslash")
	}
	return b.String(), nil
}
