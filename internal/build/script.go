package build

import (
	"slices"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// First line of every generated Dockerfile.
const header = "# Generated by imgspec. DO NOT EDIT."

// One Dockerfile instruction.
type Stanza struct {
	Origin  int    // Position of the spec instruction that produced the stanza.
	Keyword string // Dockerfile keyword, e.g. "RUN".
	Args    string // Text after the keyword; may span continuation lines.
}

func (s Stanza) String() string {
	return s.Keyword + " " + s.Args
}

// Rendered Dockerfile.
//
// The text is fixed at construction: a header line, then the stanzas
// separated by blank lines, then a trailing newline.
type Script struct {
	stanzas []Stanza
	text    string
}

// Creates a new [Script] from rendered stanzas.
func newScript(stanzas []Stanza) *Script {
	var b strings.Builder
	b.WriteString(header)
	for _, s := range stanzas {
		b.WriteString("\n\n")
		b.WriteString(s.String())
	}
	b.WriteString("\n")

	return &Script{stanzas: stanzas, text: b.String()}
}

// Returns a copy of the stanzas in output order.
func (s *Script) Stanzas() []Stanza {
	return slices.Clone(s.stanzas)
}

func (s *Script) String() string {
	return s.text
}

func (s *Script) Bytes() []byte {
	return []byte(s.text)
}

// Returns the content digest of the script text.
//
// Equal specs rendered with equal options always produce the same digest.
func (s *Script) Digest() digest.Digest {
	return digest.FromString(s.text)
}

// Parses the text back with the buildkit Dockerfile parser.
//
// Every stanza must come back as exactly one top-level instruction; a
// mismatch means some value broke out of its quoting or continuation lines.
func (s *Script) lint() error {
	result, err := parser.Parse(strings.NewReader(s.text))
	if err != nil {
		return errors.Wrapf(ErrRender, "%v", err)
	}

	if got := len(result.AST.Children); got != len(s.stanzas) {
		return errors.Wrapf(ErrRender, "parsed %d instructions from %d stanzas", got, len(s.stanzas))
	}

	for i, node := range result.AST.Children {
		if want := s.stanzas[i].Keyword; !strings.EqualFold(node.Value, want) {
			return errors.Wrapf(ErrRender, "instruction %d parsed as %s, rendered as %s", i, node.Value, want)
		}
	}

	return nil
}
