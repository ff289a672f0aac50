package pkgmgr

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Identifies a package manager.
type Name string

const (
	Apt Name = "apt" // Debian and Ubuntu.
	Yum Name = "yum" // CentOS, Fedora and RHEL.
)

const (

	// Separator between chained commands of one fragment.
	chainSeparator = " \\\n    && "

	// Indentation of items listed one per line.
	listIndent = "           "
)

// Renders install commands for one package manager.
type Manager interface {

	// Returns the manager's name.
	Name() Name

	// Returns the shell fragment that installs packages in the given order.
	//
	// The fragment is a single command line that may span several physical
	// lines joined by backslash continuations.
	Install(packages []string) string
}

var registry = map[Name]Manager{
	Apt: apt{},
	Yum: yum{},
}

// Returns the manager registered under name.
func Lookup(name Name) (Manager, error) {
	m, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownManager, "%q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return m, nil
}

// Returns the sorted names of all registered managers.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, string(n))
	}
	slices.Sort(names)
	return names
}

// Joins commands into one fragment with "&&", one command per continuation
// line. A failing command stops the fragment and fails it.
func Chain(commands ...string) string {
	return strings.Join(commands, chainSeparator)
}

// Formats items one per continuation line, in input order.
func List(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString(" \\\n")
		}
		b.WriteString(listIndent)
		b.WriteString(item)
	}
	return b.String()
}
