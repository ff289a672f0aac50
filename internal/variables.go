package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Program name, used for the binary, log group, socket and config paths.
const Name = "imgspec"

const (
	undefined  = "(undefined)" // Placeholder for an unset build variable.
	localBuild = "(local)"     // Version string of a build without linker flags.
	mainBranch = "main"        // Stage left out of release version strings.
)

// Set by the release pipeline with -ldflags "-X ...". A local build leaves
// them empty.
var (
	version   = "" // Release version, e.g. "v1.2.3".
	stage     = "" // Git branch the binary was built from.
	gitCommit = "" // Commit hash.

	rawQuiet   = "false" // Initial quiet mode.
	rawDebug   = "false" // Initial debug mode.
	rawVerbose = "false" // Initial verbose mode.
)

// Describes the running binary.
type BuildInfo struct {
	Version string // Release version without a "v" prefix.
	Stage   string // Lowercased branch name.
	Commit  string // Commit hash.
	Arch    string // GOARCH of the binary.
	Local   bool   // Built without the release linker flags.
}

// Returns the build information of the running binary. Unset variables
// read as "(undefined)".
func Build() BuildInfo {
	v := strings.ToLower(strings.TrimSpace(version))

	return BuildInfo{
		Version: orUndefined(strings.TrimPrefix(v, "v")),
		Stage:   orUndefined(strings.ToLower(strings.TrimSpace(stage))),
		Commit:  orUndefined(strings.TrimSpace(gitCommit)),
		Arch:    runtime.GOARCH,
		Local: strings.TrimSpace(version) == "" ||
			strings.TrimSpace(gitCommit) == "" ||
			strings.TrimSpace(stage) == "",
	}
}

// Formats the information as "<version>[+<stage>] <commit> [<arch>]", or
// "(local)" for a local build. The stage is omitted for the main branch.
func (b BuildInfo) String() string {
	if b.Local {
		return localBuild
	}

	s := ""
	if b.Stage != mainBranch {
		s = "+" + b.Stage
	}

	return fmt.Sprintf("%s%s %s [%s]", b.Version, s, b.Commit, b.Arch)
}

// Returns the version string of the running binary.
func VersionString() string {
	return Build().String()
}

func orUndefined(s string) string {
	if s == "" {
		return undefined
	}
	return s
}
