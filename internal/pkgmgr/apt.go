package pkgmgr

type apt struct{}

func (apt) Name() Name { return Apt }

// Refreshes the package index, installs without recommends or prompts, and
// drops the index afterwards to keep the layer small.
func (apt) Install(packages []string) string {
	return Chain(
		"apt-get update -qq",
		"apt-get install -y -q --no-install-recommends \\\n"+List(packages),
		"rm -rf /var/lib/apt/lists/*",
	)
}
