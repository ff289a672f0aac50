package manifest

import (
	"io/fs"
	"strings"
)

// Answers whether a path exists in the build context.
//
// Paths are slash-separated, relative to the context root, and already
// cleaned.
type PathLookup interface {
	Exists(path string) bool
}

// Adapts an [fs.FS] rooted at the build context to a [PathLookup].
type FSLookup struct {
	FS fs.FS
}

func (l FSLookup) Exists(path string) bool {
	_, err := fs.Stat(l.FS, path)
	return err == nil
}

// Wraps a [PathLookup] with additional paths that will exist once staged.
//
// A staged directory also makes every path below it exist.
type OverlayLookup struct {
	Base   PathLookup      // Underlying lookup; may be nil.
	Staged map[string]bool // Cleaned paths that will exist.
}

func (l OverlayLookup) Exists(path string) bool {
	for p := path; ; {
		if l.Staged[p] {
			return true
		}
		i := strings.LastIndexByte(p, '/')
		if i < 0 {
			break
		}
		p = p[:i]
	}
	return l.Base != nil && l.Base.Exists(path)
}
