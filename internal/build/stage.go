package build

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/cruciblehq/imgspec/internal/manifest"
)

// Returns the copy sources of a spec as files and directories of the build
// directory when the build directory is not the build context, so that it
// holds everything its Dockerfile copies.
func stage(spec *manifest.Spec, buildCtx, output, commandsDir string) ([]File, []string, error) {
	absCtx, err := filepath.Abs(buildCtx)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrFileSystemOperation, "%v", err)
	}
	absOut, err := filepath.Abs(output)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrFileSystemOperation, "%v", err)
	}
	if absCtx == absOut {
		return nil, nil, nil
	}

	skip := ""
	if rel, err := filepath.Rel(absCtx, absOut); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		skip = filepath.ToSlash(rel)
	}

	return stageSources(spec, os.DirFS(buildCtx), path.Clean(filepath.ToSlash(commandsDir)), skip)
}

// Reads the regular files and lists the directories under every copy
// source, in spec order.
//
// Sources inside the commands directory are generated rather than copied,
// and the Dockerfile at the root is always the generated one. Paths under
// skip, the build directory when it lies inside the context, are left out.
// Symlinked directories are not followed.
func stageSources(spec *manifest.Spec, context fs.FS, commandsDir, skip string) ([]File, []string, error) {
	seen := make(map[string]bool)
	var files []File
	var dirs []string

	for _, ins := range spec.Instructions {
		c, ok := ins.(manifest.Copy)
		if !ok {
			continue
		}

		src := path.Clean(c.Source)
		if excluded(src, commandsDir, skip) {
			continue
		}

		err := fs.WalkDir(context, src, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if excluded(p, commandsDir, skip) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if seen[p] || p == DockerfileName {
				return nil
			}
			if d.IsDir() {
				if p != "." {
					seen[p] = true
					dirs = append(dirs, p)
				}
				return nil
			}

			info, err := fs.Stat(context, p)
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			data, err := fs.ReadFile(context, p)
			if err != nil {
				return err
			}

			seen[p] = true
			files = append(files, File{Path: p, Data: data, Mode: info.Mode().Perm()})
			return nil
		})
		if err != nil {
			return nil, nil, errors.Wrapf(ErrFileSystemOperation, "staging %s: %v", c.Source, err)
		}
	}

	return files, dirs, nil
}

func excluded(p, commandsDir, skip string) bool {
	return within(p, commandsDir) || (skip != "" && within(p, skip))
}

// Reports whether slash-separated p is dir or lies below it.
func within(p, dir string) bool {
	return dir == "." || p == dir || strings.HasPrefix(p, dir+"/")
}
