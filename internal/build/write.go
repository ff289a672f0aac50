package build

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/cruciblehq/imgspec/internal/paths"
)

// Pending write of one file: data sits in tmp until renamed to target.
type staged struct {
	tmp    string
	target string
}

// Writes the Dockerfile and side files into the build directory.
//
// Directories are created first. Every file is then written to a temporary
// name beside its target, and only when all writes succeed are they renamed
// into place, the Dockerfile last. A failure before the renames leaves
// existing output as it was. Each rename is atomic per file: if one fails,
// files renamed before it keep their new content and the Dockerfile is not
// replaced. Temporary files are removed on every failure.
func Write(out *Output, dir string) error {
	for _, d := range out.Dirs {
		if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(d)), paths.DefaultDirMode); err != nil {
			return errors.Wrapf(ErrFileSystemOperation, "%v", err)
		}
	}

	var pending []staged
	cleanup := func() {
		for _, s := range pending {
			os.Remove(s.tmp)
		}
	}

	for _, f := range outputFiles(out) {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))

		tmp, err := writeTemp(target, f.Data, f.Mode)
		if err != nil {
			cleanup()
			return errors.Wrapf(ErrFileSystemOperation, "%s: %v", f.Path, err)
		}
		pending = append(pending, staged{tmp: tmp, target: target})
	}

	for i, s := range pending {
		if err := os.Rename(s.tmp, s.target); err != nil {
			pending = pending[i:]
			cleanup()
			return errors.Wrapf(ErrFileSystemOperation, "%v", err)
		}
	}

	slog.Info("wrote build directory", "dir", dir, "files", len(pending), "digest", out.Script.Digest())

	return nil
}

// Returns the build-directory paths whose content differs from the output,
// including missing directories and files. An empty result means the
// directory is current.
func Stale(out *Output, dir string) ([]string, error) {
	var stale []string

	for _, d := range out.Dirs {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(d)))
		if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
			stale = append(stale, d)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(ErrFileSystemOperation, "%v", err)
		}
	}

	for _, f := range outputFiles(out) {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
		if errors.Is(err, fs.ErrNotExist) {
			stale = append(stale, f.Path)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(ErrFileSystemOperation, "%v", err)
		}
		if !bytes.Equal(data, f.Data) {
			stale = append(stale, f.Path)
		}
	}

	return stale, nil
}

// Returns the side files followed by the Dockerfile.
func outputFiles(out *Output) []File {
	files := make([]File, 0, len(out.Files)+1)
	files = append(files, out.Files...)
	return append(files, File{Path: DockerfileName, Data: out.Script.Bytes()})
}

func writeTemp(target string, data []byte, mode fs.FileMode) (string, error) {
	if mode == 0 {
		mode = paths.DefaultFileMode
	}

	if err := os.MkdirAll(filepath.Dir(target), paths.DefaultDirMode); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), mode); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}
