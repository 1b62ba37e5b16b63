package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFileScoped reads a file by opening a root at the directory of the file
// the path resolves to. This avoids path traversal through the base name.
func ReadFileScoped(path string) ([]byte, error) {
	file, err := openScoped(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// ReadTailScoped reads at most limit bytes from the end of a file. The
// returned flag reports whether the head of the file was dropped. A limit of
// zero or less reads the whole file.
func ReadTailScoped(path string, limit int64) ([]byte, bool, error) {
	file, err := openScoped(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, false, err
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("is a directory: %q", path)
	}

	if limit <= 0 || info.Size() <= limit {
		data, err := io.ReadAll(file)
		return data, false, err
	}

	if _, err := file.Seek(info.Size()-limit, io.SeekStart); err != nil {
		return nil, false, err
	}
	data, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// openScoped opens the file a path resolves to. Symlinks are followed first,
// so a link may point outside its own directory.
func openScoped(path string) (*os.File, error) {
	if !validBase(path) {
		return nil, fmt.Errorf("invalid file path: %q", path)
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, err
	}
	if !validBase(resolved) {
		return nil, fmt.Errorf("invalid file path: %q", path)
	}

	root, err := os.OpenRoot(filepath.Dir(resolved))
	if err != nil {
		return nil, err
	}
	defer root.Close()

	return root.Open(filepath.Base(resolved))
}

func validBase(path string) bool {
	base := filepath.Base(filepath.Clean(path))
	return base != "" && base != "." && base != string(filepath.Separator)
}
