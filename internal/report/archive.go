package report

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// packDir writes dir into a gzip compressed tarball next to it and returns
// the archive path and its sha256. Entry names start with the directory's
// base name. The archive only becomes visible once complete.
func packDir(dir string) (string, string, error) {
	archivePath := dir + ".tar.gz"

	pending, err := renameio.NewPendingFile(archivePath, renameio.WithPermissions(0o600))
	if err != nil {
		return "", "", fmt.Errorf("creating archive: %w", err)
	}
	defer pending.Cleanup()

	hash := sha256.New()
	gzWriter := gzip.NewWriter(io.MultiWriter(pending, hash))
	tarWriter := tar.NewWriter(gzWriter)

	base := filepath.Base(dir)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name, err := cleanArchivePath(archivePathJoin(base, rel))
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return writeDirEntry(tarWriter, name, info)
		case d.Type().IsRegular():
			return writeFileEntry(tarWriter, name, path, info)
		default:
			return nil
		}
	})
	if err != nil {
		return "", "", fmt.Errorf("writing archive: %w", err)
	}

	if err := tarWriter.Close(); err != nil {
		return "", "", fmt.Errorf("closing tar stream: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return "", "", fmt.Errorf("closing gzip stream: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", "", fmt.Errorf("finalizing archive: %w", err)
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	if err := renameio.WriteFile(archivePath+".sha256", []byte(sum+"\n"), 0o600); err != nil {
		return "", "", fmt.Errorf("writing archive checksum: %w", err)
	}
	return archivePath, sum, nil
}

func writeDirEntry(tw *tar.Writer, name string, info fs.FileInfo) error {
	return tw.WriteHeader(&tar.Header{
		Name:     name + "/",
		Mode:     int64(info.Mode().Perm()),
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeDir,
	})
}

func writeFileEntry(tw *tar.Writer, name, path string, info fs.FileInfo) error {
	f, err := os.Open(path) // #nosec G304 -- path is discovered inside the report directory
	if err != nil {
		return err
	}
	defer f.Close()

	header := &tar.Header{
		Name:     name,
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("writing archive entry %s: %w", name, err)
	}
	if _, err := io.CopyN(tw, f, info.Size()); err != nil {
		return fmt.Errorf("writing archive entry %s: %w", name, err)
	}
	return nil
}

func archivePathJoin(parts ...string) string {
	return filepath.ToSlash(filepath.Join(parts...))
}

func cleanArchivePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty archive path")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute archive path is not allowed: %s", p)
	}
	clean := filepath.ToSlash(filepath.Clean(strings.TrimPrefix(p, "./")))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("invalid archive path: %s", p)
	}
	if strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("path traversal detected: %s", p)
	}
	return clean, nil
}
