package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/fsutil"
)

// copiedFile links a file in the report to its origin.
type copiedFile struct {
	Source    string // absolute path on the inspected host
	Dest      string // slash separated, relative to the report directory
	Size      int64
	Truncated bool
}

// expandSpec resolves a copy spec to the host paths it currently matches.
// A spec that matches nothing yields no paths and no error.
func (r *Report) expandSpec(spec string) ([]string, error) {
	matches, err := filepath.Glob(r.HostPath(spec))
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidPattern,
			fmt.Sprintf("invalid copy spec %q", spec)).WithCause(err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		host, ok := r.hostRelative(m)
		if !ok {
			continue
		}
		paths = append(paths, host)
	}
	sort.Strings(paths)
	return paths, nil
}

// hostRelative maps a path below the sysroot back to its host path.
func (r *Report) hostRelative(path string) (string, bool) {
	rel, err := filepath.Rel(r.opts.Sysroot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return "/" + filepath.ToSlash(rel), true
}

// collectFiles copies everything the plugin's copy specs match.
func (c *pluginCollector) collectFiles() error {
	var errs *multierror.Error
	for _, spec := range c.copySpecs {
		paths, err := c.r.expandSpec(spec)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, host := range paths {
			if err := c.copyPath(host); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}

// copyPath copies a file, or every regular file below a directory.
func (c *pluginCollector) copyPath(host string) error {
	full := c.HostPath(host)
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return copyError(host, err)
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil
		}
		return c.copyFile(host, info)
	}

	var errs *multierror.Error
	walkErr := filepath.WalkDir(full, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = multierror.Append(errs, copyError(path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fileHost, ok := c.r.hostRelative(path)
		if !ok {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			errs = multierror.Append(errs, copyError(fileHost, err))
			return nil
		}
		if err := c.copyFile(fileHost, fi); err != nil {
			errs = multierror.Append(errs, err)
		}
		return nil
	})
	if walkErr != nil {
		errs = multierror.Append(errs, copyError(host, walkErr))
	}
	return errs.ErrorOrNil()
}

// copyFile copies one regular file, keeping at most the configured number of
// trailing bytes. Files already collected in this run are shared, not copied
// again, so earlier redactions survive.
func (c *pluginCollector) copyFile(host string, info fs.FileInfo) error {
	if c.owned[host] {
		return nil
	}
	if f, ok := c.collected[host]; ok {
		c.owned[host] = true
		c.copied = append(c.copied, f)
		return nil
	}

	data, truncated, err := fsutil.ReadTailScoped(c.HostPath(host), c.r.opts.MaxFileSize)
	if err != nil {
		return copyError(host, err)
	}
	if truncated {
		c.logger.Warn("file truncated",
			"file", host,
			"size", humanize.Bytes(uint64(info.Size())),
			"kept", humanize.Bytes(uint64(c.r.opts.MaxFileSize)))
	}

	rel := strings.TrimPrefix(host, "/")
	dest := c.destPath(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return copyError(host, err)
	}
	if err := renameio.WriteFile(dest, data, info.Mode().Perm()); err != nil {
		return copyError(host, err)
	}

	f := copiedFile{
		Source:    host,
		Dest:      rel,
		Size:      int64(len(data)),
		Truncated: truncated,
	}
	c.collected[host] = f
	c.owned[host] = true
	c.copied = append(c.copied, f)
	return nil
}

func (c *pluginCollector) destPath(rel string) string {
	return filepath.Join(c.dir, filepath.FromSlash(rel))
}

func copyError(path string, err error) error {
	return core.ErrExecution(core.CodeCopyFailed, fmt.Sprintf("copying %s", path)).WithCause(err)
}

// substituteFile applies re line by line and rewrites the file when anything
// matched. It returns the number of matches replaced.
func substituteFile(path string, re *regexp.Regexp, replacement string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return 0, err
	}

	lines := strings.Split(string(data), "\n")
	total := 0
	for i, line := range lines {
		n := len(re.FindAllStringIndex(line, -1))
		if n == 0 {
			continue
		}
		lines[i] = re.ReplaceAllString(line, replacement)
		total += n
	}
	if total == 0 {
		return 0, nil
	}

	if err := renameio.WriteFile(path, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		return 0, err
	}
	return total, nil
}
