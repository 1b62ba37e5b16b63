package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

const (
	// FormatVersion is the current manifest format version.
	FormatVersion = 1

	manifestPath = "sos_reports/manifest.json"
	commandsDir  = "sos_commands"
)

// HostInfo captures facts about the inspected host.
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
	KernelArch      string `json:"kernel_arch,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_seconds"`
}

// HostFactsFunc gathers host facts.
type HostFactsFunc func(ctx context.Context) (HostInfo, error)

// SystemHostFacts reads host facts of the running system.
func SystemHostFacts(ctx context.Context) (HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		name, herr := os.Hostname()
		if herr != nil {
			return HostInfo{}, fmt.Errorf("reading host info: %w", err)
		}
		return HostInfo{Hostname: name}, nil
	}
	return HostInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		KernelArch:      info.KernelArch,
		UptimeSeconds:   info.Uptime,
	}, nil
}

// CommandEntry records one executed command.
type CommandEntry struct {
	Cmd        string `json:"cmd" yaml:"cmd"`
	Output     string `json:"output" yaml:"output"`
	ExitCode   int    `json:"exit_code" yaml:"-"`
	DurationMS int64  `json:"duration_ms" yaml:"-"`
	TimedOut   bool   `json:"timed_out,omitempty" yaml:"-"`
	Error      string `json:"error,omitempty" yaml:"-"`
}

// PluginEntry records what one plugin did.
type PluginEntry struct {
	Name       string         `json:"name"`
	Enabled    bool           `json:"enabled"`
	Reason     string         `json:"reason"`
	Options    map[string]int `json:"options,omitempty"`
	CopySpecs  []string       `json:"copy_specs,omitempty"`
	Commands   []CommandEntry `json:"commands,omitempty"`
	Redactions int            `json:"redactions,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
}

// FileEntry describes one file in the report.
type FileEntry struct {
	Path      string `json:"path"`
	Source    string `json:"source,omitempty"`
	SHA256    string `json:"sha256"`
	Size      int64  `json:"size"`
	Mode      int64  `json:"mode"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Manifest is the metadata file stored inside the report.
type Manifest struct {
	Version     int           `json:"version"`
	ReportID    string        `json:"report_id"`
	ToolVersion string        `json:"tool_version,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Sysroot     string        `json:"sysroot"`
	Host        HostInfo      `json:"host"`
	Plugins     []PluginEntry `json:"plugins"`
	Files       []FileEntry   `json:"files"`
}

// collectFileEntries hashes every file below dir. sources maps report
// relative paths to their origin on the host.
func collectFileEntries(dir string, sources map[string]copiedFile) ([]FileEntry, error) {
	entries := make([]FileEntry, 0)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == manifestPath {
			return nil
		}

		sum, size, err := computeSHA256ForFile(path)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", rel, err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		entry := FileEntry{
			Path:   rel,
			SHA256: sum,
			Size:   size,
			Mode:   int64(info.Mode().Perm()),
		}
		if src, ok := sources[rel]; ok {
			entry.Source = src.Source
			entry.Truncated = src.Truncated
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

func computeSHA256ForFile(path string) (string, int64, error) {
	f, err := os.Open(path) // #nosec G304 -- path is discovered inside the report directory
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	hash := sha256.New()
	n, err := io.Copy(hash, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hash.Sum(nil)), n, nil
}

func encodeManifest(manifest *Manifest) ([]byte, error) {
	sort.Slice(manifest.Plugins, func(i, j int) bool {
		return manifest.Plugins[i].Name < manifest.Plugins[j].Name
	})
	return json.MarshalIndent(manifest, "", "  ")
}

// ReadManifest loads the manifest of an unpacked report directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(manifestPath))) // #nosec G304 -- caller controls dir
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	if manifest.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported manifest version: %d", manifest.Version)
	}
	return &manifest, nil
}
