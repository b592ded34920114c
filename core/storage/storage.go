// Package storage exposes a read-only partition under a logical mount path,
// the way the device firmware mounts its web asset partition.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"
)

var (
	// ErrNotMounted is returned by every open on a volume whose mount failed.
	ErrNotMounted = errors.New("volume not mounted")
	// ErrTooManyOpenFiles is returned once MaxFiles handles are open.
	ErrTooManyOpenFiles = errors.New("too many open files")
)

// MountConfig describes the partition to mount and where it appears.
type MountConfig struct {
	BasePath            string
	Partition           string
	MaxFiles            int
	FormatIfMountFailed bool
}

// DefaultMountConfig mounts partition "webapp" at /webapp with four handles.
func DefaultMountConfig() MountConfig {
	return MountConfig{
		BasePath:  "/webapp",
		Partition: "webapp",
		MaxFiles:  4,
	}
}

// Mounter resolves a partition label to a filesystem.
type Mounter interface {
	Mount(partition string) (afero.Fs, error)
}

// DirMounter serves partitions as directories below Root: partition "webapp"
// is Root/webapp. Fs defaults to the host filesystem.
type DirMounter struct {
	Root string
	Fs   afero.Fs
}

func (m DirMounter) Mount(partition string) (afero.Fs, error) {
	base := m.Fs
	if base == nil {
		base = afero.NewOsFs()
	}
	if partition == "" || strings.ContainsAny(partition, `/\`) || partition == "." || partition == ".." {
		return nil, fmt.Errorf("invalid partition label %q", partition)
	}
	dir := filepath.Join(m.Root, partition)
	info, err := base.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("partition %q not found: %w", partition, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("partition %q at %s is not a directory", partition, dir)
	}
	return afero.NewBasePathFs(base, dir), nil
}

// Volume is a mounted, read-only partition. A Volume whose mount failed is
// still usable: every open reports ErrNotMounted.
type Volume struct {
	cfg      MountConfig
	fs       afero.Fs
	mountErr error
	open     atomic.Int64
}

// Mount mounts cfg.Partition read-only. On failure it returns an unmounted
// Volume together with the error, so callers may log and carry on.
func Mount(m Mounter, cfg MountConfig) (*Volume, error) {
	cfg.BasePath = path.Clean("/" + cfg.BasePath)
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMountConfig().MaxFiles
	}

	if cfg.FormatIfMountFailed {
		err := errors.New("formatting is not supported on a read-only volume")
		return Unmounted(cfg, err), err
	}
	if m == nil {
		err := errors.New("no mounter configured")
		return Unmounted(cfg, err), err
	}

	fsys, err := m.Mount(cfg.Partition)
	if err != nil {
		err = fmt.Errorf("failed to mount %q at %s: %w", cfg.Partition, cfg.BasePath, err)
		return Unmounted(cfg, err), err
	}
	return &Volume{cfg: cfg, fs: afero.NewReadOnlyFs(fsys)}, nil
}

// Unmounted returns a Volume that fails every open. cause is reported by
// MountErr.
func Unmounted(cfg MountConfig, cause error) *Volume {
	if cause == nil {
		cause = ErrNotMounted
	}
	return &Volume{cfg: cfg, mountErr: cause}
}

// Mounted reports whether the partition is available.
func (v *Volume) Mounted() bool { return v.fs != nil }

// MountErr returns why the volume is not mounted, or nil.
func (v *Volume) MountErr() error { return v.mountErr }

// BasePath is the logical root the volume appears under.
func (v *Volume) BasePath() string { return v.cfg.BasePath }

// OpenFiles is the number of handles currently open.
func (v *Volume) OpenFiles() int { return int(v.open.Load()) }

// Open opens the file at the logical path name for reading. Paths outside
// the base path do not exist.
func (v *Volume) Open(name string) (afero.File, error) {
	if !v.Mounted() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrNotMounted}
	}
	rel, ok := v.resolve(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	if n := v.open.Add(1); n > int64(v.cfg.MaxFiles) {
		v.open.Add(-1)
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrTooManyOpenFiles}
	}
	f, err := v.fs.Open(rel)
	if err != nil {
		v.open.Add(-1)
		return nil, err
	}
	return &handle{File: f, release: func() { v.open.Add(-1) }}, nil
}

func (v *Volume) resolve(name string) (string, bool) {
	clean := path.Clean("/" + name)
	base := v.cfg.BasePath
	switch {
	case base == "/":
		return clean, true
	case clean == base:
		return "/", true
	case strings.HasPrefix(clean, base+"/"):
		return strings.TrimPrefix(clean, base), true
	}
	return "", false
}

// handle returns its slot to the volume on the first Close.
type handle struct {
	afero.File
	once    sync.Once
	release func()
}

func (h *handle) Close() error {
	err := h.File.Close()
	h.once.Do(h.release)
	return err
}
