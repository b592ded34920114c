// Package nvs is a small persistent key-value store for device settings,
// kept as one file per key inside a namespace directory.
package nvs

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

const maxKeyLen = 15

// Store persists values on an afero.Fs.
type Store struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// Open returns a store for namespace under root, creating its directory.
func Open(fsys afero.Fs, root, namespace string) (*Store, error) {
	if err := checkName(namespace); err != nil {
		return nil, fmt.Errorf("namespace: %w", err)
	}
	dir := path.Join(root, namespace)
	if ok, _ := afero.DirExists(fsys, dir); ok {
		return &Store{fs: fsys, dir: dir}, nil
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create namespace %s: %w", namespace, err)
	}
	return &Store{fs: fsys, dir: dir}, nil
}

// Set writes value atomically by writing a temp file and renaming it.
func (s *Store) Set(key string, value []byte) error {
	if err := checkName(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := path.Join(s.dir, key)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, value, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// Get reads the value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	if err := checkName(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := afero.ReadFile(s.fs, path.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return b, err
}

// Keys are limited like NVS keys: short, no separators.
func checkName(name string) error {
	switch {
	case name == "":
		return errors.New("empty key")
	case len(name) > maxKeyLen:
		return fmt.Errorf("key %q longer than %d bytes", name, maxKeyLen)
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return fmt.Errorf("invalid key %q", name)
	}
	return nil
}
