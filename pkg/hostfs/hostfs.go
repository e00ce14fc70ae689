// Package hostfs provides the host filesystem primitives used by emulated
// devices. Paths are host paths; confinement is the caller's concern.
package hostfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MatchAll is the wildcard pattern that selects every directory entry
const MatchAll = "*.*"

// FileSystem is the capability set consumed by the filesystem device
type FileSystem interface {
	Exists(path string) bool
	IsDirectory(path string) bool
	// DeleteDirRecursively removes path and everything below it
	DeleteDirRecursively(path string) error
	// CreateDir creates a single directory; an existing directory is not an error
	CreateDir(path string) error
	// CreateFullPath creates every directory leading to path. A path ending
	// in a separator is created itself; otherwise only its parents are.
	CreateFullPath(path string) error
	// CreateEmptyFile creates a zero-length file, failing if it exists
	CreateEmptyFile(path string) error
	// Delete removes a regular file
	Delete(path string) error
	// DeleteDir removes an empty directory
	DeleteDir(path string) error
	Rename(src, dst string) error
	// Size returns the size of a regular file, 0 for directories
	Size(path string) (uint64, error)
	// Search lists the full paths of entries in dir whose name matches pattern
	Search(dir, pattern string) ([]string, error)
}

// OS is the FileSystem backed by the host operating system
type OS struct{}

// New returns the host operating system filesystem
func New() *OS {
	return &OS{}
}

func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OS) IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (OS) DeleteDirRecursively(path string) error {
	return os.RemoveAll(path)
}

func (OS) CreateDir(path string) error {
	err := os.Mkdir(path, 0755)
	if errors.Is(err, fs.ErrExist) {
		info, statErr := os.Stat(path)
		if statErr == nil && info.IsDir() {
			return nil
		}
	}
	return err
}

func (OS) CreateFullPath(path string) error {
	dir := path
	if !strings.HasSuffix(path, string(filepath.Separator)) {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func (OS) CreateEmptyFile(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	return file.Close()
}

func (OS) Delete(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %w", path, errIsDirectory)
	}
	return os.Remove(path)
}

func (OS) DeleteDir(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", path, errNotDirectory)
	}
	return os.Remove(path)
}

func (OS) Rename(src, dst string) error {
	return os.Rename(src, dst)
}

func (OS) Size(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, nil
	}
	return uint64(info.Size()), nil
}

// Search returns entries in the order the host enumerates them
func (OS) Search(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		ok, err := Match(pattern, entry.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// Match reports whether name matches pattern. "*.*" matches every name,
// including names without an extension.
func Match(pattern, name string) (bool, error) {
	if pattern == MatchAll || pattern == "*" {
		return true, nil
	}
	return filepath.Match(pattern, name)
}

var (
	errIsDirectory  = errors.New("is a directory")
	errNotDirectory = errors.New("not a directory")
)

var _ FileSystem = OS{}
