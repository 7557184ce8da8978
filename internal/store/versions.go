// Package store persists per-category version tags as plain text files.
//
// Each tracked category owns one file, <dir>/<category>.version.txt, holding
// exactly the version tag. The directory is the parent of the directory the
// rule-set files are extracted into.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/adamancini/geoasset/internal/types"
)

const versionSuffix = ".version.txt"

// VersionStore reads and writes version files.
type VersionStore struct {
	fs  afero.Fs
	dir string
}

// NewVersionStore creates a store rooted at dir.
func NewVersionStore(fsys afero.Fs, dir string) *VersionStore {
	return &VersionStore{fs: fsys, dir: dir}
}

// Path returns the version file path for category.
func (s *VersionStore) Path(category string) string {
	return filepath.Join(s.dir, category+versionSuffix)
}

// Read returns the stored tag for category, or "" if none was recorded.
func (s *VersionStore) Read(category string) (string, error) {
	data, err := afero.ReadFile(s.fs, s.Path(category))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read version of %s: %w", category, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadOrInit returns the stored tag, writing types.VersionUnknown first when
// the file is missing or blank.
func (s *VersionStore) ReadOrInit(category string) (string, error) {
	v, err := s.Read(category)
	if err != nil {
		return "", err
	}
	if v != "" {
		return v, nil
	}
	if err := s.Write(category, types.VersionUnknown); err != nil {
		return "", err
	}
	return types.VersionUnknown, nil
}

// Write replaces the stored tag for category.
func (s *VersionStore) Write(category, version string) error {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.Path(category), []byte(version), 0644); err != nil {
		return fmt.Errorf("failed to write version of %s: %w", category, err)
	}
	return nil
}

// WriteAll writes the same tag for every category, stopping at the first failure.
func (s *VersionStore) WriteAll(categories []string, version string) error {
	for _, c := range categories {
		if err := s.Write(c, version); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the version file for category. A missing file is not an error.
func (s *VersionStore) Remove(category string) error {
	err := s.fs.Remove(s.Path(category))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove version of %s: %w", category, err)
	}
	return nil
}

// Snapshot returns the stored tag of every category, "" for unrecorded ones.
func (s *VersionStore) Snapshot(categories []string) (map[string]string, error) {
	out := make(map[string]string, len(categories))
	for _, c := range categories {
		v, err := s.Read(c)
		if err != nil {
			return nil, err
		}
		out[c] = v
	}
	return out, nil
}
