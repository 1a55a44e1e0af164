// Package unionfs layers in-memory files over a kustomize filesystem so that
// generated files can be fed to kustomize without touching the disk.
//
//nolint:wrapcheck
package unionfs

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/kustomize/kyaml/filesys"
)

// ErrRemoveAllNotSupported is returned by RemoveAll: the delegate is read-only.
var ErrRemoveAllNotSupported = errors.New("RemoveAll not supported on union filesystem")

// unionFS reads from the memory layer first and falls back to the
// delegate. Writes only ever reach the memory layer.
type unionFS struct {
	memory   filesys.FileSystem
	delegate filesys.FileSystem
}

// New returns delegate overlaid with files, keyed by absolute path.
func New(delegate filesys.FileSystem, files map[string][]byte) (filesys.FileSystem, error) {
	memory := filesys.MakeFsInMemory()

	for _, path := range slices.Sorted(maps.Keys(files)) {
		if err := memory.WriteFile(path, files[path]); err != nil {
			return nil, fmt.Errorf("failed to write overlay file %s: %w", path, err)
		}
	}

	return &unionFS{
		memory:   memory,
		delegate: delegate,
	}, nil
}

func (u *unionFS) layer(path string) filesys.FileSystem {
	if u.memory.Exists(path) {
		return u.memory
	}

	return u.delegate
}

func (u *unionFS) ReadFile(path string) ([]byte, error) {
	return u.layer(path).ReadFile(path)
}

func (u *unionFS) WriteFile(path string, data []byte) error {
	return u.memory.WriteFile(path, data)
}

func (u *unionFS) Mkdir(path string) error {
	return u.memory.Mkdir(path)
}

func (u *unionFS) MkdirAll(path string) error {
	return u.memory.MkdirAll(path)
}

func (u *unionFS) RemoveAll(_ string) error {
	return ErrRemoveAllNotSupported
}

func (u *unionFS) Create(path string) (filesys.File, error) {
	return u.memory.Create(path)
}

func (u *unionFS) Open(path string) (filesys.File, error) {
	return u.layer(path).Open(path)
}

func (u *unionFS) Exists(path string) bool {
	return u.memory.Exists(path) || u.delegate.Exists(path)
}

func (u *unionFS) IsDir(path string) bool {
	return u.layer(path).IsDir(path)
}

// ReadDir merges both listings, sorted.
func (u *unionFS) ReadDir(path string) ([]string, error) {
	names := sets.New[string]()

	for _, layer := range []filesys.FileSystem{u.memory, u.delegate} {
		if !layer.Exists(path) || !layer.IsDir(path) {
			continue
		}

		entries, err := layer.ReadDir(path)
		if err != nil {
			return nil, err
		}

		names.Insert(entries...)
	}

	return sets.List(names), nil
}

// Glob merges the matches of both layers, sorted.
func (u *unionFS) Glob(pattern string) ([]string, error) {
	matches := sets.New[string]()

	for _, layer := range []filesys.FileSystem{u.memory, u.delegate} {
		found, err := layer.Glob(pattern)
		if err != nil {
			return nil, err
		}

		matches.Insert(found...)
	}

	return sets.List(matches), nil
}

// Walk visits the memory layer first; delegate paths already seen are skipped.
func (u *unionFS) Walk(path string, walkFn filepath.WalkFunc) error {
	seen := sets.New[string]()

	if u.memory.Exists(path) {
		err := u.memory.Walk(path, func(p string, info fs.FileInfo, err error) error {
			seen.Insert(p)
			return walkFn(p, info, err)
		})
		if err != nil {
			return err
		}
	}

	if !u.delegate.Exists(path) {
		return nil
	}

	return u.delegate.Walk(path, func(p string, info fs.FileInfo, err error) error {
		if seen.Has(p) {
			return nil
		}

		return walkFn(p, info, err)
	})
}

// CleanedAbs resolves overlay-only paths in the memory layer; everything
// else goes through the delegate so disk symlinks are still evaluated.
func (u *unionFS) CleanedAbs(path string) (filesys.ConfirmedDir, string, error) {
	if u.memory.Exists(path) && !u.delegate.Exists(path) {
		return u.memory.CleanedAbs(path)
	}

	return u.delegate.CleanedAbs(path)
}
