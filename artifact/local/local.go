// Package local implements the artifact store over a go-billy filesystem.
// Blobs live at <rev>/<category>/<name>; a sealed category carries a
// zero-byte marker alongside its blobs. Backed by osfs it serves
// single-host pipelines and shared-filesystem workers; backed by memfs it
// serves tests.
package local

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/conveyor-ci/conveyor/artifact"
)

// sealMarker is the name of the per-category seal marker file. Blob names
// never collide with it because it is not a valid output name.
const sealMarker = ".sealed"

// Store implements artifact.Store over a go-billy filesystem.
type Store struct {
	fs billy.Filesystem
}

// NewStore creates a Store over the given go-billy filesystem.
func NewStore(fsys billy.Filesystem) *Store {
	return &Store{fs: fsys}
}

// NewInMemoryStore creates a Store over an in-memory filesystem.
func NewInMemoryStore() *Store {
	return &Store{fs: memfs.New()}
}

// NewOSStore creates a Store rooted at the given directory.
func NewOSStore(root string) *Store {
	return &Store{fs: osfs.New(root)}
}

// Put implements artifact.Store.Put.
func (s *Store) Put(ctx context.Context, rev, category, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return artifact.WrapError(err, "local: put")
	}
	sealed, err := s.isSealed(rev, category)
	if err != nil {
		return err
	}
	if sealed {
		return artifact.WrapErrorf(artifact.ErrAlreadySealed,
			"local: put %s/%s/%s", rev, category, name)
	}

	path := filepath.Join(rev, category, name)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return artifact.WrapErrorf(err, "local: mkdir for %q", path)
	}
	if err := util.WriteFile(s.fs, path, data, 0o644); err != nil {
		return artifact.WrapErrorf(err, "local: write %q", path)
	}
	return nil
}

// Seal implements artifact.Store.Seal.
func (s *Store) Seal(ctx context.Context, rev, category string) error {
	if err := ctx.Err(); err != nil {
		return artifact.WrapError(err, "local: seal")
	}
	path := filepath.Join(rev, category, sealMarker)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return artifact.WrapErrorf(err, "local: mkdir for %q", path)
	}
	if err := util.WriteFile(s.fs, path, nil, 0o644); err != nil {
		return artifact.WrapErrorf(err, "local: seal %s/%s", rev, category)
	}
	return nil
}

// Get implements artifact.Store.Get.
func (s *Store) Get(ctx context.Context, rev, category string) ([]artifact.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, artifact.WrapError(err, "local: get")
	}
	dir := filepath.Join(rev, category)
	infos, err := s.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, artifact.WrapErrorf(artifact.ErrArtifactNotFound,
				"local: get %s/%s", rev, category)
		}
		return nil, artifact.WrapErrorf(err, "local: readdir %q", dir)
	}

	var blobs []artifact.Blob
	for _, info := range infos {
		if info.IsDir() || info.Name() == sealMarker {
			continue
		}
		data, err := util.ReadFile(s.fs, filepath.Join(dir, info.Name()))
		if err != nil {
			return nil, artifact.WrapErrorf(err, "local: read %s/%s/%s", rev, category, info.Name())
		}
		blobs = append(blobs, artifact.Blob{Name: info.Name(), Data: data})
	}
	if len(blobs) == 0 {
		return nil, artifact.WrapErrorf(artifact.ErrArtifactNotFound,
			"local: get %s/%s", rev, category)
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Name < blobs[j].Name })
	return blobs, nil
}

// List implements artifact.Store.List.
func (s *Store) List(ctx context.Context, rev string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, artifact.WrapError(err, "local: list")
	}
	infos, err := s.fs.ReadDir(rev)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, artifact.WrapErrorf(err, "local: readdir %q", rev)
	}

	categories := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
			categories = append(categories, info.Name())
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// isSealed reports whether the category carries the seal marker.
func (s *Store) isSealed(rev, category string) (bool, error) {
	_, err := s.fs.Stat(filepath.Join(rev, category, sealMarker))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, artifact.WrapErrorf(err, "local: stat seal %s/%s", rev, category)
	}
}

// Compile-time interface check.
var _ artifact.Store = (*Store)(nil)
