// Package tag: go-git backed history and reservation.
package tag

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitStore reads tag history from a git repository and reserves labels by
// creating lightweight tag references. Reference creation is the
// collision-detection point: the reference namespace is unique, so a label
// that already exists surfaces as ErrTagConflict instead of being
// overwritten.
type GitStore struct {
	repo *git.Repository
}

// NewGitStore wraps an already opened repository.
func NewGitStore(repo *git.Repository) *GitStore {
	return &GitStore{repo: repo}
}

// OpenGitStore opens the repository at path.
func OpenGitStore(path string) (*GitStore, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, WrapErrorf(err, "opening repository %q", path)
	}
	return &GitStore{repo: repo}, nil
}

// History implements HistorySource by listing every tag reference.
func (g *GitStore) History(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(err, "git history")
	}

	refs, err := g.repo.References()
	if err != nil {
		return nil, WrapError(err, "listing references")
	}

	var labels []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsTag() {
			labels = append(labels, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, WrapError(err, "iterating references")
	}
	return labels, nil
}

// Reserve implements Reserver by creating a lightweight tag at HEAD.
// An existing reference with the same name maps to ErrTagConflict.
func (g *GitStore) Reserve(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return WrapError(err, "git reserve")
	}

	refName := plumbing.NewTagReferenceName(label)
	if _, err := g.repo.Reference(refName, true); err == nil {
		return WrapErrorf(ErrTagConflict, "reserve %q", label)
	}

	head, err := g.repo.Head()
	if err != nil {
		return WrapError(err, "resolving HEAD")
	}

	if err := g.repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash())); err != nil {
		if errors.Is(err, git.ErrTagExists) {
			return WrapErrorf(ErrTagConflict, "reserve %q", label)
		}
		return WrapErrorf(err, "creating tag reference %q", label)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ HistorySource = (*GitStore)(nil)
	_ Reserver      = (*GitStore)(nil)
)
