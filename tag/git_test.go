package tag_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyor-ci/conveyor/tag"
)

// newTestRepo creates an in-memory repository with a single commit so HEAD
// resolves.
func newTestRepo(t *testing.T) *git.Repository {
	t.Helper()

	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	_, err = wt.Commit("initial commit", &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  "conveyor-test",
			Email: "test@conveyor-ci",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return repo
}

func TestGitStoreHistoryEmpty(t *testing.T) {
	store := tag.NewGitStore(newTestRepo(t))

	history, err := store.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGitStoreReserveAndHistory(t *testing.T) {
	ctx := context.Background()
	store := tag.NewGitStore(newTestRepo(t))

	require.NoError(t, store.Reserve(ctx, "ci-build-0001"))
	require.NoError(t, store.Reserve(ctx, "ci-build-0002"))

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ci-build-0001", "ci-build-0002"}, history)
}

func TestGitStoreReserveConflict(t *testing.T) {
	ctx := context.Background()
	store := tag.NewGitStore(newTestRepo(t))

	require.NoError(t, store.Reserve(ctx, "ci-build-0042"))

	err := store.Reserve(ctx, "ci-build-0042")
	require.Error(t, err)
	assert.True(t, tag.IsConflict(err), "existing reference must map to ErrTagConflict")
}

func TestAllocateAgainstGitStore(t *testing.T) {
	ctx := context.Background()
	store := tag.NewGitStore(newTestRepo(t))

	require.NoError(t, store.Reserve(ctx, "ci-build-0007"))

	got, err := tag.Allocate(ctx, tag.DefaultScheme, store, store, 1)
	require.NoError(t, err)
	assert.Equal(t, "ci-build-0008", got.Label)

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.Contains(t, history, "ci-build-0008")
}
