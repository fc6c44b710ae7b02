package versioning

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, tags ...string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(0, 0)},
	})
	require.NoError(t, err)

	for _, tag := range tags {
		_, err = repo.CreateTag(tag, hash, nil)
		require.NoError(t, err)
	}
	return dir
}

func TestSemverTags(t *testing.T) {
	dir := initRepo(t, "v1.0.0", "v1.2.0", "nightly", "v1.1.3")

	r, err := Open(dir)
	require.NoError(t, err)

	tags, err := r.SemverTags()
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "v1.2.0", tags[0].Name)
	assert.Equal(t, "v1.0.0", tags[2].Name)

	latest, err := r.Latest()
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", latest.Version.String())

	head, err := r.Head()
	require.NoError(t, err)
	assert.Len(t, head, 40)
}

func TestLatestWithoutTags(t *testing.T) {
	r, err := Open(initRepo(t))
	require.NoError(t, err)

	latest, err := r.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestOpenNotARepo(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}
