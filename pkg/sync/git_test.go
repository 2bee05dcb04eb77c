package sync

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r := New(t.TempDir(), nil, nil)
	r.now = func() time.Time { return time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC) }
	return r
}

func TestCommitRequiresRepo(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.Commit()
	assert.ErrorIs(t, err, ErrNotRepo)
	assert.ErrorIs(t, r.Sync(), ErrNotRepo)
}

func TestInitCreatesRepoAndIgnore(t *testing.T) {
	requireGit(t)
	r := newTestRepo(t)

	require.NoError(t, r.Init(""))
	assert.True(t, r.IsRepo())

	data, err := os.ReadFile(filepath.Join(r.Dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "wellspring.db")

	// Idempotent
	require.NoError(t, r.Init(""))
}

func TestInitSetsRemote(t *testing.T) {
	requireGit(t)
	r := newTestRepo(t)

	require.NoError(t, r.Init("https://example.com/goals.git"))
	require.NoError(t, r.Init("https://example.com/other.git"))

	out, err := exec.Command("git", "-C", r.Dir, "remote", "get-url", "origin").Output()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/other.git\n", string(out))
}

func TestCommitOnlyWhenChanged(t *testing.T) {
	requireGit(t)
	r := newTestRepo(t)
	require.NoError(t, r.Init(""))
	require.NoError(t, exec.Command("git", "-C", r.Dir, "config", "user.email", "test@example.com").Run())
	require.NoError(t, exec.Command("git", "-C", r.Dir, "config", "user.name", "Test").Run())

	require.NoError(t, os.MkdirAll(filepath.Join(r.Dir, "goals"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, "goals", "a.md"), []byte("---\ntitle: A\n---\n"), 0644))

	committed, err := r.Commit()
	require.NoError(t, err)
	assert.True(t, committed)

	committed, err = r.Commit()
	require.NoError(t, err)
	assert.False(t, committed)
}
