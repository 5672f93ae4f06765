package vcs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commitFiles writes files into the worktree and commits them.
func commitFiles(t *testing.T, repoPath string, repo *git.Repository, msg string, when time.Time, files map[string]string) {
	t.Helper()
	w, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		path := filepath.Join(repoPath, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err := w.Add(name)
		require.NoError(t, err)
	}

	_, err = w.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: when},
	})
	require.NoError(t, err)
}

func initTestRepo(t *testing.T) string {
	t.Helper()
	repoPath := t.TempDir()
	repo, err := git.PlainInit(repoPath, false)
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	commitFiles(t, repoPath, repo, "Add base\n\nlonger body", base, map[string]string{
		"pkg/base.py": "class Base:\n    pass\n",
	})
	commitFiles(t, repoPath, repo, "Add child", base.Add(time.Hour), map[string]string{
		"pkg/child.py": "class Child(Base):\n    pass\n",
	})
	commitFiles(t, repoPath, repo, "Add readme", base.Add(2*time.Hour), map[string]string{
		"README.md": "# demo\n",
	})
	return repoPath
}

func TestGitOpener_PlainOpen(t *testing.T) {
	repoPath := initTestRepo(t)

	repo, err := NewGitOpener().PlainOpen(repoPath)
	require.NoError(t, err)
	assert.NotEmpty(t, repo.RepoPath())
}

func TestGitOpener_NotARepository(t *testing.T) {
	_, err := NewGitOpener().PlainOpen(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestGitOpener_PlainOpenWithDetect(t *testing.T) {
	repoPath := initTestRepo(t)

	repo, err := NewGitOpener().PlainOpenWithDetect(filepath.Join(repoPath, "pkg"))
	require.NoError(t, err)

	want, _ := filepath.EvalSymlinks(repoPath)
	got, _ := filepath.EvalSymlinks(repo.RepoPath())
	assert.Equal(t, want, got)
}

func TestRecentCommits(t *testing.T) {
	repo, err := NewGitOpener().PlainOpen(initTestRepo(t))
	require.NoError(t, err)

	commits, err := RecentCommits(repo, 2)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "Add readme", commits[0].Summary)
	assert.Equal(t, "Add child", commits[1].Summary)
	assert.Equal(t, "Test", commits[0].Author)
	assert.Len(t, commits[0].ShortSHA(), 8)

	all, err := RecentCommits(repo, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Add base", all[2].Summary, "summary is the first message line")

	_, err = RecentCommits(repo, 0)
	assert.ErrorIs(t, err, ErrNoRevisions)
}

func TestResolveRevisionAndTree(t *testing.T) {
	repo, err := NewGitOpener().PlainOpen(initTestRepo(t))
	require.NoError(t, err)

	commit, err := repo.ResolveRevision("HEAD~2")
	require.NoError(t, err)
	assert.Equal(t, "Add base", Info(commit).Summary)

	tree, err := commit.Tree()
	require.NoError(t, err)

	entries, err := tree.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pkg/base.py", entries[0].Path)
	assert.Greater(t, entries[0].Size, int64(0))

	content, err := tree.File("pkg/base.py")
	require.NoError(t, err)
	assert.Equal(t, "class Base:\n    pass\n", string(content))

	_, err = tree.File("pkg/child.py")
	assert.Error(t, err, "file added later is absent from the older tree")

	_, err = repo.ResolveRevision("no-such-branch")
	assert.Error(t, err)
}

func TestCurrentRefAndDirty(t *testing.T) {
	repoPath := initTestRepo(t)
	repo, err := NewGitOpener().PlainOpen(repoPath)
	require.NoError(t, err)

	ref, err := CurrentRef(repo)
	require.NoError(t, err)
	assert.Equal(t, "master", ref)

	dirty, err := IsDirty(repoPath)
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "untracked.py"), []byte("x = 1\n"), 0644))
	dirty, err = IsDirty(repoPath)
	require.NoError(t, err)
	assert.False(t, dirty, "untracked files do not count")

	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "pkg", "base.py"), []byte("class Base(object):\n    pass\n"), 0644))
	dirty, err = IsDirty(repoPath)
	require.NoError(t, err)
	assert.True(t, dirty)
}

type fakeOpener struct{ err error }

func (f fakeOpener) PlainOpen(string) (Repository, error)          { return nil, f.err }
func (f fakeOpener) PlainOpenWithDetect(string) (Repository, error) { return nil, f.err }

func TestSetDefaultOpener(t *testing.T) {
	original := DefaultOpener()
	t.Cleanup(func() { SetDefaultOpener(original) })

	boom := errors.New("boom")
	SetDefaultOpener(fakeOpener{err: boom})
	_, err := DefaultOpener().PlainOpen(".")
	assert.ErrorIs(t, err, boom)
}
