package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/panbanda/ckmetrics/internal/scanner"
	"github.com/panbanda/ckmetrics/internal/vcs"
	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/panbanda/ckmetrics/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

// initRepo creates a repository whose classes grow by one method per commit.
func initRepo(t *testing.T) string {
	t.Helper()
	repoPath := t.TempDir()
	repo, err := git.PlainInit(repoPath, false)
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	commitFiles(t, repoPath, repo, "Add service", base, map[string]string{
		"app/service.py": "class Service:\n    def start(self):\n        pass\n",
		"tools/gen.py":   "class Gen:\n    pass\n",
	})
	commitFiles(t, repoPath, repo, "Add stop", base.Add(time.Hour), map[string]string{
		"app/service.py": "class Service:\n    def start(self):\n        pass\n    def stop(self):\n        pass\n",
	})
	commitFiles(t, repoPath, repo, "Add restart", base.Add(2*time.Hour), map[string]string{
		"app/service.py": "class Service:\n    def start(self):\n        pass\n    def stop(self):\n        pass\n    def restart(self):\n        self.stop()\n        self.start()\n",
		"app/broken.py":  "class Broken(:\n",
	})
	return repoPath
}

func newRunner(t *testing.T, repoPath, path string) *Runner {
	t.Helper()
	repo, err := vcs.NewGitOpener().PlainOpen(repoPath)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	r, err := NewRunner(repo, ck.New(ck.WithConfig(cfg)), scanner.NewScanner(cfg), path, nil)
	require.NoError(t, err)
	return r
}

func TestRun(t *testing.T) {
	repoPath := initRepo(t)
	r := newRunner(t, repoPath, filepath.Join(repoPath, "app"))

	result, err := r.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, result.Revisions, 3)

	assert.Equal(t, "Add service", result.Revisions[0].Commit.Summary)
	assert.Equal(t, "Add restart", result.Revisions[2].Commit.Summary)

	var wmc []float64
	for _, rev := range result.Revisions {
		assert.Equal(t, 1, rev.Stats.Classes, "tools/ is outside the prefix")
		wmc = append(wmc, rev.Stats.WMC.Mean)
	}
	assert.Equal(t, []float64{1, 2, 3}, wmc)
	assert.Equal(t, 1, result.Revisions[2].Stats.Failures)

	assert.InDelta(t, 1.0, result.WMC.Slope, 1e-9)
	assert.Equal(t, "rising", result.WMC.Direction())
	assert.Equal(t, "flat", result.CBO.Direction())
	assert.Equal(t, "master", result.Ref)
	assert.False(t, result.Dirty)
}

func TestRun_DirtyWorktree(t *testing.T) {
	repoPath := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "app", "service.py"), []byte("class Service:\n    pass\n"), 0644))
	r := newRunner(t, repoPath, "")

	result, err := r.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, result.Dirty)
	require.Len(t, result.Revisions, 1)
	assert.Equal(t, 3.0, result.Revisions[0].Stats.WMC.Max, "the committed tree is analyzed")
}

func TestRun_Limit(t *testing.T) {
	r := newRunner(t, initRepo(t), "")

	result, err := r.Run(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, result.Revisions, 2)
	assert.Equal(t, "Add stop", result.Revisions[0].Commit.Summary)
	assert.Equal(t, 2, result.Revisions[0].Stats.Classes)
}

func TestRun_Cancelled(t *testing.T) {
	r := newRunner(t, initRepo(t), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeRevision(t *testing.T) {
	repoPath := initRepo(t)
	r := newRunner(t, repoPath, "")

	report, info, err := r.AnalyzeRevision(context.Background(), "HEAD~1")
	require.NoError(t, err)

	assert.Equal(t, "Add stop", info.Summary)
	require.Contains(t, report.Files, "app/service.py")
	assert.Equal(t, 2, report.Files["app/service.py"]["Service"].WMC)
	assert.Contains(t, report.Files, "tools/gen.py")
	assert.Empty(t, report.Failures)

	_, _, err = r.AnalyzeRevision(context.Background(), "no-such-rev")
	assert.Error(t, err)
}

func TestNewRunner_OutsideRepository(t *testing.T) {
	repoPath := initRepo(t)
	repo, err := vcs.NewGitOpener().PlainOpen(repoPath)
	require.NoError(t, err)

	_, err = NewRunner(repo, ck.New(), scanner.NewScanner(nil), t.TempDir(), nil)
	assert.Error(t, err)
}

func TestTreePrefix(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))

	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{root, ""},
		{filepath.Join(root, "a"), "a"},
		{filepath.Join(root, "a", "b"), "a/b"},
	}
	for _, tt := range tests {
		got, err := treePrefix(root, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}
