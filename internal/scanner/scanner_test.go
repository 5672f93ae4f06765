package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/ckmetrics/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func relPaths(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	require.NotNil(t, s)
	assert.NotNil(t, s.config)

	cfg := config.DefaultConfig()
	assert.Same(t, cfg, NewScanner(cfg).config)
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"app.py":            "class App: pass\n",
		"pkg/models.py":     "class Model: pass\n",
		"pkg/README.md":     "# docs\n",
		"pkg/native.c":      "int main() {}\n",
		"pkg/sub/deep.py":   "x = 1\n",
		"scripts/run.PY":    "x = 1\n",
		"pkg/stubs/api.pyi": "def f() -> int: ...\n",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"app.py", "pkg/models.py", "pkg/sub/deep.py", "scripts/run.PY"}, relPaths(t, tmpDir, result))
}

func TestScanDirCustomExtension(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"a.py":  "",
		"b.pyi": "",
	})

	cfg := config.DefaultConfig()
	cfg.Analysis.Extension = ".pyi"
	result, err := NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pyi"}, relPaths(t, tmpDir, result))
}

func TestScanDirExcludesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".venv/lib/site.py":       "",
		"__pycache__/cached.py":   "",
		"pkg/node_modules/x.py":   "",
		".ckmetrics/cache/old.py": "",
		"main.py":                 "",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py"}, relPaths(t, tmpDir, result))
}

func TestScanDirExcludesPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"app/models.py":              "",
		"app/migrations/0001_init.py": "",
		"proto/api_pb2.py":           "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"**/migrations/**", "*_pb2.py"}

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"app/models.py"}, relPaths(t, tmpDir, result))
}

func TestScanDirExcludesTests(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"app/service.py":       "",
		"app/test_service.py":  "",
		"tests/test_models.py": "",
	})

	cfg := config.DefaultConfig()
	cfg.Analysis.IncludeTests = false

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"app/service.py"}, relPaths(t, tmpDir, result))
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".gitignore":          "generated/\n*_local.py\n",
		"main.py":             "",
		"generated/schema.py": "",
		"settings_local.py":   "",
		"src/app.py":          "",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py", "src/app.py"}, relPaths(t, tmpDir, result))
}

func TestScanDirDisabledGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".gitignore":          "generated/\n",
		"main.py":             "",
		"generated/schema.py": "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"generated/schema.py", "main.py"}, relPaths(t, tmpDir, result))
}

func TestScanDirSubdirectoryOfRepository(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".git/HEAD":        "ref: refs/heads/main\n",
		".gitignore":       "pkg/vendored/\n",
		"pkg/core.py":      "",
		"pkg/vendored/x.py": "",
	})

	root := filepath.Join(tmpDir, "pkg")
	result, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"core.py"}, relPaths(t, root, result))
}

func TestScanDirEmptyDirectory(t *testing.T) {
	result, err := NewScanner(nil).ScanDir(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestScanDirMissingRoot(t *testing.T) {
	_, err := NewScanner(nil).ScanDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestScanDirSkipsEscapingSymlink(t *testing.T) {
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"secret.py": ""})

	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"main.py": ""})
	if err := os.Symlink(filepath.Join(outside, "secret.py"), filepath.Join(tmpDir, "link.py")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	result, err := NewScanner(nil).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py"}, relPaths(t, tmpDir, result))
}

func TestIsWithinRoot(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/a/b/c.py", "/a/b", true},
		{"/a/b", "/a/b", true},
		{"/a/bc/d.py", "/a/b", false},
		{"/x/y.py", "/a/b", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isWithinRoot(tt.path, tt.root), "%s in %s", tt.path, tt.root)
	}
}

func TestAccept(t *testing.T) {
	s := NewScanner(nil)
	assert.True(t, s.Accept("pkg/a.py"))
	assert.False(t, s.Accept("pkg/a.txt"))
	assert.False(t, s.Accept("venv/lib/a.py"))
}
