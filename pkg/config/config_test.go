package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, ".py", cfg.Analysis.Extension)
	assert.Equal(t, 0, cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.IncludeTests)

	assert.Equal(t, 20, cfg.Thresholds.WMC)
	assert.Equal(t, 5, cfg.Thresholds.DIT)
	assert.Equal(t, 6, cfg.Thresholds.NOC)
	assert.Equal(t, 50, cfg.Thresholds.RFC)
	assert.Equal(t, 10, cfg.Thresholds.CBO)
	assert.Equal(t, 10.0, cfg.Thresholds.LCOM)

	assert.True(t, cfg.Exclude.Gitignore)
	assert.Contains(t, cfg.Exclude.Dirs, "__pycache__")
	assert.Contains(t, cfg.Exclude.Dirs, ".venv")

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, ".ckmetrics/cache", cfg.Cache.Dir)
	assert.Equal(t, 24, cfg.Cache.TTL)
	assert.Equal(t, 4096, cfg.Cache.MemoryEntries)

	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, "lcom", cfg.Output.Sort)
	assert.Equal(t, "warn", cfg.Log.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ckmetrics.toml")

	content := `
[analysis]
extension = ".pyi"
workers = 4

[thresholds]
lcom = 25

[exclude]
dirs = ["migrations"]
patterns = ["**/generated/**"]

[cache]
enabled = false

[output]
format = "json"
sort = "cbo"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, ".pyi", cfg.Analysis.Extension)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 25.0, cfg.Thresholds.LCOM)
	assert.Equal(t, 20, cfg.Thresholds.WMC, "unset keys keep defaults")
	assert.Equal(t, []string{"migrations"}, cfg.Exclude.Dirs)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "cbo", cfg.Output.Sort)
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ckmetrics.yaml")

	content := `
analysis:
  include_tests: false
thresholds:
  wmc: 12
output:
  format: markdown
  top: 5
log:
  level: debug
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.False(t, cfg.Analysis.IncludeTests)
	assert.Equal(t, 12, cfg.Thresholds.WMC)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, 5, cfg.Output.Top)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ckmetrics.json")

	content := `{"cache": {"ttl": 48, "memory_entries": 10}, "output": {"color": false}}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 48, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Cache.MemoryEntries)
	assert.False(t, cfg.Output.Color)
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/ckmetrics.toml")
	assert.Error(t, err)
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ckmetrics.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[analysis\ninvalid toml"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults when nothing is found", func(t *testing.T) {
		res, err := LoadConfig(WithSearchDirs(t.TempDir()))
		require.NoError(t, err)
		assert.Empty(t, res.Source)
		assert.Equal(t, DefaultConfig(), res.Config)
	})

	t.Run("searches dot-directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		hidden := filepath.Join(tmpDir, ".ckmetrics")
		require.NoError(t, os.MkdirAll(hidden, 0755))
		path := filepath.Join(hidden, "ckmetrics.toml")
		require.NoError(t, os.WriteFile(path, []byte("[output]\ntop = 3\n"), 0644))

		res, err := LoadConfig(WithSearchDirs(tmpDir, hidden))
		require.NoError(t, err)
		assert.Equal(t, path, res.Source)
		assert.Equal(t, 3, res.Config.Output.Top)
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		_, err := LoadConfig(WithPath(filepath.Join(t.TempDir(), "missing.toml")))
		assert.Error(t, err)
	})

	t.Run("broken searched file is an error", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ckmetrics.toml"), []byte("[[["), 0644))
		_, err := LoadConfig(WithSearchDirs(tmpDir))
		assert.Error(t, err)
	})
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	cfg := LoadOrDefault()
	require.NotNil(t, cfg)
	assert.Equal(t, ".py", cfg.Analysis.Extension)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ckmetrics.toml"), []byte("[analysis]\nworkers = 7\n"), 0644))
	cfg = LoadOrDefault()
	assert.Equal(t, 7, cfg.Analysis.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"extension without dot", func(c *Config) { c.Analysis.Extension = "py" }},
		{"negative workers", func(c *Config) { c.Analysis.Workers = -1 }},
		{"negative threshold", func(c *Config) { c.Thresholds.CBO = -2 }},
		{"bad glob", func(c *Config) { c.Exclude.Patterns = []string{"[unclosed"} }},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }},
		{"unknown sort", func(c *Config) { c.Output.Sort = "loc" }},
		{"negative top", func(c *Config) { c.Output.Top = -1 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		path string
		want bool
	}{
		{".venv/lib/site.py", true},
		{"pkg/__pycache__/mod.py", true},
		{"node_modules/x/y.py", true},
		{"build/lib/app.py", true},

		{"app.py", false},
		{"pkg/models/user.py", false},
		{"tests/test_user.py", false},
		{"pkg/build.py", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ShouldExclude(tt.path))
		})
	}
}

func TestShouldExcludeCustomPatterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude.Patterns = []string{"**/migrations/*.py", "*_pb2.py"}

	tests := []struct {
		path string
		want bool
	}{
		{"app/migrations/0001_initial.py", true},
		{"proto/service_pb2.py", true},
		{"app/models.py", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ShouldExclude(tt.path))
		})
	}
}

func TestShouldExcludeTests(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.IncludeTests = false

	assert.True(t, cfg.ShouldExclude("tests/test_models.py"))
	assert.True(t, cfg.ShouldExclude("pkg/test_util.py"))
	assert.True(t, cfg.ShouldExclude("pkg/util_test.py"))
	assert.True(t, cfg.ShouldExclude("conftest.py"))
	assert.False(t, cfg.ShouldExclude("pkg/util.py"))
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"valid toml", "ok.toml", "[analysis]\nextension = \".py\"\nworkers = 4\n\n[thresholds]\nlcom = 12.5\n", ""},
		{"valid yaml", "ok.yaml", "output:\n  format: json\n  top: 10\n", ""},
		{"unknown key", "typo.toml", "[analysis]\nextention = \".py\"\n", "extention"},
		{"unknown section", "section.json", `{"metrics": {"wmc": 3}}`, "metrics"},
		{"wrong type", "type.toml", "[thresholds]\nwmc = \"high\"\n", "thresholds/wmc"},
		{"bad enum", "enum.yaml", "log:\n  level: trace\n", "log/level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(write(tt.file, tt.content))
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Error(t, ValidateFile(filepath.Join(dir, "missing.toml")))
}
