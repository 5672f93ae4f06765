package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for ckmetrics.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" json:"analysis" yaml:"analysis"`

	// Thresholds above which a metric is flagged
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds" json:"thresholds" yaml:"thresholds"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude" json:"exclude" yaml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache" json:"cache" yaml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" json:"output" yaml:"output"`

	// Log settings
	Log LogConfig `koanf:"log" toml:"log" json:"log" yaml:"log"`
}

// AnalysisConfig controls which files are analyzed and how.
type AnalysisConfig struct {
	Extension    string `koanf:"extension" toml:"extension" json:"extension" yaml:"extension"`
	Workers      int    `koanf:"workers" toml:"workers" json:"workers" yaml:"workers"` // 0 = 2x NumCPU
	MaxFileSize  int64  `koanf:"max_file_size" toml:"max_file_size" json:"max_file_size" yaml:"max_file_size"`
	IncludeTests bool   `koanf:"include_tests" toml:"include_tests" json:"include_tests" yaml:"include_tests"`
}

// ThresholdConfig defines per-metric warning thresholds.
type ThresholdConfig struct {
	WMC  int     `koanf:"wmc" toml:"wmc" json:"wmc" yaml:"wmc"`
	DIT  int     `koanf:"dit" toml:"dit" json:"dit" yaml:"dit"`
	NOC  int     `koanf:"noc" toml:"noc" json:"noc" yaml:"noc"`
	RFC  int     `koanf:"rfc" toml:"rfc" json:"rfc" yaml:"rfc"`
	CBO  int     `koanf:"cbo" toml:"cbo" json:"cbo" yaml:"cbo"`
	LCOM float64 `koanf:"lcom" toml:"lcom" json:"lcom" yaml:"lcom"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns" json:"patterns" yaml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs" json:"dirs" yaml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore" json:"gitignore" yaml:"gitignore"`
}

// CacheConfig controls caching of per-file class models.
type CacheConfig struct {
	Enabled       bool   `koanf:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Dir           string `koanf:"dir" toml:"dir" json:"dir" yaml:"dir"`
	TTL           int    `koanf:"ttl" toml:"ttl" json:"ttl" yaml:"ttl"` // TTL in hours
	MemoryEntries int    `koanf:"memory_entries" toml:"memory_entries" json:"memory_entries" yaml:"memory_entries"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format" json:"format" yaml:"format"` // text, markdown, json, yaml, toon
	Color  bool   `koanf:"color" toml:"color" json:"color" yaml:"color"`
	Sort   string `koanf:"sort" toml:"sort" json:"sort" yaml:"sort"`
	Top    int    `koanf:"top" toml:"top" json:"top" yaml:"top"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `koanf:"level" toml:"level" json:"level" yaml:"level"`
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "markdown", "json", "yaml", "toon"}

// SortKeys lists the accepted sort keys.
var SortKeys = []string{"lcom", "wmc", "cbo", "rfc", "dit", "noc"}

var logLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Extension:    ".py",
			Workers:      0,
			MaxFileSize:  0,
			IncludeTests: true,
		},
		Thresholds: ThresholdConfig{
			WMC:  20,
			DIT:  5,
			NOC:  6,
			RFC:  50,
			CBO:  10,
			LCOM: 10,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{},
			Dirs: []string{
				".git",
				"__pycache__",
				".venv",
				"venv",
				"node_modules",
				"build",
				"dist",
				".tox",
				".ckmetrics",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Dir:           ".ckmetrics/cache",
			TTL:           24,
			MemoryEntries: 4096,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
			Sort:   "lcom",
			Top:    0,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	return cfg, nil
}

// parserFor picks a koanf parser by file extension, defaulting to TOML.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// configNames are the file names searched for, in priority order.
var configNames = []string{
	"ckmetrics.toml",
	"ckmetrics.yaml",
	"ckmetrics.yml",
	"ckmetrics.json",
	".ckmetrics.toml",
	".ckmetrics.yaml",
	".ckmetrics.yml",
	".ckmetrics.json",
}

// LoadResult is a loaded configuration together with the file it came from.
// Source is empty when defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

type loadOptions struct {
	path       string
	searchDirs []string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads an explicit config file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithSearchDirs overrides the directories searched for a config file.
func WithSearchDirs(dirs ...string) LoadOption {
	return func(o *loadOptions) {
		o.searchDirs = dirs
	}
}

// LoadConfig resolves and loads configuration.
// An explicit path must exist; a searched file that fails to load is an error
// rather than a silent fallback.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{searchDirs: []string{".", ".ckmetrics"}}
	for _, opt := range opts {
		opt(o)
	}

	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}

	if path := findConfig(o.searchDirs); path != "" {
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: path}, nil
	}

	return &LoadResult{Config: DefaultConfig()}, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := findConfig([]string{".", ".ckmetrics"}); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

func findConfig(dirs []string) string {
	for _, dir := range dirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Validate checks the configuration for values the analyzer cannot use.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Analysis.Extension, ".") || len(c.Analysis.Extension) < 2 {
		return fmt.Errorf("analysis.extension must look like \".py\", got %q", c.Analysis.Extension)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must be >= 0, got %d", c.Analysis.Workers)
	}
	if c.Analysis.MaxFileSize < 0 {
		return fmt.Errorf("analysis.max_file_size must be >= 0, got %d", c.Analysis.MaxFileSize)
	}
	t := c.Thresholds
	if t.WMC < 0 || t.DIT < 0 || t.NOC < 0 || t.RFC < 0 || t.CBO < 0 || t.LCOM < 0 {
		return fmt.Errorf("thresholds must not be negative")
	}
	for _, p := range c.Exclude.Patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("exclude.patterns: invalid glob %q", p)
		}
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0, got %d", c.Cache.TTL)
	}
	if c.Cache.MemoryEntries < 0 {
		return fmt.Errorf("cache.memory_entries must be >= 0, got %d", c.Cache.MemoryEntries)
	}
	if !contains(Formats, c.Output.Format) {
		return fmt.Errorf("output.format must be one of %s, got %q", strings.Join(Formats, ", "), c.Output.Format)
	}
	if !contains(SortKeys, c.Output.Sort) {
		return fmt.Errorf("output.sort must be one of %s, got %q", strings.Join(SortKeys, ", "), c.Output.Sort)
	}
	if c.Output.Top < 0 {
		return fmt.Errorf("output.top must be >= 0, got %d", c.Output.Top)
	}
	if !contains(logLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %s, got %q", strings.Join(logLevels, ", "), c.Log.Level)
	}
	return nil
}

// ShouldExclude checks if a path should be excluded from analysis.
// Paths are matched relative to the analysis root using forward slashes.
func (c *Config) ShouldExclude(path string) bool {
	slashed := filepath.ToSlash(path)
	parts := strings.Split(slashed, "/")

	for _, dir := range c.Exclude.Dirs {
		for _, part := range parts[:len(parts)-1] {
			if part == dir {
				return true
			}
		}
	}

	base := parts[len(parts)-1]
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := doublestar.Match(pattern, slashed); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}

	if !c.Analysis.IncludeTests && IsTestFile(slashed) {
		return true
	}

	return false
}

// IsTestFile reports whether a path looks like a Python test module.
func IsTestFile(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(slashed)
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") || base == "conftest.py" {
		return true
	}
	return strings.Contains("/"+slashed, "/tests/") || strings.Contains("/"+slashed, "/test/")
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
