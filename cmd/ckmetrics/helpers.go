package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/ckmetrics/internal/cache"
	"github.com/panbanda/ckmetrics/internal/output"
	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/panbanda/ckmetrics/pkg/config"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// runtimeEnv is the resolved configuration and logger for one command.
type runtimeEnv struct {
	cfg    *config.Config
	source string
	logger *zap.Logger
}

// getPath returns the positional path, defaulting to ".".
func getPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

// formatName maps flag aliases onto the names accepted by the config.
func formatName(s string) string {
	switch s {
	case "md":
		return "markdown"
	case "yml":
		return "yaml"
	default:
		return s
	}
}

// loadEnv loads the config, applies global flags and builds the logger.
func loadEnv(c *cli.Context) (*runtimeEnv, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}

	cfg := result.Config
	if f := c.String("format"); f != "" {
		cfg.Output.Format = formatName(f)
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level, c.Bool("verbose"))
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", zap.String("source", result.Source))
	return &runtimeEnv{cfg: cfg, source: result.Source, logger: logger}, nil
}

// newLogger builds a console logger on stderr at the configured level.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = !verbose
	zcfg.Sampling = nil
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// newFormatter opens the output destination for the configured format.
func (e *runtimeEnv) newFormatter(c *cli.Context) (*output.Formatter, error) {
	colored := e.cfg.Output.Color && !color.NoColor
	return output.NewFormatter(output.ParseFormat(e.cfg.Output.Format), c.String("output"), colored)
}

// newAnalyzer builds an analyzer for a project root, with the model cache
// stored under the root unless the cache dir is absolute.
func (e *runtimeEnv) newAnalyzer(root string, extra ...ck.Option) *ck.Analyzer {
	opts := []ck.Option{ck.WithConfig(e.cfg), ck.WithLogger(e.logger)}
	if e.cfg.Cache.Enabled {
		dir := e.cfg.Cache.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		c, err := cache.New(cache.Options{
			Dir:           dir,
			TTLHours:      e.cfg.Cache.TTL,
			MemoryEntries: e.cfg.Cache.MemoryEntries,
			Enabled:       true,
		})
		if err != nil {
			e.logger.Warn("cache disabled", zap.String("dir", dir), zap.Error(err))
		} else {
			opts = append(opts, ck.WithCache(c))
		}
	}
	return ck.New(append(opts, extra...)...)
}

// viewOptions turns config and command flags into metrics view options.
func (e *runtimeEnv) viewOptions(c *cli.Context) ([]output.ViewOption, error) {
	sortBy := e.cfg.Output.Sort
	if c.IsSet("sort") {
		sortBy = c.String("sort")
	}
	key, err := ck.ParseSortKey(sortBy)
	if err != nil {
		return nil, err
	}
	top := e.cfg.Output.Top
	if c.IsSet("top") {
		top = c.Int("top")
	}
	if top < 0 {
		return nil, fmt.Errorf("--top must be >= 0 (got %d)", top)
	}
	return []output.ViewOption{
		output.WithThresholds(e.cfg.Thresholds),
		output.WithSort(key),
		output.WithTop(top),
	}, nil
}
