// Package ck computes the Chidamber & Kemerer metric suite (WMC, DIT, NOC, RFC,
// CBO, LCOM) for the classes of a Python code base.
//
// Analysis runs in two phases. Each file is parsed into a partial registry in
// parallel; once every file is done the partial registries are merged in path
// order, the inheritance hierarchy is linked and metrics are computed over the
// whole project.
package ck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/panbanda/ckmetrics/internal/fileproc"
	"github.com/panbanda/ckmetrics/internal/scanner"
	"github.com/panbanda/ckmetrics/pkg/analyzer"
	"github.com/panbanda/ckmetrics/pkg/config"
	"github.com/panbanda/ckmetrics/pkg/parser"
	"github.com/panbanda/ckmetrics/pkg/source"
	"go.uber.org/zap"
)

var _ analyzer.SourceAnalyzer[*Report] = (*Analyzer)(nil)

// ModelCache stores serialized per-file class models keyed by path and
// validated against file content.
type ModelCache interface {
	LookupContent(key string, content []byte) ([]byte, bool)
	StoreContent(key string, content, data []byte) error
}

// Analyzer computes C&K metrics for a project.
type Analyzer struct {
	config      *config.Config
	workers     int
	maxFileSize int64
	logger      *zap.Logger
	cache       ModelCache
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithConfig sets the configuration used for file discovery and defaults.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		if cfg == nil {
			return
		}
		a.config = cfg
		a.workers = cfg.Analysis.Workers
		a.maxFileSize = cfg.Analysis.MaxFileSize
	}
}

// WithWorkers bounds the number of files parsed concurrently.
// 1 processes files one at a time; 0 uses 2x NumCPU.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithLogger sets the logger used for skipped files and run summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCache reuses class models of unchanged files across runs.
func WithCache(c ModelCache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// New creates a new C&K analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		config: config.DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases resources. Parsers are owned per run, so there is nothing to free.
func (a *Analyzer) Close() {}

// AnalyzeDir analyzes every eligible file under root.
func (a *Analyzer) AnalyzeDir(ctx context.Context, root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &RootError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &RootError{Path: root, Err: errors.New("not a directory")}
	}

	files, err := scanner.NewScanner(a.config).ScanDir(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}
	a.logger.Debug("discovered files", zap.String("root", root), zap.Int("files", len(files)))

	report, err := a.Analyze(ctx, files, source.NewFilesystem())
	if err != nil {
		return nil, err
	}
	report.Root = root
	return report, nil
}

// Analyze builds, links and measures the classes declared in files read from src.
// Files that cannot be read or parsed are reported in Failures and skipped.
func (a *Analyzer) Analyze(ctx context.Context, files []string, src source.ContentSource) (*Report, error) {
	paths := append([]string(nil), files...)
	sort.Strings(paths)

	partials, errs, err := fileproc.MapSourceFiles(ctx, paths, src,
		fileproc.Options{Workers: a.workers, MaxFileSize: a.maxFileSize},
		a.buildFile)
	if err != nil {
		return nil, err
	}

	report := NewReport()
	for _, pe := range errs.Sorted() {
		if errors.Is(pe.Err, fileproc.ErrTooLarge) {
			a.logger.Debug("skipping large file", zap.String("path", pe.Path))
			report.Skipped = append(report.Skipped, pe.Path)
			continue
		}
		a.logger.Warn("skipping file", zap.String("path", pe.Path), zap.Error(pe.Err))
		report.Failures = append(report.Failures, ParseFailure{Path: pe.Path, Err: pe.Err})
	}

	reg := NewRegistry()
	declared := make(map[string][]string, len(paths))
	for i, path := range paths {
		partial := partials[i]
		if partial == nil {
			continue
		}
		declared[path] = partial.Names()
		reg.Merge(partial)
	}

	AssembleHierarchy(reg)
	LinkCallers(reg)
	metrics := Calculate(reg)

	for path, names := range declared {
		classes := make(map[string]MetricRecord, len(names))
		for _, name := range names {
			classes[name] = metrics[name]
		}
		report.Files[path] = classes
	}

	report.InheritanceCycles = InheritanceCycles(reg)
	if dups := reg.Duplicates(); len(dups) > 0 {
		report.DuplicateClasses = dups
		for name, where := range dups {
			a.logger.Warn("class declared in several files; records merged",
				zap.String("class", name), zap.Strings("files", where))
		}
	}
	report.registry = reg

	a.logger.Info("analysis complete",
		zap.Int("files", len(report.Files)),
		zap.Int("classes", reg.Len()),
		zap.Int("failures", len(report.Failures)),
		zap.Int("skipped", len(report.Skipped)))

	return report, nil
}

// buildFile turns one file into a partial registry, consulting the cache first.
func (a *Analyzer) buildFile(psr *parser.Parser, path string, content []byte) (*Registry, error) {
	if a.cache != nil {
		if data, ok := a.cache.LookupContent(path, content); ok {
			if reg, err := decodeModel(data); err == nil {
				return reg, nil
			}
		}
	}

	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		lang = parser.LanguageForExtension(a.config.Analysis.Extension)
	}
	result, err := psr.Parse(content, lang, path)
	if err != nil {
		return nil, err
	}
	reg := BuildRegistry(result)

	if a.cache != nil {
		if data, err := encodeModel(reg); err == nil {
			if err := a.cache.StoreContent(path, content, data); err != nil {
				a.logger.Debug("cache write failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
	return reg, nil
}

// fileModel is the cached form of a partial registry.
type fileModel struct {
	Version int            `json:"version"`
	Classes []*ClassRecord `json:"classes"`
}

const modelVersion = 1

func encodeModel(reg *Registry) ([]byte, error) {
	m := fileModel{Version: modelVersion}
	for _, name := range reg.Names() {
		m.Classes = append(m.Classes, reg.classes[name])
	}
	return json.Marshal(m)
}

func decodeModel(data []byte) (*Registry, error) {
	var m fileModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Version != modelVersion {
		return nil, fmt.Errorf("cached model version %d, want %d", m.Version, modelVersion)
	}
	reg := NewRegistry()
	for _, c := range m.Classes {
		if c == nil || c.Name == "" {
			continue
		}
		normalize(c)
		reg.classes[c.Name] = c
	}
	return reg, nil
}

// normalize replaces nil collections left by decoding.
func normalize(c *ClassRecord) {
	if c.Methods == nil {
		c.Methods = []string{}
	}
	for _, s := range []*Set{&c.Attributes, &c.Children, &c.Calls, &c.CalledBy} {
		if *s == nil {
			*s = Set{}
		}
	}
}

// RelativeTo rewrites report paths relative to base, using forward slashes.
// Paths outside base are left unchanged.
func (r *Report) RelativeTo(base string) {
	rel := func(p string) string {
		if r, err := filepath.Rel(base, p); err == nil && !filepath.IsAbs(r) && r != ".." && !startsWithParent(r) {
			return filepath.ToSlash(r)
		}
		return p
	}

	files := make(map[string]map[string]MetricRecord, len(r.Files))
	for p, classes := range r.Files {
		files[rel(p)] = classes
	}
	r.Files = files
	for i := range r.Failures {
		r.Failures[i].Path = rel(r.Failures[i].Path)
	}
	for i := range r.Skipped {
		r.Skipped[i] = rel(r.Skipped[i])
	}
	for name, where := range r.DuplicateClasses {
		for i := range where {
			where[i] = rel(where[i])
		}
		r.DuplicateClasses[name] = where
	}
}

func startsWithParent(p string) bool {
	return len(p) >= 3 && p[:3] == ".."+string(filepath.Separator)
}
