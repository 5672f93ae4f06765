// Package history runs C&K analysis against committed revisions of a git
// repository and fits trends across them.
package history

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/panbanda/ckmetrics/internal/scanner"
	"github.com/panbanda/ckmetrics/internal/vcs"
	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/panbanda/ckmetrics/pkg/source"
	"github.com/panbanda/ckmetrics/pkg/stats"
	"go.uber.org/zap"
)

// DefaultRevisions is the number of commits analyzed when none is given.
const DefaultRevisions = 5

// Revision is the analysis of one commit.
type Revision struct {
	Commit vcs.CommitInfo `json:"commit" yaml:"commit" toon:"commit"`
	Stats  stats.Project  `json:"stats" yaml:"stats" toon:"stats"`
}

// Result holds per-revision summaries, oldest first, and the trends across them.
// Dirty reports uncommitted changes in the worktree, which no revision includes.
type Result struct {
	Ref       string      `json:"ref,omitempty" yaml:"ref,omitempty" toon:"ref,omitempty"`
	Dirty     bool        `json:"dirty,omitempty" yaml:"dirty,omitempty" toon:"dirty,omitempty"`
	Revisions []Revision  `json:"revisions" yaml:"revisions" toon:"revisions"`
	WMC       stats.Trend `json:"wmc_trend" yaml:"wmc_trend" toon:"wmc_trend"`
	CBO       stats.Trend `json:"cbo_trend" yaml:"cbo_trend" toon:"cbo_trend"`
	LCOM      stats.Trend `json:"lcom_trend" yaml:"lcom_trend" toon:"lcom_trend"`
}

// Runner analyzes revisions of one repository.
type Runner struct {
	repo     vcs.Repository
	analyzer *ck.Analyzer
	scanner  *scanner.Scanner
	prefix   string
	logger   *zap.Logger
}

// NewRunner creates a runner. path limits analysis to a directory inside the
// repository; an empty path or the repository root analyzes the whole tree.
func NewRunner(repo vcs.Repository, analyzer *ck.Analyzer, sc *scanner.Scanner, path string, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix, err := treePrefix(repo.RepoPath(), path)
	if err != nil {
		return nil, err
	}
	return &Runner{repo: repo, analyzer: analyzer, scanner: sc, prefix: prefix, logger: logger}, nil
}

// treePrefix converts a filesystem path into a slash-separated tree prefix.
func treePrefix(repoRoot, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside repository %s", path, repoRoot)
	}
	return filepath.ToSlash(rel), nil
}

// AnalyzeRevision analyzes the tree of one revision without touching the worktree.
// Report paths are tree-relative.
func (r *Runner) AnalyzeRevision(ctx context.Context, rev string) (*ck.Report, vcs.CommitInfo, error) {
	commit, err := r.repo.ResolveRevision(rev)
	if err != nil {
		return nil, vcs.CommitInfo{}, fmt.Errorf("resolve %s: %w", rev, err)
	}
	report, err := r.analyzeCommit(ctx, commit)
	if err != nil {
		return nil, vcs.CommitInfo{}, err
	}
	return report, vcs.Info(commit), nil
}

func (r *Runner) analyzeCommit(ctx context.Context, commit vcs.Commit) (*ck.Report, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %s: %w", commit.Hash(), err)
	}
	src := source.NewTree(tree)
	files, err := src.List(r.prefix, r.scanner.Accept)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", commit.Hash(), err)
	}
	return r.analyzer.Analyze(ctx, files, src)
}

// Run analyzes the last n commits reachable from HEAD and fits trends of the
// mean WMC, CBO and LCOM, oldest revision first.
func (r *Runner) Run(ctx context.Context, n int) (*Result, error) {
	if n <= 0 {
		n = DefaultRevisions
	}
	commits, err := vcs.RecentCommits(r.repo, n)
	if err != nil {
		return nil, err
	}

	result := &Result{Revisions: make([]Revision, 0, len(commits))}
	if ref, err := vcs.CurrentRef(r.repo); err == nil {
		result.Ref = ref
	} else {
		r.logger.Debug("current ref unavailable", zap.Error(err))
	}
	if dirty, err := vcs.IsDirty(r.repo.RepoPath()); err == nil {
		result.Dirty = dirty
	} else {
		r.logger.Debug("worktree status unavailable", zap.Error(err))
	}

	for i := len(commits) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info := commits[i]
		commit, err := r.repo.CommitObject(plumbing.NewHash(info.SHA))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", info.ShortSHA(), err)
		}
		report, err := r.analyzeCommit(ctx, commit)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("analyzed revision",
			zap.String("sha", info.ShortSHA()),
			zap.Int("classes", report.ClassCount()))
		result.Revisions = append(result.Revisions, Revision{Commit: info, Stats: stats.Compute(report)})
	}

	series := func(pick func(stats.Project) float64) []float64 {
		out := make([]float64, len(result.Revisions))
		for i, rev := range result.Revisions {
			out[i] = pick(rev.Stats)
		}
		return out
	}
	result.WMC = stats.Fit(series(func(p stats.Project) float64 { return p.WMC.Mean }))
	result.CBO = stats.Fit(series(func(p stats.Project) float64 { return p.CBO.Mean }))
	result.LCOM = stats.Fit(series(func(p stats.Project) float64 { return p.LCOM.Mean }))
	return result, nil
}
