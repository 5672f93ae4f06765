// Package scanner enumerates source files under a root directory.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/ckmetrics/pkg/config"
)

// Scanner finds source files in a directory.
type Scanner struct {
	config *config.Config
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// Accept reports whether a root-relative path has the configured extension and
// is not excluded by configuration.
func (s *Scanner) Accept(rel string) bool {
	if !strings.EqualFold(filepath.Ext(rel), s.config.Analysis.Extension) {
		return false
	}
	return !s.config.ShouldExclude(rel)
}

// findGitRoot finds the root of the git repository by looking for .git.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ignoreMatcher applies .gitignore rules relative to base.
type ignoreMatcher struct {
	base    string
	matcher gitignore.Matcher
}

// loadIgnore reads every .gitignore under the repository containing root,
// or under root itself outside a repository.
func loadIgnore(root string) *ignoreMatcher {
	base := findGitRoot(root)
	if base == "" {
		base = root
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(base), nil)
	if err != nil || len(patterns) == 0 {
		return nil
	}
	return &ignoreMatcher{base: base, matcher: gitignore.NewMatcher(patterns)}
}

func (m *ignoreMatcher) ignored(path string, isDir bool) bool {
	if m == nil {
		return false
	}
	rel, err := filepath.Rel(m.base, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return m.matcher.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}

// ScanDir recursively scans root for source files, in lexical order.
// Symlinks that resolve outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	var ignore *ignoreMatcher
	if s.config.Exclude.Gitignore {
		ignore = loadIgnore(absRoot)
	}

	files := make([]string, 0, 256)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		rel, _ := filepath.Rel(root, path)
		absPath := filepath.Join(absRoot, rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if s.excludedDir(rel) || ignore.ignored(absPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if ignore.ignored(absPath, false) || !s.Accept(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, walkErr
}

func (s *Scanner) excludedDir(rel string) bool {
	name := filepath.Base(rel)
	for _, dir := range s.config.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
