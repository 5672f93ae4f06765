package vcs

import (
	"errors"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNoRevisions is returned when a revision listing yields nothing.
var ErrNoRevisions = errors.New("no revisions found")

// CommitInfo describes a commit.
type CommitInfo struct {
	SHA     string    `json:"sha" yaml:"sha" toon:"sha"`
	Date    time.Time `json:"date" yaml:"date" toon:"date"`
	Author  string    `json:"author" yaml:"author" toon:"author"`
	Summary string    `json:"summary" yaml:"summary" toon:"summary"`
}

// ShortSHA returns the first 8 characters of the hash.
func (c CommitInfo) ShortSHA() string {
	if len(c.SHA) > 8 {
		return c.SHA[:8]
	}
	return c.SHA
}

// Info summarizes a commit.
func Info(c Commit) CommitInfo {
	author := c.Author()
	summary, _, _ := strings.Cut(strings.TrimSpace(c.Message()), "\n")
	return CommitInfo{
		SHA:     c.Hash().String(),
		Date:    author.When,
		Author:  author.Name,
		Summary: summary,
	}
}

// RecentCommits returns up to n commits reachable from HEAD, newest first.
func RecentCommits(repo Repository, n int) ([]CommitInfo, error) {
	if n <= 0 {
		return nil, ErrNoRevisions
	}

	head, err := repo.Head()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Log(&LogOptions{From: head.Hash()})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	commits := make([]CommitInfo, 0, n)
	err = iter.ForEach(func(c Commit) error {
		commits = append(commits, Info(c))
		if len(commits) >= n {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, ErrNoRevisions
	}
	return commits, nil
}

// IsDirty returns true if there are uncommitted changes in the working directory.
// Untracked files are not considered dirty.
func IsDirty(repoPath string) (bool, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return false, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, err
	}

	for _, s := range status {
		if s.Staging == git.Untracked && s.Worktree == git.Untracked {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// CurrentRef returns the current branch name, or the commit SHA for a detached HEAD.
func CurrentRef(repo Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	if head.IsBranch() {
		return head.Name(), nil
	}
	return head.Hash().String(), nil
}
