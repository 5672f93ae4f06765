// Package vcs provides version control system abstractions.
package vcs

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Opener opens repositories.
type Opener interface {
	PlainOpen(path string) (Repository, error)
	PlainOpenWithDetect(path string) (Repository, error)
}

// Repository provides access to git repository operations.
type Repository interface {
	// Head returns a reference to the HEAD commit.
	Head() (Reference, error)
	// Log returns a commit iterator starting from HEAD.
	Log(opts *LogOptions) (CommitIterator, error)
	// CommitObject returns the commit with the given hash.
	CommitObject(hash plumbing.Hash) (Commit, error)
	// ResolveRevision resolves a branch, tag, short hash or expression like HEAD~2.
	ResolveRevision(rev string) (Commit, error)
	// RepoPath returns the root path of the working tree.
	RepoPath() string
}

// Reference represents a git reference (branch, tag, HEAD).
type Reference interface {
	Hash() plumbing.Hash
	// Name returns the short reference name, e.g. "main" or "HEAD".
	Name() string
	IsBranch() bool
}

// LogOptions configures the commit log query.
type LogOptions struct {
	Since *time.Time
	From  plumbing.Hash
}

// CommitIterator iterates over commits.
type CommitIterator interface {
	ForEach(fn func(Commit) error) error
	Close()
}

// Commit represents a git commit.
type Commit interface {
	Hash() plumbing.Hash
	NumParents() int
	// Tree returns the tree object for this commit.
	Tree() (Tree, error)
	Author() object.Signature
	Message() string
}

// TreeEntry represents a file in a git tree.
type TreeEntry struct {
	Path string
	Size int64
}

// Tree represents a git tree object.
type Tree interface {
	// Entries returns all regular files in the tree, recursively.
	Entries() ([]TreeEntry, error)
	// File returns the content of the file at a slash-separated path.
	File(path string) ([]byte, error)
}

var defaultOpener Opener = NewGitOpener()

// DefaultOpener returns the opener used by package-level helpers.
func DefaultOpener() Opener {
	return defaultOpener
}

// SetDefaultOpener replaces the default opener; tests use it to inject fakes.
func SetDefaultOpener(o Opener) {
	defaultOpener = o
}
