// Package source abstracts where analyzed file content comes from.
package source

import (
	"os"
	"path"
	"strings"
	"sync"

	"github.com/panbanda/ckmetrics/internal/vcs"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files from a git tree at one commit.
// It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree vcs.Tree
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree.
func NewTree(tree vcs.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

// Read implements ContentSource. Paths are slash-separated and tree-relative.
func (t *TreeSource) Read(p string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.File(p)
}

// List returns the tree's files under prefix that pass keep, in tree order.
// An empty prefix lists the whole tree.
func (t *TreeSource) List(prefix string, keep func(string) bool) ([]string, error) {
	t.mu.Lock()
	entries, err := t.tree.Entries()
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	prefix = strings.Trim(path.Clean("/"+prefix), "/")
	var files []string
	for _, e := range entries {
		if prefix != "" && !strings.HasPrefix(e.Path, prefix+"/") {
			continue
		}
		if keep != nil && !keep(e.Path) {
			continue
		}
		files = append(files, e.Path)
	}
	return files, nil
}
