// Package pathgate implements the path gate: the single authority on what
// the session root is and whether a given path falls under it, combining
// root admission checks with a get/set pair for the root itself.
package pathgate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/sessionfsd/pkg/fileio"
)

// ErrRelativeRoot is returned when SetRoot is given a non-absolute path.
var ErrRelativeRoot = errors.New("pathgate: session root must be an absolute path")

// Gate holds the current session root and answers admission questions
// against it. It is safe for concurrent use.
type Gate struct {
	mu   sync.RWMutex
	root string
	io   fileio.Capability
}

// New creates a Gate with the given initial root, using cap for
// canonicalization. root must be absolute.
func New(cap fileio.Capability, root string) (*Gate, error) {
	g := &Gate{io: cap}
	if err := g.SetRoot(root); err != nil {
		return nil, err
	}
	return g, nil
}

// Root returns the current session root.
func (g *Gate) Root() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.root
}

// SetRoot replaces the session root. root must be an absolute path;
// relative paths are rejected outright before a new root is stored.
func (g *Gate) SetRoot(root string) error {
	if !filepath.IsAbs(root) {
		return ErrRelativeRoot
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.root = filepath.Clean(root)
	return nil
}

// IsUnderRoot reports whether path resolves to a location under the
// current session root. When path exists, it is canonicalized via the File
// I/O capability (resolving symlinks) before the prefix check; when it does
// not exist, the check falls back to a textual Clean+HasPrefix comparison
// against the root, since there is nothing on disk left to canonicalize
// for a not-yet-created path.
func (g *Gate) IsUnderRoot(ctx context.Context, path string) (bool, error) {
	root := g.Root()

	resolved, err := g.io.Canonicalize(ctx, path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("pathgate: canonicalize %q: %w", path, err)
		}
		resolved = filepath.Clean(resolved)
	}

	return isPrefixedBy(resolved, root), nil
}

func isPrefixedBy(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
