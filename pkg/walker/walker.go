// Package walker implements the Source Walker: it enumerates candidate
// source files under configured roots, honoring ignore patterns, and
// computes a stable content hash for each file it yields.
package walker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// File is one enumerated source file: its absolute path, contents, and
// the SHA-256 hash of its UTF-8 bytes.
type File struct {
	Path    string
	Content []byte
	Hash    string
}

// Options configures a walk.
type Options struct {
	// Roots are the directories to scan, local filesystem paths.
	Roots []string
	// ExcludeGlobs are glob patterns matched against the root-relative
	// path (see matchesGlob) or, when they contain no glob
	// metacharacter, literal names matched as a whole trailing path
	// segment, so an excluded directory is not descended into.
	ExcludeGlobs []string
	// Extensions restricts the walk to files with one of these
	// extensions (including the leading dot).
	Extensions []string
}

// Walker enumerates files via the afs abstraction so that non-local
// schemes are a configuration change rather than a rewrite.
type Walker struct {
	fs   afs.Service
	opts Options
}

// New creates a Walker over the given options.
func New(opts Options) *Walker {
	return &Walker{fs: afs.New(), opts: opts}
}

// Walk streams every matching file under all configured roots to fn. It
// stops and returns the first error either from the underlying
// filesystem or from fn. Symbolic links are not followed: afs's local
// scheme walk does not traverse symlinked directories by default, and
// entries named via a symlink are excluded explicitly below.
func (w *Walker) Walk(ctx context.Context, fn func(File) error) error {
	for _, root := range w.opts.Roots {
		if err := w.walkRoot(ctx, root, fn); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkRoot(ctx context.Context, root string, fn func(File) error) error {
	rootPrefix := strings.TrimSuffix(root, "/") + "/"

	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.Mode()&os.ModeSymlink != 0 {
			return false, nil
		}

		entryURL := url.Join(baseURL, parent, info.Name())
		relPath := strings.TrimPrefix(entryURL, rootPrefix)

		if info.IsDir() {
			if w.excludedPath(relPath) {
				return false, nil
			}
			return true, nil
		}
		if !w.hasWantedExtension(info.Name()) {
			return true, nil
		}
		if w.excludedPath(relPath) {
			return true, nil
		}

		content, err := w.fs.DownloadWithURL(ctx, entryURL)
		if err != nil {
			return false, err
		}

		sum := sha256.Sum256(content)
		f := File{
			Path:    entryURL,
			Content: content,
			Hash:    hex.EncodeToString(sum[:]),
		}
		if err := fn(f); err != nil {
			return false, err
		}
		return true, nil
	}

	return w.fs.Walk(ctx, root, visitor)
}

func (w *Walker) hasWantedExtension(name string) bool {
	if len(w.opts.Extensions) == 0 {
		return true
	}
	ext := path.Ext(name)
	for _, want := range w.opts.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// excludedPath matches a root-relative path against the configured
// exclude patterns, treating a pattern with no glob metacharacter as a
// directory segment matched at any depth.
func (w *Walker) excludedPath(relPath string) bool {
	for _, pattern := range w.opts.ExcludeGlobs {
		if matchesGlob(relPath, pattern) {
			return true
		}
	}
	return false
}
