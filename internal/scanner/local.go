// Package scanner enumerates media items from the local filesystem and from
// a cloud photo library.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/takeshy/photorelay/internal/fileutil"
	"github.com/takeshy/photorelay/internal/media"
	"github.com/takeshy/photorelay/internal/relay"
)

var (
	errStopWalk   = errors.New("stop walk")
	errNotRegular = errors.New("not a regular file")
)

// Stats counts what the last local scan visited
type Stats struct {
	Dirs  int
	Files int
}

// LocalOption configures a Local scanner
type LocalOption func(*Local)

// WithExclusions sets the directory-name tokens that are never traversed
func WithExclusions(tokens []string) LocalOption {
	return func(l *Local) {
		l.exclusions = fileutil.NewExclusionSet(tokens)
	}
}

// WithOnDir registers a hook called for every directory entered
func WithOnDir(fn func(path string)) LocalOption {
	return func(l *Local) {
		l.onDir = fn
	}
}

// Local walks a directory tree and identifies files by content hash
type Local struct {
	root       string
	exclusions fileutil.ExclusionSet
	onDir      func(path string)
	stats      Stats
}

// NewLocal creates a scanner rooted at root
func NewLocal(root string, opts ...LocalOption) *Local {
	l := &Local{
		root:       filepath.Clean(root),
		exclusions: fileutil.NewExclusionSet(nil),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Name() string { return media.SourceLocal }

// Root returns the scan root
func (l *Local) Root() string { return l.root }

// Stats returns the counters of the most recent scan
func (l *Local) Stats() Stats { return l.stats }

// Scan walks the tree. Excluded and hidden directories are pruned before
// descent; hidden files and unsupported extensions are dropped silently.
func (l *Local) Scan(ctx context.Context) iter.Seq2[media.Item, error] {
	return func(yield func(media.Item, error) bool) {
		l.stats = Stats{}

		info, err := os.Stat(l.root)
		if err != nil {
			yield(media.Item{}, fmt.Errorf("%w: root %s: %v", relay.ErrSourceEnumeration, l.root, err))
			return
		}
		if !info.IsDir() {
			yield(media.Item{}, fmt.Errorf("%w: root %s is not a directory", relay.ErrSourceEnumeration, l.root))
			return
		}

		err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if err != nil {
				if path == l.root {
					return err
				}
				item := media.Item{Locator: path, DisplayName: filepath.Base(path), Source: media.SourceLocal}
				if !yield(item, fmt.Errorf("%w: %s: %v", relay.ErrItemRead, path, err)) {
					return errStopWalk
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			rel, relErr := filepath.Rel(l.root, path)
			if relErr != nil {
				rel = path
			}

			if d.IsDir() {
				if path != l.root && (l.exclusions.ExcludesName(d.Name()) || l.exclusions.ExcludesPath(rel)) {
					return filepath.SkipDir
				}
				l.stats.Dirs++
				if l.onDir != nil {
					l.onDir(path)
				}
				return nil
			}

			l.stats.Files++
			if fileutil.IsHidden(d.Name()) {
				return nil
			}
			kind := media.KindFromExt(d.Name())
			if kind == media.KindUnsupported {
				return nil
			}

			fi, err := fileInfo(path, d)
			if errors.Is(err, errNotRegular) {
				return nil
			}
			if err != nil {
				item := media.Item{Locator: path, DisplayName: d.Name(), Kind: kind, Source: media.SourceLocal, RelPath: rel}
				if !yield(item, fmt.Errorf("%w: %s: %v", relay.ErrItemRead, path, err)) {
					return errStopWalk
				}
				return nil
			}

			item := media.Item{
				DisplayName: d.Name(),
				Kind:        kind,
				Size:        fi.Size(),
				Locator:     path,
				MimeType:    media.MimeTypeFromExt(d.Name()),
				Source:      media.SourceLocal,
				RelPath:     rel,
			}
			if !yield(item, nil) {
				return errStopWalk
			}
			return nil
		})

		if err != nil && !errors.Is(err, errStopWalk) && ctx.Err() == nil {
			yield(media.Item{}, fmt.Errorf("%w: walking %s: %v", relay.ErrSourceEnumeration, l.root, err))
		}
	}
}

// fileInfo resolves symlinks so a linked media file is relayed like the file
// it points at. Linked directories are not descended into.
func fileInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink == 0 {
		if !d.Type().IsRegular() {
			return nil, errNotRegular
		}
		return d.Info()
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, errNotRegular
	}
	return fi, nil
}

// Identify hashes the file content
func (l *Local) Identify(ctx context.Context, item media.Item) (string, error) {
	sum, err := fileutil.CalculateChecksum(item.Locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", relay.ErrItemRead, err)
	}
	return sum, nil
}

// Fetch stats the file in place; nothing is copied
func (l *Local) Fetch(ctx context.Context, item media.Item) (*relay.Payload, error) {
	info, err := os.Stat(item.Locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", relay.ErrItemRead, err)
	}
	return relay.NewPayload(item.Locator, info.Size(), nil), nil
}
