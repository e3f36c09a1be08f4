package relay

import (
	"context"
	"iter"

	"github.com/takeshy/photorelay/internal/media"
)

// Source enumerates and materializes media items from one origin
type Source interface {
	// Name identifies the source in logs and summaries
	Name() string

	// Scan re-enumerates the source from scratch. Errors wrapping
	// ErrSourceEnumeration end the sequence; other errors are per item.
	Scan(ctx context.Context) iter.Seq2[media.Item, error]

	// Identify returns the item's stable content key
	Identify(ctx context.Context, item media.Item) (string, error)

	// Fetch makes the item's bytes available on local disk
	Fetch(ctx context.Context, item media.Item) (*Payload, error)
}

// Ledger is the dedup set consulted and updated by the pipeline
type Ledger interface {
	IsRecorded(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key, label string) error
}

// Payload is an item's bytes on local disk. Release removes anything the
// source created to produce it.
type Payload struct {
	Path    string
	Size    int64
	release func()
}

// NewPayload returns a payload whose Release calls release (which may be nil)
func NewPayload(path string, size int64, release func()) *Payload {
	return &Payload{Path: path, Size: size, release: release}
}

// Release frees temporary resources. Safe to call more than once.
func (p *Payload) Release() {
	if p == nil || p.release == nil {
		return
	}
	p.release()
	p.release = nil
}
