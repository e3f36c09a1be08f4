package relay

import (
	"context"
	"fmt"
	"os"

	"github.com/takeshy/photorelay/internal/media"
)

// Action is the routing decision for one item
type Action int

const (
	ActionSkip Action = iota
	ActionSendDirect
	ActionSendCompressed
	ActionSendDocument
)

func (a Action) String() string {
	switch a {
	case ActionSendDirect:
		return "direct"
	case ActionSendCompressed:
		return "compressed"
	case ActionSendDocument:
		return "document"
	default:
		return "skip"
	}
}

// Skip reasons
const (
	SkipOversize    = "oversize"
	SkipUnsupported = "unsupported"
)

const mib = 1024 * 1024

// RouterConfig holds the size ceilings the router enforces
type RouterConfig struct {
	MaxFileSize        int64 // hard limit, larger items are skipped
	PhotoCeiling       int64 // messaging provider photo limit
	PhotoCompressAbove int64 // photos larger than this are re-encoded first
}

// DefaultRouterConfig returns the Telegram bot limits
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxFileSize:        50 * mib,
		PhotoCeiling:       10 * mib,
		PhotoCompressAbove: 9*mib + mib/2,
	}
}

// Compressor re-encodes a photo into a smaller file and returns its path.
// The caller owns the returned file.
type Compressor interface {
	Compress(ctx context.Context, src string) (string, error)
}

// Plan is how one item will be transmitted
type Plan struct {
	Action Action
	Kind   media.Kind // upload path for direct and compressed sends
	Path   string     // file to send
	Reason string     // skip reason, or why a photo went out as a document
	Err    error      // ErrSizeExceeded for oversize skips, ErrCompression on downgrade

	release func()
}

// Release removes any file the router created for this plan
func (p *Plan) Release() {
	if p.release == nil {
		return
	}
	p.release()
	p.release = nil
}

// Router decides per-item upload strategy
type Router struct {
	cfg        RouterConfig
	compressor Compressor
}

// NewRouter creates a router. A nil compressor downgrades every oversized
// photo to a document send.
func NewRouter(cfg RouterConfig, compressor Compressor) *Router {
	return &Router{cfg: cfg, compressor: compressor}
}

// Route applies the size and format policy to an item whose bytes are at payload
func (r *Router) Route(ctx context.Context, item media.Item, payload *Payload) Plan {
	size := payload.Size

	if r.cfg.MaxFileSize > 0 && size > r.cfg.MaxFileSize {
		return Plan{
			Action: ActionSkip,
			Reason: SkipOversize,
			Err:    fmt.Errorf("%w: %.2fMB over %.2fMB", ErrSizeExceeded, megabytes(size), megabytes(r.cfg.MaxFileSize)),
		}
	}

	switch item.Kind {
	case media.KindAnimation:
		return Plan{Action: ActionSendDirect, Kind: media.KindAnimation, Path: payload.Path}

	case media.KindPhoto:
		if r.cfg.PhotoCompressAbove > 0 && size > r.cfg.PhotoCompressAbove {
			return r.routeLargePhoto(ctx, payload)
		}
		return Plan{Action: ActionSendDirect, Kind: media.KindPhoto, Path: payload.Path}

	case media.KindVideo:
		return Plan{Action: ActionSendDirect, Kind: media.KindVideo, Path: payload.Path}
	}

	return Plan{Action: ActionSkip, Reason: SkipUnsupported}
}

func (r *Router) routeLargePhoto(ctx context.Context, payload *Payload) Plan {
	asDocument := func(reason string, err error) Plan {
		return Plan{Action: ActionSendDocument, Path: payload.Path, Reason: reason, Err: err}
	}

	if r.compressor == nil {
		return asDocument("no compressor available", fmt.Errorf("%w: no compressor configured", ErrCompression))
	}

	out, err := r.compressor.Compress(ctx, payload.Path)
	if err != nil {
		return asDocument("compression failed", fmt.Errorf("%w: %v", ErrCompression, err))
	}
	release := func() { os.Remove(out) }

	info, err := os.Stat(out)
	if err != nil {
		release()
		return asDocument("compressed file unreadable", fmt.Errorf("%w: %v", ErrCompression, err))
	}

	if r.cfg.PhotoCeiling > 0 && info.Size() >= r.cfg.PhotoCeiling {
		release()
		return asDocument(fmt.Sprintf("still %.2fMB after compression", megabytes(info.Size())), nil)
	}

	return Plan{
		Action:  ActionSendCompressed,
		Kind:    media.KindPhoto,
		Path:    out,
		Reason:  fmt.Sprintf("compressed to %.2fMB", megabytes(info.Size())),
		release: release,
	}
}

func megabytes(n int64) float64 {
	return float64(n) / mib
}
