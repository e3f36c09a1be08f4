package scanner

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/takeshy/photorelay/internal/media"
	"github.com/takeshy/photorelay/internal/photos"
	"github.com/takeshy/photorelay/internal/relay"
)

// CloudClient is the subset of the photos client the cloud scanner uses
type CloudClient interface {
	ListMediaItems(ctx context.Context, pageToken string) (*photos.ListMediaItemsResponse, error)
	Download(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

// Cloud pages through a photo library. Items are keyed by the provider ID
// and downloaded to a private temp directory only when they are new.
type Cloud struct {
	client  CloudClient
	tempDir string
}

// NewCloud creates a cloud scanner. Downloads go under tempDir (os.TempDir
// when empty).
func NewCloud(client CloudClient, tempDir string) *Cloud {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Cloud{client: client, tempDir: tempDir}
}

func (c *Cloud) Name() string { return media.SourceCloud }

// Scan lists every page until the provider stops returning a continuation
// token. A page failure ends the scan; items already yielded stand.
func (c *Cloud) Scan(ctx context.Context) iter.Seq2[media.Item, error] {
	return func(yield func(media.Item, error) bool) {
		pageToken := ""
		for {
			if ctx.Err() != nil {
				return
			}

			resp, err := c.client.ListMediaItems(ctx, pageToken)
			if err != nil {
				if ctx.Err() == nil {
					yield(media.Item{}, fmt.Errorf("%w: %v", relay.ErrSourceEnumeration, err))
				}
				return
			}

			for _, mi := range resp.MediaItems {
				if !yield(itemFromRemote(mi), nil) {
					return
				}
			}

			if resp.NextPageToken == "" {
				return
			}
			pageToken = resp.NextPageToken
		}
	}
}

func itemFromRemote(mi photos.MediaItem) media.Item {
	name := mi.Filename
	if name == "" {
		name = "unknown"
	}
	return media.Item{
		Key:         mi.ID,
		DisplayName: name,
		Kind:        media.KindFromMIME(mi.MimeType),
		Locator:     photos.DownloadURL(mi),
		MimeType:    mi.MimeType,
		Source:      media.SourceCloud,
	}
}

// Identify returns the provider-assigned ID
func (c *Cloud) Identify(ctx context.Context, item media.Item) (string, error) {
	if item.Key == "" {
		return "", fmt.Errorf("%w: %s has no remote id", relay.ErrItemRead, item.DisplayName)
	}
	return item.Key, nil
}

// Fetch downloads the item into its own temp directory, keeping the original
// file name so the chat shows it. The directory is removed on failure and by
// Payload.Release.
func (c *Cloud) Fetch(ctx context.Context, item media.Item) (*relay.Payload, error) {
	dir := filepath.Join(c.tempDir, "photorelay-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", relay.ErrDownload, err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, safeName(item.DisplayName))
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", relay.ErrDownload, err)
	}

	n, err := c.client.Download(ctx, item.Locator, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %s: %v", relay.ErrDownload, item.DisplayName, err)
	}

	return relay.NewPayload(path, n, cleanup), nil
}

func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "media"
	}
	return name
}
