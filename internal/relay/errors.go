package relay

import (
	"errors"
	"fmt"

	"github.com/takeshy/photorelay/internal/media"
)

// Sentinel errors. Only ErrAuth is fatal; everything else is scoped to a
// cycle or a single item.
var (
	// ErrAuth is returned when the credential provider cannot produce a token
	ErrAuth = errors.New("authentication failed")

	// ErrSourceEnumeration ends the current scan early
	ErrSourceEnumeration = errors.New("source enumeration failed")

	// ErrItemRead is returned when an item's bytes cannot be read
	ErrItemRead = errors.New("item unreadable")

	// ErrDownload is returned when a remote item cannot be fetched to disk
	ErrDownload = errors.New("download failed")

	// ErrSizeExceeded marks an item over the configured size limit
	ErrSizeExceeded = errors.New("size limit exceeded")

	// ErrCompression is returned when a photo cannot be re-encoded
	ErrCompression = errors.New("compression failed")

	// ErrTransport is returned when the messaging endpoint rejects or fails a send
	ErrTransport = errors.New("transport failed")

	// ErrLedger is returned when the ledger cannot be read or written
	ErrLedger = errors.New("ledger unavailable")
)

// ItemError represents a failure while processing one item
type ItemError struct {
	Item  media.Item
	Stage string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s error for %s: %v", e.Stage, e.Item.DisplayName, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
