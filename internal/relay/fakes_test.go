package relay

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/takeshy/photorelay/internal/media"
)

// sizedFile creates a sparse file of n bytes
func sizedFile(t *testing.T, dir, name string, n int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(n))
	require.NoError(t, f.Close())
	return path
}

type fakeCompressor struct {
	dir  string
	size int64
	err  error
}

func (c *fakeCompressor) Compress(ctx context.Context, src string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	f, err := os.CreateTemp(c.dir, "compressed-*.jpg")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := f.Truncate(c.size); err != nil {
		return "", err
	}
	return f.Name(), nil
}

type sendCall struct {
	method  string
	path    string
	caption string
}

type fakeMessenger struct {
	mu       sync.Mutex
	calls    []sendCall
	messages []string
	err      error
	onSend   func()
}

func (m *fakeMessenger) record(method, path, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSend != nil {
		m.onSend()
	}
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, sendCall{method: method, path: path, caption: caption})
	return nil
}

func (m *fakeMessenger) SendPhoto(_ context.Context, path, caption string) error {
	return m.record("photo", path, caption)
}

func (m *fakeMessenger) SendVideo(_ context.Context, path, caption string) error {
	return m.record("video", path, caption)
}

func (m *fakeMessenger) SendAnimation(_ context.Context, path, caption string) error {
	return m.record("animation", path, caption)
}

func (m *fakeMessenger) SendDocument(_ context.Context, path, caption string) error {
	return m.record("document", path, caption)
}

func (m *fakeMessenger) SendMessage(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
	return nil
}

func (m *fakeMessenger) sent() []sendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sendCall(nil), m.calls...)
}

type fakeLedger struct {
	mu        sync.Mutex
	entries   map[string]string
	recordErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]string)}
}

func (l *fakeLedger) IsRecorded(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[key]
	return ok, nil
}

func (l *fakeLedger) Record(_ context.Context, key, label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recordErr != nil {
		return l.recordErr
	}
	if _, ok := l.entries[key]; !ok {
		l.entries[key] = label
	}
	return nil
}

func (l *fakeLedger) label(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.entries[key]
	return v, ok
}

// fakeSource serves files already on disk. Keys are the display names.
type fakeSource struct {
	items    []media.Item
	scanErr  error
	fetchErr error
	stall    bool
	onFetch  func()
	released int
	mu       sync.Mutex
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Scan(ctx context.Context) iter.Seq2[media.Item, error] {
	return func(yield func(media.Item, error) bool) {
		for _, it := range s.items {
			if !yield(it, nil) {
				return
			}
		}
		if s.scanErr != nil {
			yield(media.Item{}, s.scanErr)
		}
	}
}

func (s *fakeSource) Identify(_ context.Context, item media.Item) (string, error) {
	if item.DisplayName == "" {
		return "", errors.New("no name")
	}
	return "key-" + item.DisplayName, nil
}

func (s *fakeSource) Fetch(ctx context.Context, item media.Item) (*Payload, error) {
	if s.onFetch != nil {
		s.onFetch()
	}
	if s.stall {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", ErrDownload, ctx.Err())
	}
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	info, err := os.Stat(item.Locator)
	if err != nil {
		return nil, err
	}
	return NewPayload(item.Locator, info.Size(), func() {
		s.mu.Lock()
		s.released++
		s.mu.Unlock()
	}), nil
}

func (s *fakeSource) releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func fileItem(path string, kind media.Kind) media.Item {
	return media.Item{
		DisplayName: filepath.Base(path),
		Kind:        kind,
		Locator:     path,
		Source:      "fake",
	}
}
