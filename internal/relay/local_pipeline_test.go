package relay_test

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takeshy/photorelay/internal/imaging"
	"github.com/takeshy/photorelay/internal/ledger"
	"github.com/takeshy/photorelay/internal/relay"
	"github.com/takeshy/photorelay/internal/scanner"
)

type chat struct {
	mu     sync.Mutex
	files  []string
	onSend func(path string)
}

func (c *chat) send(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onSend != nil {
		c.onSend(path)
	}
	c.files = append(c.files, filepath.Base(path))
	return nil
}

func (c *chat) SendPhoto(_ context.Context, path, _ string) error     { return c.send(path) }
func (c *chat) SendVideo(_ context.Context, path, _ string) error     { return c.send(path) }
func (c *chat) SendAnimation(_ context.Context, path, _ string) error { return c.send(path) }
func (c *chat) SendDocument(_ context.Context, path, _ string) error  { return c.send(path) }
func (c *chat) SendMessage(context.Context, string) error             { return nil }

func writeSized(t *testing.T, path string, n int64, fill byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data := make([]byte, n)
	for i := range data {
		data[i] = fill
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLocalTreeRelayedOnce(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "a.jpg"), 3*1024*1024, 'a')
	writeSized(t, filepath.Join(root, "b.mp4"), 60*1024*1024, 'b')
	writeSized(t, filepath.Join(root, "cache", "c.jpg"), 1024, 'c')

	l, err := ledger.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer l.Close()

	out := &chat{}
	cfg := relay.DefaultPipelineConfig()
	cfg.ItemPause = 0
	p := relay.NewPipeline(
		scanner.NewLocal(root, scanner.WithExclusions([]string{"cache"})),
		l,
		relay.NewRouter(relay.DefaultRouterConfig(), nil),
		relay.NewUploader(out),
		cfg,
	)

	ctx := context.Background()
	first, err := p.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Seen)
	assert.Equal(t, 1, first.Uploaded)
	assert.Equal(t, 1, first.SkippedOversize)
	assert.Equal(t, []string{"a.jpg"}, out.files)

	entries, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	labels := []string{entries[0].Label, entries[1].Label}
	assert.ElementsMatch(t, []string{"a.jpg", "b.mp4" + ledger.SkippedSizeSuffix}, labels)

	second, err := p.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second.AlreadyRecorded)
	assert.Zero(t, second.Uploaded)
	assert.Len(t, out.files, 1, "second cycle uploads nothing")
}

func TestRenamedFileIsNotResent(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "IMG_1.jpg"), 2048, 'x')

	l, err := ledger.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer l.Close()

	out := &chat{}
	cfg := relay.DefaultPipelineConfig()
	cfg.ItemPause = 0
	p := relay.NewPipeline(scanner.NewLocal(root), l, relay.NewRouter(relay.DefaultRouterConfig(), nil), relay.NewUploader(out), cfg)

	_, err = p.RunCycle(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Rename(filepath.Join(root, "IMG_1.jpg"), filepath.Join(root, "holiday.jpg")))
	summary, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlreadyRecorded)
	assert.Len(t, out.files, 1)
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 8), B: uint8(x ^ y), A: 200})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestCancelDuringCompressedSendLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"))
	writePNG(t, filepath.Join(root, "b.png"))
	tmp := t.TempDir()

	l, err := ledger.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sentPaths []string
	out := &chat{onSend: func(path string) {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, "compressed copy exists while sending")
		sentPaths = append(sentPaths, path)
		cancel()
	}}

	rc := relay.RouterConfig{MaxFileSize: 50 * 1024 * 1024, PhotoCeiling: 10 * 1024 * 1024, PhotoCompressAbove: 1}
	cfg := relay.DefaultPipelineConfig()
	cfg.ItemPause = 0
	p := relay.NewPipeline(
		scanner.NewLocal(root),
		l,
		relay.NewRouter(rc, imaging.NewJPEGCompressor(0, tmp)),
		relay.NewUploader(out),
		cfg,
	)

	summary, err := p.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, summary.Compressed)

	require.Len(t, sentPaths, 1)
	assert.Equal(t, tmp, filepath.Dir(sentPaths[0]))

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left, "no compressed copies remain after cancellation")

	n, err := l.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
