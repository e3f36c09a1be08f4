package imaging

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 3), B: uint8(x ^ y), A: uint8(128 + x%128)})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestCompressPNGToJPEG(t *testing.T) {
	src := filepath.Join(t.TempDir(), "shot.png")
	writePNG(t, src, 64, 48)

	out := t.TempDir()
	c := NewJPEGCompressor(0, out)
	assert.Equal(t, DefaultQuality, c.Quality)

	dst, err := c.Compress(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, out, filepath.Dir(dst))
	assert.Contains(t, filepath.Base(dst), "shot.")

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestCompressUndecodable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.heic")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o644))

	out := t.TempDir()
	_, err := NewJPEGCompressor(85, out).Compress(context.Background(), src)
	require.Error(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing left behind on failure")
}

func TestCompressCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewJPEGCompressor(85, t.TempDir()).Compress(ctx, "whatever.png")
	assert.ErrorIs(t, err, context.Canceled)
}
