// Package imaging re-encodes oversized photos as baseline JPEG.
package imaging

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality used for recompression
const DefaultQuality = 85

// JPEGCompressor writes a flattened JPEG copy of a photo into TempDir
type JPEGCompressor struct {
	Quality int
	TempDir string
}

// NewJPEGCompressor creates a compressor. quality <= 0 selects DefaultQuality.
func NewJPEGCompressor(quality int, tempDir string) *JPEGCompressor {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &JPEGCompressor{Quality: quality, TempDir: tempDir}
}

// Compress decodes src and writes it as JPEG. The returned file is named
// after src so it keeps a readable name in the chat; the caller removes it.
func (c *JPEGCompressor) Compress(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", filepath.Base(src), err)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst := filepath.Join(c.TempDir, fmt.Sprintf("%s.%s.compressed.jpg", base, uuid.NewString()[:8]))

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}

	err = jpeg.Encode(out, flatten(img), &jpeg.Options{Quality: c.Quality})
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return dst, nil
}

// flatten composites images that may carry transparency onto white so the
// JPEG has no black holes where alpha used to be
func flatten(img image.Image) image.Image {
	switch img.(type) {
	case *image.YCbCr, *image.Gray, *image.CMYK:
		return img
	}

	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgba, b, img, b.Min, draw.Over)
	return rgba
}
