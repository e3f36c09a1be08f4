package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takeshy/photorelay/internal/media"
	"github.com/takeshy/photorelay/internal/relay"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, s relay.Source) ([]media.Item, []error) {
	t.Helper()
	var items []media.Item
	var errs []error
	for item, err := range s.Scan(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, item)
	}
	return items, errs
}

func relPaths(items []media.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, filepath.ToSlash(it.RelPath))
	}
	sort.Strings(out)
	return out
}

func TestLocalScanPrunesExcludedAndHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), "a")
	writeFile(t, filepath.Join(root, "DCIM", "b.mp4"), "b")
	writeFile(t, filepath.Join(root, "DCIM", "c.gif"), "c")
	writeFile(t, filepath.Join(root, "cache", "c.jpg"), "excluded")
	writeFile(t, filepath.Join(root, "DCIM", "cache", "deep.jpg"), "excluded")
	writeFile(t, filepath.Join(root, ".thumbnails", "t.jpg"), "hidden dir")
	writeFile(t, filepath.Join(root, ".hidden.jpg"), "hidden file")
	writeFile(t, filepath.Join(root, "notes.txt"), "unsupported")

	var visited []string
	s := NewLocal(root,
		WithExclusions([]string{"cache", "Android"}),
		WithOnDir(func(path string) { visited = append(visited, path) }),
	)

	items, errs := collect(t, s)
	require.Empty(t, errs)
	assert.Equal(t, []string{"DCIM/b.mp4", "DCIM/c.gif", "a.jpg"}, relPaths(items))

	for _, dir := range visited {
		assert.NotContains(t, filepath.ToSlash(dir), "cache")
		assert.NotContains(t, filepath.ToSlash(dir), ".thumbnails")
	}
	assert.Equal(t, 2, s.Stats().Dirs)
}

func TestLocalScanClassifiesKinds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.JPG"), "a")
	writeFile(t, filepath.Join(root, "b.mov"), "b")
	writeFile(t, filepath.Join(root, "c.gif"), "c")

	items, errs := collect(t, NewLocal(root))
	require.Empty(t, errs)

	kinds := map[string]media.Kind{}
	for _, it := range items {
		kinds[it.DisplayName] = it.Kind
		assert.Equal(t, media.SourceLocal, it.Source)
		assert.Empty(t, it.Key, "keys are assigned by Identify")
	}
	assert.Equal(t, media.KindPhoto, kinds["a.JPG"])
	assert.Equal(t, media.KindVideo, kinds["b.mov"])
	assert.Equal(t, media.KindAnimation, kinds["c.gif"])
}

func TestLocalScanMissingRoot(t *testing.T) {
	items, errs := collect(t, NewLocal(filepath.Join(t.TempDir(), "missing")))
	assert.Empty(t, items)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], relay.ErrSourceEnumeration)
}

func TestLocalScanStopsWhenConsumerStops(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		writeFile(t, filepath.Join(root, name), name)
	}

	n := 0
	for _, err := range NewLocal(root).Scan(context.Background()) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestLocalScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got int
	for range NewLocal(root).Scan(ctx) {
		got++
	}
	assert.Zero(t, got)
}

func TestLocalIdentifyAndFetch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), "same")
	writeFile(t, filepath.Join(root, "sub", "renamed.jpg"), "same")
	writeFile(t, filepath.Join(root, "other.jpg"), "different")

	s := NewLocal(root)
	ctx := context.Background()

	keyA, err := s.Identify(ctx, media.Item{Locator: filepath.Join(root, "a.jpg")})
	require.NoError(t, err)
	keyB, err := s.Identify(ctx, media.Item{Locator: filepath.Join(root, "sub", "renamed.jpg")})
	require.NoError(t, err)
	keyC, err := s.Identify(ctx, media.Item{Locator: filepath.Join(root, "other.jpg")})
	require.NoError(t, err)

	assert.Equal(t, keyA, keyB)
	assert.NotEqual(t, keyA, keyC)

	_, err = s.Identify(ctx, media.Item{Locator: filepath.Join(root, "gone.jpg")})
	assert.ErrorIs(t, err, relay.ErrItemRead)

	p, err := s.Fetch(ctx, media.Item{Locator: filepath.Join(root, "a.jpg")})
	require.NoError(t, err)
	assert.EqualValues(t, 4, p.Size)
	p.Release()
	assert.FileExists(t, filepath.Join(root, "a.jpg"), "local payloads are never removed")
}

func TestLocalScanFollowsFileSymlinks(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "real.jpg"), "linked photo")
	writeFile(t, filepath.Join(outside, "album", "inner.jpg"), "inner")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), "a")
	if err := os.Symlink(filepath.Join(outside, "real.jpg"), filepath.Join(root, "link.jpg")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "album"), filepath.Join(root, "album")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "gone.jpg"), filepath.Join(root, "broken.jpg")))

	items, errs := collect(t, NewLocal(root))
	assert.Equal(t, []string{"a.jpg", "link.jpg"}, relPaths(items))
	for _, it := range items {
		if it.DisplayName == "link.jpg" {
			assert.EqualValues(t, len("linked photo"), it.Size)
		}
	}

	require.Len(t, errs, 1, "a dangling link is reported, not dropped")
	assert.ErrorIs(t, errs[0], relay.ErrItemRead)
}
