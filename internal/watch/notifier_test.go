package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitWake(t *testing.T, n *Notifier) {
	t.Helper()
	select {
	case <-n.Wake():
	case <-time.After(5 * time.Second):
		t.Fatal("no wake signal")
	}
}

func TestNotifierSignalsOnNewFile(t *testing.T) {
	dir := t.TempDir()
	n, err := NewNotifier(WithDebounce(20 * time.Millisecond))
	require.NoError(t, err)
	defer n.Close()

	n.Add(dir)
	n.Add(dir)
	assert.Equal(t, 1, n.Len())
	n.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644))
	waitWake(t, n)
}

func TestNotifierCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	n, err := NewNotifier(WithDebounce(50 * time.Millisecond))
	require.NoError(t, err)
	defer n.Close()
	n.Add(dir)
	n.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "f"+string(rune('a'+i))+".jpg"), []byte("x"), 0o644))
	}
	waitWake(t, n)

	select {
	case <-n.Wake():
		t.Fatal("burst produced more than one signal")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNotifierFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	n, err := NewNotifier(WithDebounce(20*time.Millisecond), WithFilter(func(p string) bool {
		return strings.HasSuffix(p, "cache")
	}))
	require.NoError(t, err)
	defer n.Close()
	n.Add(root)
	n.Start()

	require.NoError(t, os.Mkdir(filepath.Join(root, "DCIM"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "cache"), 0o755))
	waitWake(t, n)

	assert.Eventually(t, func() bool { return n.Len() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifierCloseIdempotent(t *testing.T) {
	n, err := NewNotifier()
	require.NoError(t, err)
	n.Start()
	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
	n.Add(t.TempDir())
	assert.Equal(t, 0, n.Len())
}
