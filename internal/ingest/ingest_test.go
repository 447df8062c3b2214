package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.pdf"))
	writeFile(t, filepath.Join(root, "a.DOCX"))
	writeFile(t, filepath.Join(root, "notes.md"))
	writeFile(t, filepath.Join(root, "scans", "page.png"))
	writeFile(t, filepath.Join(root, ".cache", "hidden.pdf"))
	writeFile(t, filepath.Join(root, ".draft.txt"))

	paths, failed, stats, err := ScanDirectory(root, ScanOptions{SkipHidden: true})
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, []string{
		filepath.Join(root, "a.DOCX"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "scans", "page.png"),
	}, paths)
	assert.EqualValues(t, 3, stats.Matched)

	paths, _, _, err = ScanDirectory(root, ScanOptions{Exts: []string{".PDF"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, ".cache", "hidden.pdf"),
		filepath.Join(root, "b.pdf"),
	}, paths)
}

func TestScanDirectory_RequiresRoot(t *testing.T) {
	_, _, _, err := ScanDirectory("  ", ScanOptions{})
	assert.Error(t, err)
}

func TestScanDirectory_MissingRoot(t *testing.T) {
	paths, failed, stats, err := ScanDirectory(filepath.Join(t.TempDir(), "nope"), ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, paths)
	require.Len(t, failed, 1)
	assert.EqualValues(t, 1, stats.Failed)
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	next := func() string {
		t.Helper()
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watch event")
			return ""
		}
	}
	assert.Equal(t, filepath.Join(root, "existing.pdf"), next())

	writeFile(t, filepath.Join(root, "ignored.md"))
	writeFile(t, filepath.Join(root, "resume.txt"))
	assert.Equal(t, filepath.Join(root, "resume.txt"), next())

	cancel()
	for range events {
	}
}

func TestWatch_NoRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
