package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReportsChanges(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.xsd")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(a, []byte("<schema/>"), 0o644))

	w, err := New(Config{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{a}))
	assert.Equal(t, []string{a}, w.Files())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) { changes <- changed })
	}()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("<schema></schema>"), 0o644))

	select {
	case changed := <-changes:
		assert.Equal(t, []string{a}, changed)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchReplacesFileSet(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	a := filepath.Join(dir1, "a.xsd")
	b := filepath.Join(dir2, "b.xsd")

	w, err := New(Config{})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch([]string{a}))
	require.NoError(t, w.Watch([]string{b}))
	assert.Equal(t, []string{b}, w.Files())
	assert.Equal(t, map[string]bool{dir2: true}, w.dirs)

	assert.Error(t, w.Watch([]string{filepath.Join(dir1, "missing", "c.xsd")}))
}
