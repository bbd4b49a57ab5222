package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalesces(t *testing.T) {
	var calls atomic.Int32
	done := make(chan string, 4)
	db := newDebouncer(30*time.Millisecond, func(p string) {
		calls.Add(1)
		done <- p
	})
	defer db.stop()

	for i := 0; i < 5; i++ {
		db.trigger("a.stl")
		time.Sleep(5 * time.Millisecond)
	}
	db.trigger("b.stl")

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case p := <-done:
			got[p] = true
		case <-time.After(2 * time.Second):
			t.Fatal("debounced callback not called")
		}
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, got["a.stl"] && got["b.stl"])
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	db := newDebouncer(20*time.Millisecond, func(string) { calls.Add(1) })
	db.trigger("a.stl")
	db.stop()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestRunReportsSTLChanges(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	var mu sync.Mutex
	seen := map[string]bool{}
	changed := make(chan struct{}, 8)
	w := &Watcher{
		Debounce:  20 * time.Millisecond,
		Recursive: true,
		OnChange: func(p string) {
			mu.Lock()
			seen[filepath.Base(p)] = true
			mu.Unlock()
			changed <- struct{}{}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, dir) }()
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "part.stl"), []byte("solid x\nendsolid x\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
	cancel()
	require.NoError(t, <-errc)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen["part.stl"])
	assert.False(t, seen["notes.txt"])
}

func TestRunMissingDir(t *testing.T) {
	w := &Watcher{}
	err := w.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
