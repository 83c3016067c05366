package preprocessing

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safepath-route-server/routing"
)

func TestWatcherRebuildsAndSwaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unified.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	src := FileSource{Path: path}
	first, err := BuildSnapshot(context.Background(), src, discardLogger())
	require.NoError(t, err)
	store := routing.NewSnapshotStore(first)

	var reloads atomic.Int32
	w, err := NewWatcher(path, 20*time.Millisecond, func(ctx context.Context) error {
		snap, err := BuildSnapshot(ctx, src, discardLogger())
		if err != nil {
			return err
		}
		store.Swap(snap)
		reloads.Add(1)
		return nil
	}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	extra := `Calle 11,50,True,,0,0,0,0,"(-75.5712000, 6.2121000)","(-75.5700000, 6.2125000)"` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV+extra), 0o644))

	require.Eventually(t, func() bool {
		return store.Current().Graph.EdgeCount() == 3
	}, 3*time.Second, 10*time.Millisecond)
	assert.NotEqual(t, first.ID, store.Current().ID)
	assert.Equal(t, 2, first.Graph.EdgeCount(), "old snapshot is untouched")

	// a broken file keeps the current snapshot
	serving := store.Current()
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Same(t, serving, store.Current())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))
}

func TestRearmDropsStaleTick(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	rearm(timer, time.Hour)
	defer timer.Stop()
	select {
	case <-timer.C:
		t.Fatal("tick from before the rearm was delivered")
	case <-time.After(20 * time.Millisecond):
	}

	stopped := time.NewTimer(time.Hour)
	stopped.Stop()
	rearm(stopped, time.Millisecond)
	select {
	case <-stopped.C:
	case <-time.After(time.Second):
		t.Fatal("rearmed timer never fired")
	}
}
