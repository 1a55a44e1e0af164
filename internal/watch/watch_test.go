package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lburgazzoli/kpipe/internal/watch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func start(t *testing.T, dir string, fn func(context.Context) error) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	ready := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- watch.Run(ctx, watch.Options{Dir: dir, Debounce: 50 * time.Millisecond, Ready: ready}, fn)
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("watcher did not start")
	}

	return cancel, done
}

func TestRun(t *testing.T) {
	t.Run("runs once initially and once per burst of changes", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "flux"), 0o755))

		var calls atomic.Int32

		cancel, done := start(t, dir, func(context.Context) error {
			calls.Add(1)
			return nil
		})

		assert.Equal(t, int32(1), calls.Load())

		for i := range 5 {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "flux", "values.yaml"), []byte{byte('a' + i)}, 0o600))
		}

		assert.Eventually(t, func() bool { return calls.Load() == 2 }, 5*time.Second, 10*time.Millisecond)

		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, int32(2), calls.Load())

		cancel()
		require.NoError(t, <-done)
	})

	t.Run("ignores hidden files and keeps running after errors", func(t *testing.T) {
		dir := t.TempDir()

		var calls atomic.Int32

		cancel, done := start(t, dir, func(context.Context) error {
			calls.Add(1)
			return errors.New("boom")
		})

		require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o600))
		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, int32(1), calls.Load())

		require.NoError(t, os.WriteFile(filepath.Join(dir, "values.yaml"), []byte("x"), 0o600))
		assert.Eventually(t, func() bool { return calls.Load() == 2 }, 5*time.Second, 10*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
	})

	t.Run("fails on a missing directory", func(t *testing.T) {
		err := watch.Run(t.Context(), watch.Options{Dir: filepath.Join(t.TempDir(), "missing")}, func(context.Context) error {
			return nil
		})
		require.Error(t, err)
	})
}
