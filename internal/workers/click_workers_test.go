package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	mu      sync.Mutex
	clicks  map[string]int
	err     error
	release chan struct{}
}

func newCountingStore() *countingStore {
	return &countingStore{clicks: make(map[string]int)}
}

func (s *countingStore) IncrementClick(ctx context.Context, code string) error {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks[code]++
	return nil
}

func (s *countingStore) count(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks[code]
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestClickWorkers_RecordsEveryClick(t *testing.T) {
	store := newCountingStore()
	w := StartClickWorkers(store, ClickWorkerConfig{WorkerCount: 4, BufferSize: 500}, quiet)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Record("abc123")
		}()
	}
	wg.Wait()

	require.NoError(t, w.Shutdown(context.Background()))
	assert.Equal(t, 200, store.count("abc123"))
}

func TestClickWorkers_InlineMode(t *testing.T) {
	store := newCountingStore()
	w := StartClickWorkers(store, ClickWorkerConfig{WorkerCount: 0}, quiet)

	w.Record("abc123")
	w.Record("abc123")

	// inline increments are visible as soon as Record returns
	assert.Equal(t, 2, store.count("abc123"))
	assert.NoError(t, w.Shutdown(context.Background()))
}

func TestClickWorkers_DropsWhenBufferFull(t *testing.T) {
	store := newCountingStore()
	store.release = make(chan struct{})
	w := StartClickWorkers(store, ClickWorkerConfig{WorkerCount: 1, BufferSize: 1, IncrementTimeout: 5 * time.Second}, quiet)

	start := time.Now()
	for i := 0; i < 10; i++ {
		w.Record("abc123")
	}
	// Record never waits on the blocked worker
	assert.Less(t, time.Since(start), time.Second)

	close(store.release)
	require.NoError(t, w.Shutdown(context.Background()))

	got := store.count("abc123")
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 2)
}

func TestClickWorkers_ToleratesStoreErrors(t *testing.T) {
	for _, storeErr := range []error{customerrors.ErrLinkNotFound, errors.New("disk on fire")} {
		store := newCountingStore()
		store.err = storeErr
		w := StartClickWorkers(store, ClickWorkerConfig{WorkerCount: 1, BufferSize: 4}, quiet)

		assert.NotPanics(t, func() { w.Record("gone12") })
		require.NoError(t, w.Shutdown(context.Background()))
		assert.Equal(t, 0, store.count("gone12"))
	}
}

func TestClickWorkers_RecordAfterShutdown(t *testing.T) {
	store := newCountingStore()
	w := StartClickWorkers(store, ClickWorkerConfig{WorkerCount: 2, BufferSize: 4}, quiet)

	require.NoError(t, w.Shutdown(context.Background()))
	require.NoError(t, w.Shutdown(context.Background()))

	assert.NotPanics(t, func() { w.Record("abc123") })
	assert.Equal(t, 0, store.count("abc123"))
}

func TestClickWorkers_ShutdownHonoursContext(t *testing.T) {
	store := newCountingStore()
	store.release = make(chan struct{})
	defer close(store.release)
	w := StartClickWorkers(store, ClickWorkerConfig{WorkerCount: 1, BufferSize: 4, IncrementTimeout: 5 * time.Second}, quiet)

	w.Record("abc123")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Shutdown(ctx), context.DeadlineExceeded)
}
