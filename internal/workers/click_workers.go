package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
)

// ClickIncrementer is the slice of the link store the workers need.
type ClickIncrementer interface {
	IncrementClick(ctx context.Context, code string) error
}

// ClickWorkerConfig sizes the pool.
// WorkerCount 0 disables the queue: Record then increments inline.
type ClickWorkerConfig struct {
	WorkerCount      int
	BufferSize       int
	IncrementTimeout time.Duration
}

// ClickEvent is a single successful resolution waiting to be counted.
type ClickEvent struct {
	Code      string
	Timestamp time.Time
}

// ClickWorkers records clicks off the redirect path. Events are persisted
// through the store's atomic increment; dropping one only loses analytics.
type ClickWorkers struct {
	store   ClickIncrementer
	cfg     ClickWorkerConfig
	logger  *slog.Logger
	events  chan ClickEvent
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// StartClickWorkers launches cfg.WorkerCount goroutines draining a buffered channel.
func StartClickWorkers(store ClickIncrementer, cfg ClickWorkerConfig, logger *slog.Logger) *ClickWorkers {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IncrementTimeout <= 0 {
		cfg.IncrementTimeout = 2 * time.Second
	}

	w := &ClickWorkers{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
	if cfg.WorkerCount <= 0 {
		logger.Info("click workers disabled, recording clicks inline")
		return w
	}

	w.events = make(chan ClickEvent, cfg.BufferSize)
	logger.Info("starting click workers", "workers", cfg.WorkerCount, "buffer", cfg.BufferSize)
	for i := 0; i < cfg.WorkerCount; i++ {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Record enqueues a click without blocking. A full buffer drops the event.
func (w *ClickWorkers) Record(code string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		w.logger.Warn("click workers stopped, dropping click", "code", code)
		return
	}

	event := ClickEvent{Code: code, Timestamp: time.Now()}
	if w.events == nil {
		w.process(event)
		return
	}

	select {
	case w.events <- event:
	default:
		w.logger.Warn("click buffer full, dropping click", "code", code, "buffer", cap(w.events))
	}
}

// Shutdown stops intake and waits until queued clicks are persisted or ctx expires.
func (w *ClickWorkers) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.events != nil {
		close(w.events)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("click workers stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *ClickWorkers) run() {
	defer w.wg.Done()
	for event := range w.events {
		w.process(event)
	}
}

// process runs on a context detached from the originating request.
func (w *ClickWorkers) process(event ClickEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.IncrementTimeout)
	defer cancel()

	err := w.store.IncrementClick(ctx, event.Code)
	switch {
	case err == nil:
	case errors.Is(err, customerrors.ErrLinkNotFound):
		// deleted between lookup and increment: no phantom click
		w.logger.Debug("click for deleted link ignored", "code", event.Code)
	default:
		failure := customerrors.ErrClickRecordingFailed{Code: event.Code, Reason: err.Error()}
		w.logger.Error("failed to record click", "error", failure.Error(), "queued_for", time.Since(event.Timestamp))
	}
}
