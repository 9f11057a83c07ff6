package recording

import (
	"context"
	"sync"
	"time"

	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

const writeTimeout = 30 * time.Second

// writer is the single goroutine that saves library snapshots. A backlog is
// collapsed to the newest snapshot, so writes complete in enqueue order.
type writer struct {
	store RecordingStore

	mu      sync.Mutex
	cond    *sync.Cond
	latest  []model.RecordingEntry
	dirty   bool
	queued  uint64
	written uint64
	closed  bool

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newWriter(store RecordingStore) *writer {
	w := &writer{
		store: store,
		kick:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// Enqueue schedules a full-library write.
func (w *writer) Enqueue(entries []model.RecordingEntry) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		logger.Warn("Library write dropped after close", logger.Int("entries", len(entries)))
		return
	}
	w.latest = entries
	w.dirty = true
	w.queued++
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Wait blocks until everything enqueued so far has been written.
func (w *writer) Wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	target := w.queued
	for w.written < target {
		w.cond.Wait()
	}
}

// Close flushes pending writes and stops the goroutine.
func (w *writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	close(w.stop)
	<-w.done
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.kick:
			w.flush()
		case <-w.stop:
			w.flush()
			return
		}
	}
}

func (w *writer) flush() {
	for {
		w.mu.Lock()
		if !w.dirty {
			w.mu.Unlock()
			return
		}
		snapshot := w.latest
		seq := w.queued
		w.latest = nil
		w.dirty = false
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.store.SaveAll(ctx, snapshot); err != nil {
			logger.Error("Failed to persist recordings", logger.Int("entries", len(snapshot)), logger.ErrorField(err))
		}
		cancel()

		w.mu.Lock()
		w.written = seq
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}
