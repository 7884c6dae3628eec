// Package persistence mirrors hub state into the collaborator store without
// ever blocking the hub: writes are queued and applied by a background worker.
package persistence

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
	"github.com/mmuslimabdulj/campus-realtime/internal/observability"
)

const (
	kindConversation = "conversation"
	kindCall         = "call"

	maxRetryDelay = 5 * time.Second
	drainTimeout  = 5 * time.Second
)

// Options tunes the writer
type Options struct {
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration // first retry delay, doubled per attempt
}

type job struct {
	kind string
	conv domain.Conversation
	call domain.CallSession
}

func (j job) key() string {
	if j.kind == kindCall {
		return j.call.ID
	}
	return j.conv.RoomID
}

// Writer applies queued writes to the store in order
type Writer struct {
	store   Store
	log     *slog.Logger
	metrics *observability.Metrics
	opts    Options
	jobs    chan job
	done    chan struct{}
}

// NewWriter creates a writer; call Run to start applying writes
func NewWriter(store Store, log *slog.Logger, metrics *observability.Metrics, opts Options) *Writer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return &Writer{
		store:   store,
		log:     log.With("component", "persistence"),
		metrics: metrics,
		opts:    opts,
		jobs:    make(chan job, opts.QueueSize),
		done:    make(chan struct{}),
	}
}

// SaveConversation queues a conversation write. It never blocks.
func (w *Writer) SaveConversation(conv domain.Conversation) {
	w.enqueue(job{kind: kindConversation, conv: conv.Clone()})
}

// SaveCall queues a call record write. It never blocks.
func (w *Writer) SaveCall(call domain.CallSession) {
	w.enqueue(job{kind: kindCall, call: call})
}

func (w *Writer) enqueue(j job) {
	select {
	case w.jobs <- j:
	default:
		w.metrics.PersistWrites.WithLabelValues(j.kind, "dropped").Inc()
		w.log.Warn("Persistence queue full, dropping write", "kind", j.kind, "key", j.key())
	}
}

// Pending returns the number of queued writes
func (w *Writer) Pending() int {
	return len(w.jobs)
}

// Done is closed once Run has returned
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

// Run applies writes until ctx is cancelled, then drains what is left.
// A write interrupted mid-retry by the cancellation is drained first.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case j := <-w.jobs:
			if !w.apply(ctx, j) {
				w.drain(j)
				return
			}
		}
	}
}

// drain flushes pending and then queued writes with a bounded deadline after shutdown
func (w *Writer) drain(pending ...job) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for _, j := range pending {
		w.settle(ctx, j)
	}
	for {
		select {
		case j := <-w.jobs:
			w.settle(ctx, j)
		default:
			return
		}
	}
}

func (w *Writer) settle(ctx context.Context, j job) {
	if !w.apply(ctx, j) {
		w.metrics.PersistWrites.WithLabelValues(j.kind, "failed").Inc()
		w.log.Error("Persistence write abandoned at shutdown", "kind", j.kind, "key", j.key())
	}
}

// apply writes j, retrying with backoff. It reports false when ctx ended
// before the write succeeded or ran out of attempts.
func (w *Writer) apply(ctx context.Context, j job) bool {
	delay := w.opts.RetryDelay
	for attempt := 1; ; attempt++ {
		err := w.write(ctx, j)
		if err == nil {
			w.metrics.PersistWrites.WithLabelValues(j.kind, "ok").Inc()
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt >= w.opts.MaxAttempts {
			w.metrics.PersistWrites.WithLabelValues(j.kind, "failed").Inc()
			w.log.Error("Persistence write failed", "kind", j.kind, "key", j.key(), "attempts", attempt, "error", err)
			return true
		}

		w.metrics.PersistWrites.WithLabelValues(j.kind, "retry").Inc()
		w.log.Warn("Persistence write failed, retrying", "kind", j.kind, "key", j.key(), "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (w *Writer) write(ctx context.Context, j job) error {
	if j.kind == kindCall {
		return w.store.SaveCall(ctx, j.call)
	}
	return w.store.SaveConversation(ctx, j.conv)
}
