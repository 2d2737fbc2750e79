package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type ProcessorQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// base is the parent of every job context; cancelled when shutdown runs out of time.
	base   context.Context
	cancel context.CancelFunc

	// pending tracks overflow jobs still waiting for buffer space.
	pending sync.WaitGroup
	// inflight tracks every accepted job until its handler returns.
	inflight sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(h Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		handler: h,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	defer q.inflight.Done()
	start := time.Now()
	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	err := q.handler.Process(ctx, job)
	cancel()

	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "item_id", job.ItemID, "duration_ms", time.Since(start).Milliseconds(), "error", err)
	} else {
		q.logger.Info("processed item successfully", "worker_id", workerID, "item_id", job.ItemID, "duration_ms", time.Since(start).Milliseconds())
	}
}

// Enqueue never blocks the caller. When the buffer is full the job is handed to
// a goroutine that waits for space; concurrency stays bounded by the workers.
func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "item_id", job.ItemID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	q.inflight.Add(1)
	select {
	case q.ch <- job:
		q.logger.Debug("queued item for processing", "item_id", job.ItemID, "filename", job.Filename)
	default:
		q.logger.Warn("queue full, deferring job", "item_id", job.ItemID)
		q.pending.Add(1)
		go func() {
			defer q.pending.Done()
			select {
			case q.ch <- job:
			case <-q.base.Done():
				// run inline against the cancelled context so the job still settles
				q.run(0, job)
			}
		}()
	}
	return nil
}

// Wait blocks until every accepted job has finished or ctx is done.
func (q *ProcessorQueue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() { defer close(done); q.inflight.Wait() }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and drains the queue. If ctx ends first, running and
// queued jobs are cancelled and Shutdown returns once workers exit.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		q.logger.Warn("shutdown interrupted by context, cancelling jobs")
		q.cancel()
	})
	defer stop()

	// no sender may be left when the channel closes
	q.pending.Wait()
	close(q.ch)
	q.wg.Wait()
	q.cancel()
	q.logger.Info("queue drained, shutdown complete")
}
