package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/guidify/internal/metrics"
)

// WriteBehind is a bounded worker pool for fire-and-forget persistence.
// A failed job is logged and counted; it never reaches the caller.
type WriteBehind struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// Enqueue holds the read lock while sending so Shutdown never closes
	// the channel under a pending send.
	mu     sync.RWMutex
	closed bool
}

type Option func(*WriteBehind)

func WithWorkers(n int) Option {
	return func(q *WriteBehind) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *WriteBehind) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *WriteBehind) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *WriteBehind) { q.metrics = m }
}

func NewWriteBehind(logger *slog.Logger, opts ...Option) *WriteBehind {
	if logger == nil {
		logger = slog.Default()
	}
	q := &WriteBehind{
		logger:  logger,
		workers: 2,
		timeout: 30 * time.Second,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *WriteBehind) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *WriteBehind) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("async.worker.started", "worker_id", workerID)
	for job := range q.ch {
		q.run(workerID, job)
	}
	q.logger.Debug("async.worker.stopped", "worker_id", workerID)
}

func (q *WriteBehind) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	err := safeRun(ctx, job)
	if err != nil {
		q.metrics.WriteBehind(job.Name, "error")
		q.logger.Error("async.job.failed",
			"worker_id", workerID,
			"job", job.Name,
			"key", job.Key,
			"error", err,
			"queued_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		)
		return
	}
	q.metrics.WriteBehind(job.Name, "ok")
	q.logger.Debug("async.job.ok",
		"worker_id", workerID,
		"job", job.Name,
		"key", job.Key,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// Enqueue blocks while the queue is full until ctx is done.
func (q *WriteBehind) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "job", job.Name, "key", job.Key)
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		return nil
	default:
	}
	q.logger.Warn("async.enqueue.backpressure", "job", job.Name, "key", job.Key)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.metrics.WriteBehind(job.Name, "dropped")
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to finish or ctx to end.
func (q *WriteBehind) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	if job.Run == nil {
		return nil
	}
	return job.Run(ctx)
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("job panicked: %v", p.v) }
