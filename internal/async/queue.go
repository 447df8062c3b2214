// Package async runs persistence work off the request path.
package async

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Enqueue once Shutdown has started.
var ErrClosed = errors.New("queue is shutting down")

// Job is one deferred write. Run receives a context bounded by the queue's
// job timeout, detached from the request that produced the job.
type Job struct {
	Name        string
	Key         string // for logs, e.g. the user id
	Run         func(ctx context.Context) error
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Inline runs jobs synchronously on the caller's goroutine. Used by
// command-line tools and tests that want writes to land before returning.
type Inline struct{}

func (Inline) Enqueue(ctx context.Context, job Job) error {
	if job.Run == nil {
		return nil
	}
	return job.Run(ctx)
}

func (Inline) Shutdown(context.Context) {}
