// Package queue adapts the River job queue (Postgres) to the worker: it
// enqueues job payloads with singleton windows, registers the job workers
// and schedules the periodic refresh-all sweep.
package queue

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"rss-reader/internal/domain/job"
)

// Inserter is the part of *river.Client the queue needs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Queue implements fetch.JobQueue on top of River.
type Queue struct {
	client Inserter
}

func New(client Inserter) *Queue {
	return &Queue{client: client}
}

// Enqueue inserts args. An identical payload still inside its singleton
// window yields job.ErrAlreadyEnqueued.
func (q *Queue) Enqueue(ctx context.Context, args job.Args, opts job.Options) error {
	res, err := q.client.Insert(ctx, args, InsertOpts(opts))
	if err != nil {
		return fmt.Errorf("insert %s job: %w", args.Kind(), err)
	}
	if res.UniqueSkippedAsDuplicate {
		return job.ErrAlreadyEnqueued
	}
	return nil
}

// InsertOpts maps job options to River's. A singleton window becomes a
// uniqueness constraint on the payload within a period of that length.
func InsertOpts(opts job.Options) *river.InsertOpts {
	o := &river.InsertOpts{MaxAttempts: opts.MaxAttempts}
	if opts.SingletonTTL > 0 {
		o.UniqueOpts = river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: opts.SingletonTTL,
		}
	}
	return o
}
