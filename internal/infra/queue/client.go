package queue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/robfig/cron/v3"

	"rss-reader/internal/domain/job"
	"rss-reader/internal/pkg/config"
)

// ClientConfig sizes the working client.
type ClientConfig struct {
	MaxWorkers   int
	Workers      *river.Workers
	PeriodicJobs []*river.PeriodicJob
}

// NewClient returns a client that works jobs from the default queue.
// Start it with Start(ctx) and stop it with Stop(ctx).
func NewClient(pool *pgxpool.Pool, logger *slog.Logger, cfg ClientConfig) (*river.Client[pgx.Tx], error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:      cfg.Workers,
		PeriodicJobs: cfg.PeriodicJobs,
	})
	if err != nil {
		return nil, fmt.Errorf("create queue client: %w", err)
	}
	return client, nil
}

// NewInsertClient returns a client that can only enqueue.
func NewInsertClient(pool *pgxpool.Pool, logger *slog.Logger) (*river.Client[pgx.Tx], error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create queue client: %w", err)
	}
	return client, nil
}

// zonedSchedule evaluates a cron schedule in a fixed time zone, so
// "0 6 * * *" means 06:00 local time wherever the worker runs.
type zonedSchedule struct {
	schedule cron.Schedule
	loc      *time.Location
}

func (s zonedSchedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

func parseZoned(schedule string, loc *time.Location) (zonedSchedule, error) {
	sched, err := config.CronParser.Parse(schedule)
	if err != nil {
		return zonedSchedule{}, fmt.Errorf("parse refresh schedule: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return zonedSchedule{schedule: sched, loc: loc}, nil
}

// RefreshAllJob schedules the refresh-all sweep on a five-field cron
// expression evaluated in loc. It also runs once on start.
func RefreshAllJob(schedule string, loc *time.Location) (*river.PeriodicJob, error) {
	sched, err := parseZoned(schedule, loc)
	if err != nil {
		return nil, err
	}
	return river.NewPeriodicJob(
		sched,
		func() (river.JobArgs, *river.InsertOpts) {
			return job.RefreshAllArgs{}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	), nil
}
