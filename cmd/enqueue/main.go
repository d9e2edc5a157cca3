// Command enqueue puts a single job on the worker's queue.
//
//	enqueue refresh-all [--force]
//	enqueue fetch-feed --id 12 [--force]
//	enqueue fetch-fulltext --id 345
//	enqueue summarize --id 345
//
// A job that is already enqueued inside its singleton window is reported
// and the command still exits 0.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"rss-reader/internal/infra/db"
	"rss-reader/internal/infra/queue"
	"rss-reader/internal/infra/summarizer"
	"rss-reader/internal/infra/worker"
	"rss-reader/internal/observability/logging"
	fetchUC "rss-reader/internal/usecase/fetch"
)

// Requester enqueues jobs on behalf of an operator. *fetch.Service
// implements it.
type Requester interface {
	RequestRefreshAll(ctx context.Context, force bool) (bool, error)
	RequestFeedRefresh(ctx context.Context, feedID int64, force bool) (bool, error)
	RequestFullText(ctx context.Context, articleID int64) (bool, error)
	RequestSummary(ctx context.Context, articleID int64) (bool, error)
}

type runEnv struct {
	ctx context.Context
	svc Requester
	out io.Writer
}

func (e *runEnv) report(kind string, queued bool, err error) error {
	if err != nil {
		return err
	}
	if queued {
		fmt.Fprintf(e.out, "%s: enqueued\n", kind)
	} else {
		fmt.Fprintf(e.out, "%s: already enqueued\n", kind)
	}
	return nil
}

type refreshAllCmd struct {
	Force bool `help:"Fetch every enabled feed, ignoring intervals."`
}

func (c *refreshAllCmd) Run(e *runEnv) error {
	ok, err := e.svc.RequestRefreshAll(e.ctx, c.Force)
	return e.report("refresh-all", ok, err)
}

type fetchFeedCmd struct {
	ID    int64 `required:"" name:"id" help:"Feed id."`
	Force bool  `help:"Fetch even if the feed is not due."`
}

func (c *fetchFeedCmd) Run(e *runEnv) error {
	ok, err := e.svc.RequestFeedRefresh(e.ctx, c.ID, c.Force)
	return e.report(fmt.Sprintf("fetch-feed %d", c.ID), ok, err)
}

type fetchFullTextCmd struct {
	ID int64 `required:"" name:"id" help:"Article id."`
}

func (c *fetchFullTextCmd) Run(e *runEnv) error {
	ok, err := e.svc.RequestFullText(e.ctx, c.ID)
	return e.report(fmt.Sprintf("fetch-fulltext %d", c.ID), ok, err)
}

type summarizeCmd struct {
	ID int64 `required:"" name:"id" help:"Article id."`
}

func (c *summarizeCmd) Run(e *runEnv) error {
	ok, err := e.svc.RequestSummary(e.ctx, c.ID)
	return e.report(fmt.Sprintf("summarize %d", c.ID), ok, err)
}

type cli struct {
	RefreshAll    refreshAllCmd    `cmd:"" name:"refresh-all" help:"Enqueue a sweep of due feeds."`
	FetchFeed     fetchFeedCmd     `cmd:"" name:"fetch-feed" help:"Enqueue a fetch of one feed."`
	FetchFullText fetchFullTextCmd `cmd:"" name:"fetch-fulltext" help:"Enqueue full-text extraction of one article."`
	Summarize     summarizeCmd     `cmd:"" help:"Enqueue an AI summary of one article."`
}

func main() {
	os.Exit(run())
}

// run returns the exit code so the pool is closed before the process exits.
func run() int {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	var args cli
	kctx := kong.Parse(&args,
		kong.Name("enqueue"),
		kong.Description("Enqueue a job for the rss-reader worker."),
		kong.UsageOnError())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeFn, err := newService(ctx, logger)
	if err != nil {
		logger.Error("failed to initialize", slog.Any("error", err))
		return 1
	}
	defer closeFn()

	return execute(kctx, &runEnv{ctx: ctx, svc: svc, out: os.Stdout}, logger)
}

func execute(kctx *kong.Context, env *runEnv, logger *slog.Logger) int {
	if err := kctx.Run(env); err != nil {
		logger.Error("enqueue failed", slog.String("command", kctx.Command()), slog.Any("error", err))
		return 1
	}
	return 0
}

func newService(ctx context.Context, logger *slog.Logger) (*fetchUC.Service, func(), error) {
	handles, err := db.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	client, err := queue.NewInsertClient(handles.Pool, logger)
	if err != nil {
		handles.Close()
		return nil, nil, err
	}

	// The summarizer is only consulted to tell whether summaries are
	// enabled; the worker makes the API calls.
	sum, err := summarizer.New(summarizer.LoadConfigFromEnv(logger, nil))
	if err != nil {
		handles.Close()
		return nil, nil, fmt.Errorf("create summarizer: %w", err)
	}

	workerCfg := worker.LoadConfigFromEnv(logger, nil)
	svc := &fetchUC.Service{
		Queue:      queue.New(client),
		Summarizer: sum,
		Config:     workerCfg.JobOptions(),
	}
	return svc, handles.Close, nil
}
