// Command migrate applies the feeds and articles schema and the job queue
// schema, and optionally subscribes feeds listed in a YAML file.
//
//	migrate up [--seed feeds.yaml]
//	migrate down --yes
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	pgRepo "rss-reader/internal/infra/adapter/persistence/postgres"
	"rss-reader/internal/infra/db"
	"rss-reader/internal/infra/queue"
	"rss-reader/internal/observability/logging"
)

// schema applies and drops both the application tables and the queue tables.
type schema interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}

type pgSchema struct {
	handles *db.Handles
	logger  *slog.Logger
}

func (s pgSchema) Up(ctx context.Context) error {
	if err := db.MigrateUp(ctx, s.handles.DB); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	s.logger.Info("schema migrated")
	return queue.Migrate(ctx, s.handles.Pool, s.logger)
}

// Down drops the queue first so no worker picks up a job for a feed that
// is about to disappear.
func (s pgSchema) Down(ctx context.Context) error {
	if err := queue.MigrateDown(ctx, s.handles.Pool, s.logger); err != nil {
		return err
	}
	if err := db.MigrateDown(ctx, s.handles.DB); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

type migrateEnv struct {
	ctx    context.Context
	logger *slog.Logger
	schema schema
	feeds  feedCreator
}

type upCmd struct {
	Seed string `type:"existingfile" help:"YAML file of feeds to subscribe."`
}

func (c *upCmd) Run(e *migrateEnv) error {
	if err := e.schema.Up(e.ctx); err != nil {
		return err
	}
	if c.Seed == "" {
		return nil
	}

	f, err := os.Open(c.Seed)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	feeds, err := parseSeed(f)
	if err != nil {
		return err
	}
	stats, err := seedFeeds(e.ctx, e.logger, e.feeds, feeds)
	if err != nil {
		return err
	}
	e.logger.Info("feeds seeded",
		slog.Int("created", stats.Created),
		slog.Int("existing", stats.Existing))
	return nil
}

type downCmd struct {
	Yes bool `help:"Confirm dropping every feed, article and queued job."`
}

func (c *downCmd) Run(e *migrateEnv) error {
	if !c.Yes {
		return errors.New("refusing to drop the schema without --yes")
	}
	if err := e.schema.Down(e.ctx); err != nil {
		return err
	}
	e.logger.Warn("schema dropped")
	return nil
}

type cli struct {
	Up   upCmd   `cmd:"" default:"withargs" help:"Apply migrations (default)."`
	Down downCmd `cmd:"" help:"Drop the feeds, articles and queue tables."`
}

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup always happens first.
func run() int {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	var args cli
	kctx := kong.Parse(&args,
		kong.Name("migrate"),
		kong.Description("Manage the rss-reader database schema."),
		kong.UsageOnError())

	ctx := context.Background()
	handles, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		return 1
	}
	defer handles.Close()

	env := &migrateEnv{
		ctx:    ctx,
		logger: logger,
		schema: pgSchema{handles: handles, logger: logger},
		feeds:  pgRepo.NewFeedRepo(handles.DB),
	}
	return execute(kctx, env)
}

func execute(kctx *kong.Context, env *migrateEnv) int {
	if err := kctx.Run(env); err != nil {
		env.logger.Error("migration failed", slog.Any("error", err))
		return 1
	}
	return 0
}
