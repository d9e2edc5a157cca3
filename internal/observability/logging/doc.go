// Package logging provides structured logging utilities with context propagation.
//
// Loggers are built on log/slog with a JSON handler. Job workers derive a
// logger carrying job_id, job_kind and attempt and store it in the context,
// so every log line emitted while handling a job is correlated.
//
//	logger := logging.NewLogger()
//	ctx = logging.WithLogger(ctx, logging.ForJob(logger, job.ID, job.Kind, job.Attempt))
//	logging.FromContext(ctx).Info("feed ingested", slog.Int("inserted", n))
package logging
