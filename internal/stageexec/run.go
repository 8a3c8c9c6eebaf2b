// Package stageexec runs one pipeline stage against a job with the logging
// and failure bookkeeping every stage shares.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quire/internal/job"
	"quire/internal/logging"
	"quire/internal/services"
	"quire/internal/stage"
)

// Handler is the stage contract used by the execution helper.
type Handler interface {
	Prepare(context.Context, *job.Job) error
	Execute(context.Context, *job.Job) error
}

// Options controls a single stage execution.
type Options struct {
	Logger    *slog.Logger
	Handler   Handler
	StageName string
	Job       *job.Job
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run executes Prepare then Execute. On failure the job is marked failed at
// this stage and the stage error is returned unchanged.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Job == nil {
		return fmt.Errorf("job is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	stageCtx := services.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	input := opts.Job.Artifact
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("input", input),
	)
	opts.Job.Stage = opts.StageName
	started := now()

	if err := opts.Handler.Prepare(stageCtx, opts.Job); err != nil {
		return handleFailure(stageLogger, opts.StageName, opts.Job, err, now())
	}
	if err := ctx.Err(); err != nil {
		return handleFailure(stageLogger, opts.StageName, opts.Job,
			services.Wrap(services.ErrTransient, opts.StageName, "execute", "Build cancelled", err), now())
	}
	if err := opts.Handler.Execute(stageCtx, opts.Job); err != nil {
		return handleFailure(stageLogger, opts.StageName, opts.Job, err, now())
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", now().Sub(started)),
	}
	if opts.Job.Artifact != input {
		attrs = append(attrs, logging.String("output", opts.Job.Artifact))
	} else {
		attrs = append(attrs, logging.Bool("skipped", true))
	}
	stageLogger.Info("stage completed", logging.Args(attrs...)...)
	return nil
}

func handleFailure(logger *slog.Logger, stageName string, j *job.Job, stageErr error, now time.Time) error {
	message := "stage failed"
	if stageErr != nil {
		if text := strings.TrimSpace(stageErr.Error()); text != "" {
			message = text
		}
	}
	j.SetFailed(stageName, message, now)

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("failure_kind", services.FailureKind(stageErr)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	return stageErr
}
