package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"quire/internal/fileutil"
	"quire/internal/history"
	"quire/internal/job"
	"quire/internal/logging"
	"quire/internal/notifications"
	"quire/internal/preflight"
	"quire/internal/services"
	"quire/internal/stageexec"
)

// Result describes one Build call.
type Result struct {
	RunID string
	// Jobs holds every attempted variant in order; the last one failed when
	// Build returned an error.
	Jobs []*job.Job
}

// Build runs variants in order and stops at the first failure.
func (r *Runner) Build(ctx context.Context, variants []job.Variant) (*Result, error) {
	if len(variants) == 0 {
		variants = job.AllVariants()
	}
	runID := r.newRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	result := &Result{RunID: runID}

	lock, err := acquireLock(r.cfg.Paths.BuildDir)
	if err != nil {
		return result, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release build lock failed", logging.Error(err))
			return
		}
		_ = os.Remove(lock.Path())
	}()

	if !r.skipPreflight {
		if err := r.runPreflight(logger, variants); err != nil {
			return result, err
		}
	}

	started := r.now()
	var runErr error
	for _, variant := range variants {
		j := job.New(r.cfg, variant, runID, r.now())
		result.Jobs = append(result.Jobs, j)
		if runErr = r.runVariant(ctx, j); runErr != nil {
			break
		}
	}

	succeeded := 0
	for _, j := range result.Jobs {
		if j.Status == job.StatusSucceeded {
			succeeded++
		}
	}
	logger.Info("build finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("succeeded", succeeded),
		logging.Int("requested", len(variants)),
		logging.Duration("elapsed", r.now().Sub(started)),
		logging.Bool("ok", runErr == nil),
	)
	r.publish(ctx, logger, notifications.EventRunCompleted, notifications.Payload{
		"succeeded": succeeded,
		"failed":    len(result.Jobs) - succeeded,
	})
	return result, runErr
}

func (r *Runner) runPreflight(logger *slog.Logger, variants []job.Variant) error {
	results := preflight.RunAll(r.cfg, variants)
	for _, res := range results {
		if res.Passed || res.Optional {
			logger.Debug("preflight check",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail),
				logging.Bool("passed", res.Passed),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String("check", res.Name),
			logging.String("detail", res.Detail),
		)
	}
	return preflight.Err(results)
}

func (r *Runner) runVariant(ctx context.Context, j *job.Job) error {
	ctx = services.WithVariant(ctx, string(j.Variant))
	logger := logging.WithContext(ctx, r.logger)

	j.Start(r.now())
	r.record(ctx, logger, j, nil)
	logger.Info("variant started",
		logging.String(logging.FieldEventType, "variant_start"),
		logging.String("title", j.Metadata.Title),
		logging.String("output", j.OutputPath()),
	)

	stages, err := r.stagesFor(j.Variant, logger)
	if err != nil {
		j.SetFailed("workflow", err.Error(), r.now())
		return r.fail(ctx, logger, j, err)
	}
	for _, stg := range stages {
		err := stageexec.Run(ctx, stageexec.Options{
			Logger:    logger,
			Handler:   stg.handler,
			StageName: stg.name,
			Job:       j,
			Now:       r.now,
		})
		if err != nil {
			return r.fail(ctx, logger, j, err)
		}
	}

	if err := r.finalize(j); err != nil {
		j.SetFailed("finalize", err.Error(), r.now())
		return r.fail(ctx, logger, j, err)
	}

	sum, err := fileutil.SHA256File(j.FinalPath)
	if err != nil {
		logger.Warn("checksum of final epub failed", logging.Error(err))
	}
	if !r.keepScratch {
		removed, err := j.CleanupIntermediates()
		if err != nil {
			logger.Warn("intermediate cleanup incomplete",
				logging.Error(err),
				logging.Int("removed", len(removed)),
			)
		} else {
			logger.Debug("intermediates removed", logging.Int("count", len(removed)))
		}
	}

	logger.Info("variant succeeded",
		logging.String(logging.FieldEventType, "variant_complete"),
		logging.String("output", j.FinalPath),
		logging.String("sha256", sum),
		logging.Duration("elapsed", j.Duration()),
	)
	r.recordWithSum(ctx, logger, j, nil, sum)
	r.publish(ctx, logger, notifications.EventVariantSucceeded, notifications.Payload{
		"title":    j.Metadata.Title,
		"variant":  string(j.Variant),
		"output":   j.FinalPath,
		"duration": j.Duration(),
	})
	return nil
}

// finalize moves the last artifact to the configured output name.
func (r *Runner) finalize(j *job.Job) error {
	if j.Artifact == "" {
		return services.Wrap(services.ErrValidation, "finalize", "move", "Pipeline produced no artifact", nil)
	}
	dest := j.OutputPath()
	if err := fileutil.MoveFile(j.Artifact, dest); err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "move", "Move final EPUB into place", err)
	}
	j.Succeed(dest, r.now())
	return nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, j *job.Job, err error) error {
	if errors.Is(err, context.Canceled) {
		logger.Warn("variant cancelled", logging.String("stage", j.FailedStage))
	}
	logger.Error("variant failed",
		logging.String(logging.FieldEventType, "variant_failure"),
		logging.String("failed_stage", j.FailedStage),
		logging.String("failure_kind", services.FailureKind(err)),
		logging.Int("intermediates_kept", len(j.Intermediates)),
	)
	// Record and notify even when the build context was cancelled.
	detached := context.WithoutCancel(ctx)
	r.record(detached, logger, j, err)
	r.publish(detached, logger, notifications.EventVariantFailed, notifications.Payload{
		"variant": string(j.Variant),
		"stage":   j.FailedStage,
		"error":   err,
	})
	return err
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, j *job.Job, runErr error) {
	r.recordWithSum(ctx, logger, j, runErr, "")
}

func (r *Runner) recordWithSum(ctx context.Context, logger *slog.Logger, j *job.Job, runErr error, sum string) {
	if r.history == nil {
		return
	}
	rec := history.FromJob(j, services.FailureKind(runErr), sum)
	if err := r.history.Save(ctx, rec); err != nil {
		logger.Warn("history record not saved",
			logging.Error(err),
			logging.String("status", string(j.Status)),
		)
	}
}

func (r *Runner) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := r.notifier.Publish(sendCtx, event, payload); err != nil {
		logger.Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}
