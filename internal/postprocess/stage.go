// Package postprocess runs the optional external EPUB helper between
// conversion and the navigation patch.
package postprocess

import (
	"context"
	"log/slog"

	"quire/internal/job"
	"quire/internal/logging"
	"quire/internal/services/helper"
	"quire/internal/services/toolexec"
	"quire/internal/stage"
)

const stageName = "postprocess"

// Stage hands the raw EPUB to the configured helper. A nil client skips it.
type Stage struct {
	client *helper.Client
	logger *slog.Logger
}

// NewStage constructs the post-processing stage.
func NewStage(client *helper.Client, logger *slog.Logger) *Stage {
	return &Stage{client: client, logger: logging.NewComponentLogger(logger, "postprocess")}
}

// SetLogger routes stage logs into the run-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "postprocess")
}

// Prepare is a no-op.
func (s *Stage) Prepare(context.Context, *job.Job) error { return nil }

// Execute runs the helper when one is configured.
func (s *Stage) Execute(ctx context.Context, j *job.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	if s.client == nil {
		logger.Debug("postprocess helper not configured; skipping")
		return nil
	}
	input, err := stage.RequireArtifact(stageName, j)
	if err != nil {
		return err
	}
	output := j.ScratchPath("post.epub")
	logger.Info("running postprocess helper", logging.String("helper", s.client.Binary()))
	if err := s.client.Process(ctx, input, output); err != nil {
		j.Track(output)
		return stage.ToolError(stageName, "helper", "EPUB post-processing failed", err)
	}
	j.Advance(output)
	return nil
}

// HealthCheck verifies the helper resolves on PATH when configured.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.client == nil {
		return stage.Healthy(stageName)
	}
	if _, err := toolexec.LookPath(s.client.Binary()); err != nil {
		return stage.Unhealthy(stageName, "helper binary not found: "+s.client.Binary())
	}
	return stage.Healthy(stageName)
}
