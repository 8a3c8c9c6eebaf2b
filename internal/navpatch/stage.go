// Package navpatch removes the landmarks block from the EPUB navigation
// document as a pipeline stage.
package navpatch

import (
	"context"
	"errors"
	"log/slog"

	"quire/internal/config"
	"quire/internal/epub"
	"quire/internal/job"
	"quire/internal/logging"
	"quire/internal/services"
	"quire/internal/stage"
)

const stageName = "navpatch"

// Stage patches the navigation document and repacks the archive.
type Stage struct {
	cfg    config.NavPatch
	logger *slog.Logger
}

// NewStage constructs the navigation patch stage.
func NewStage(cfg config.NavPatch, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, logger: logging.NewComponentLogger(logger, "navpatch")}
}

// SetLogger routes stage logs into the run-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "navpatch")
}

// Prepare is a no-op.
func (s *Stage) Prepare(context.Context, *job.Job) error { return nil }

// Execute writes <variant>-patched.epub.
func (s *Stage) Execute(ctx context.Context, j *job.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	if !s.cfg.Enabled {
		logger.Debug("navigation patch disabled; skipping")
		return nil
	}
	input, err := stage.RequireArtifact(stageName, j)
	if err != nil {
		return err
	}
	output := j.ScratchPath("patched.epub")
	res, err := epub.Patch(input, output, epub.PatchOptions{
		Element:      s.cfg.Element,
		Attribute:    s.cfg.Attribute,
		RequireMatch: s.cfg.RequireMatch,
	})
	if err != nil {
		if errors.Is(err, epub.ErrNoMatch) || errors.Is(err, epub.ErrInvalidEPUB) {
			return services.Wrap(services.ErrValidation, stageName, "patch", "Navigation patch failed", err)
		}
		return services.Wrap(services.ErrTransient, stageName, "patch", "Navigation patch failed", err)
	}
	j.Advance(output)
	if !res.Removed {
		logger.Warn("navigation block not found; archive repacked unchanged",
			logging.String("nav", res.NavPath),
			logging.String("attribute", s.cfg.Attribute),
		)
		return nil
	}
	logger.Info("navigation block removed",
		logging.String("nav", res.NavPath),
		logging.Int("entries", res.Entries),
	)
	return nil
}

// HealthCheck reports the patch configuration.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.cfg.Enabled && s.cfg.Attribute == "" {
		return stage.Unhealthy(stageName, "attribute match not configured")
	}
	return stage.Healthy(stageName)
}
