package compat

import (
	"context"
	"log/slog"

	"quire/internal/config"
	"quire/internal/job"
	"quire/internal/logging"
	"quire/internal/services"
	"quire/internal/services/calibre"
	"quire/internal/services/toolexec"
	"quire/internal/stage"
)

const stageName = "compat"

// Stage performs the compatibility round trip.
type Stage struct {
	cfg     config.GooglePlay
	calibre config.Calibre
	client  *calibre.Client
	logger  *slog.Logger
}

// NewStage constructs the compatibility stage.
func NewStage(cfg config.GooglePlay, calibreCfg config.Calibre, client *calibre.Client, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, calibre: calibreCfg, client: client, logger: logging.NewComponentLogger(logger, "compat")}
}

// SetLogger routes stage logs into the run-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "compat")
}

// Prepare validates the stage wiring.
func (s *Stage) Prepare(_ context.Context, j *job.Job) error {
	if s.client == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Conversion suite is not configured", nil)
	}
	_, err := stage.RequireArtifact(stageName, j)
	return err
}

// Execute converts EPUB -> intermediate -> EPUB, then polishes.
func (s *Stage) Execute(ctx context.Context, j *job.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	input, err := stage.RequireArtifact(stageName, j)
	if err != nil {
		return err
	}

	intermediate := j.ScratchPath("tmp." + s.cfg.IntermediateFormat)
	j.Track(intermediate)
	logger.Info("converting to intermediate format", logging.String("format", s.cfg.IntermediateFormat))
	if err := s.client.Convert(ctx, input, intermediate); err != nil {
		return stage.ToolError(stageName, "to "+s.cfg.IntermediateFormat, "Conversion to intermediate format failed", err)
	}

	roundTrip := j.ScratchPath("tmp.epub")
	j.Track(roundTrip)
	logger.Info("converting back to epub", logging.String("epub_version", s.cfg.EPUBVersion))
	if err := s.client.ConvertToEPUB(ctx, intermediate, roundTrip, s.cfg.EPUBVersion); err != nil {
		return stage.ToolError(stageName, "to epub", "Conversion back to EPUB failed", err)
	}
	j.Advance(roundTrip)

	if !s.cfg.Polish {
		return nil
	}
	polished := j.ScratchPath("polished.epub")
	j.Track(polished)
	logger.Info("polishing epub")
	if err := s.client.Polish(ctx, roundTrip, polished); err != nil {
		return stage.ToolError(stageName, "polish", "EPUB polish failed", err)
	}
	j.Advance(polished)
	return nil
}

// HealthCheck verifies the Calibre binaries resolve on PATH.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if _, err := toolexec.LookPath(s.calibre.ConvertBinary); err != nil {
		return stage.Unhealthy(stageName, "ebook-convert binary not found: "+s.calibre.ConvertBinary)
	}
	if s.cfg.Polish {
		if _, err := toolexec.LookPath(s.calibre.PolishBinary); err != nil {
			return stage.Unhealthy(stageName, "ebook-polish binary not found: "+s.calibre.PolishBinary)
		}
	}
	return stage.Healthy(stageName)
}
