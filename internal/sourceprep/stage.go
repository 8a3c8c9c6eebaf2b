package sourceprep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"quire/internal/config"
	"quire/internal/job"
	"quire/internal/latex"
	"quire/internal/logging"
	"quire/internal/services"
	"quire/internal/stage"
)

const stageName = "sourceprep"

// Stage prepares the flattened LaTeX document.
type Stage struct {
	cfg    config.Source
	logger *slog.Logger
}

// NewStage constructs the source preparation stage.
func NewStage(cfg config.Source, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, logger: logging.NewComponentLogger(logger, "sourceprep")}
}

// SetLogger routes stage logs into the run-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "sourceprep")
}

// Prepare checks that the root document exists.
func (s *Stage) Prepare(_ context.Context, j *job.Job) error {
	if j == nil {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "Job is nil", nil)
	}
	main := mainPath(j)
	if _, err := os.Stat(main); err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "prepare", fmt.Sprintf("Root document %s not found", main), err)
	}
	return nil
}

// Execute writes the prepared document and makes it the job artifact.
func (s *Stage) Execute(ctx context.Context, j *job.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	text, report, err := Prepare(s.cfg, j.SourceDir, j.MainFile)
	if err != nil {
		var srcErr *latex.SourceError
		if errors.As(err, &srcErr) {
			return services.Wrap(services.ErrValidation, stageName, "prepare source", "Source document is invalid", err)
		}
		return services.Wrap(services.ErrTransient, stageName, "prepare source", "Failed to read source tree", err)
	}

	out := j.ScratchPath("flat.tex")
	if err := os.MkdirAll(j.BuildDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "write", "Failed to create build directory", err)
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "write", "Failed to write flattened document", err)
	}
	j.Advance(out)

	logger.Info("source prepared",
		logging.String("output", out),
		logging.Int("files", len(report.Files)),
		logging.Int("verses", report.Verses),
		logging.Int("labels", report.Labels),
		logging.Int("footnotes", report.Footnotes),
		logging.Int("subtitles", report.Subtitles),
	)
	return nil
}

// HealthCheck reports whether the verse macro is usable.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.cfg.VerseMacro == "" {
		return stage.Unhealthy(stageName, "verse macro not configured")
	}
	return stage.Healthy(stageName)
}

func mainPath(j *job.Job) string {
	if filepath.IsAbs(j.MainFile) {
		return j.MainFile
	}
	return filepath.Join(j.SourceDir, j.MainFile)
}
