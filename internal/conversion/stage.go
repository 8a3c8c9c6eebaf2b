// Package conversion runs pandoc over the prepared LaTeX document.
package conversion

import (
	"context"
	"log/slog"
	"os"

	"quire/internal/job"
	"quire/internal/logging"
	"quire/internal/services"
	"quire/internal/services/pandoc"
	"quire/internal/services/toolexec"
	"quire/internal/stage"
)

const stageName = "conversion"

// Stage converts the prepared document into the raw EPUB.
type Stage struct {
	client *pandoc.Client
	logger *slog.Logger
}

// NewStage constructs the conversion stage around a pandoc client.
func NewStage(client *pandoc.Client, logger *slog.Logger) *Stage {
	return &Stage{client: client, logger: logging.NewComponentLogger(logger, "conversion")}
}

// SetLogger routes stage logs into the run-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "conversion")
}

// Prepare writes the pandoc metadata file for the job's variant.
func (s *Stage) Prepare(_ context.Context, j *job.Job) error {
	if s.client == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Converter is not configured", nil)
	}
	if _, err := stage.RequireArtifact(stageName, j); err != nil {
		return err
	}
	path := j.ScratchPath("metadata.yaml")
	if err := pandoc.WriteMetadata(path, MetadataFile(j.Metadata)); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "metadata", "Failed to write metadata file", err)
	}
	j.Track(path)
	return nil
}

// Execute invokes pandoc and advances the job to the raw EPUB.
func (s *Stage) Execute(ctx context.Context, j *job.Job) error {
	input, err := stage.RequireArtifact(stageName, j)
	if err != nil {
		return err
	}
	output := j.ScratchPath("raw.epub")
	_ = os.Remove(output)
	req := pandoc.Request{
		Input:        input,
		Output:       output,
		MetadataFile: j.ScratchPath("metadata.yaml"),
		ResourcePath: j.SourceDir,
	}
	logging.WithContext(ctx, s.logger).Info("converting to epub",
		logging.String("input", input),
		logging.String("output", output),
		logging.String("title", j.Metadata.Title),
	)
	if err := s.client.Convert(ctx, req); err != nil {
		j.Track(output)
		return stage.ToolError(stageName, "pandoc", "LaTeX to EPUB conversion failed", err)
	}
	j.Advance(output)
	return nil
}

// HealthCheck verifies pandoc resolves on PATH.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.client == nil {
		return stage.Unhealthy(stageName, "converter not configured")
	}
	if _, err := toolexec.LookPath(s.client.Binary()); err != nil {
		return stage.Unhealthy(stageName, "pandoc binary not found: "+s.client.Binary())
	}
	return stage.Healthy(stageName)
}

// MetadataFile maps job metadata onto pandoc's metadata keys.
func MetadataFile(md job.Metadata) pandoc.Metadata {
	out := pandoc.Metadata{
		Title:       md.Title,
		Rights:      md.Rights,
		Subject:     md.Subjects,
		Identifier:  md.Identifier,
		Lang:        md.Language,
		Publisher:   md.Publisher,
		Description: md.Description,
		Date:        md.Date,
	}
	if md.Author != "" {
		out.Author = []string{md.Author}
	}
	return out
}
