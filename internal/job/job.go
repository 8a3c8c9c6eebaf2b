package job

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"quire/internal/config"
	"quire/internal/fileutil"
)

// Variant names a pipeline flavour.
type Variant string

const (
	VariantStandard   Variant = "standard"
	VariantGooglePlay Variant = "google-play"
)

// AllVariants returns the variants in build order.
func AllVariants() []Variant {
	return []Variant{VariantStandard, VariantGooglePlay}
}

// ParseVariant accepts the canonical names plus a few spellings.
func ParseVariant(value string) (Variant, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "standard", "std":
		return VariantStandard, true
	case "google-play", "googleplay", "google_play", "gplay":
		return VariantGooglePlay, true
	default:
		return "", false
	}
}

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Metadata is the book metadata published by one variant.
type Metadata struct {
	Title       string
	Author      string
	Rights      string
	Subjects    []string
	Identifier  string
	Language    string
	Publisher   string
	Description string
	Date        string
}

// MetadataFor returns the metadata for variant, applying its title and date
// overrides. A date of "today" is stamped with now's calendar date.
func MetadataFor(cfg *config.Config, variant Variant, now time.Time) Metadata {
	md := cfg.Metadata
	out := Metadata{
		Title:       md.Title,
		Author:      md.Author,
		Rights:      md.Rights,
		Subjects:    append([]string(nil), md.Subjects...),
		Identifier:  md.Identifier,
		Language:    md.Language,
		Publisher:   md.Publisher,
		Description: md.Description,
		Date:        md.Date,
	}
	title, date := cfg.Standard.Title, cfg.Standard.Date
	if variant == VariantGooglePlay {
		title, date = cfg.GooglePlay.Title, cfg.GooglePlay.Date
	}
	if title != "" {
		out.Title = title
	}
	if date != "" {
		out.Date = date
	}
	if strings.EqualFold(out.Date, "today") {
		out.Date = now.Format("2006-01-02")
	}
	return out
}

// OutputName returns the configured final file name for variant.
func OutputName(cfg *config.Config, variant Variant) string {
	if variant == VariantGooglePlay {
		return cfg.GooglePlay.Output
	}
	return cfg.Standard.Output
}

// Job is one variant run.
type Job struct {
	RunID    string
	Variant  Variant
	Status   Status
	Metadata Metadata

	SourceDir string
	MainFile  string
	BuildDir  string
	Output    string

	// Artifact is the file the next stage consumes.
	Artifact      string
	Intermediates []string

	Stage        string
	FailedStage  string
	ErrorMessage string
	FinalPath    string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// New builds a pending job for variant.
func New(cfg *config.Config, variant Variant, runID string, now time.Time) *Job {
	return &Job{
		RunID:     runID,
		Variant:   variant,
		Status:    StatusPending,
		Metadata:  MetadataFor(cfg, variant, now),
		SourceDir: cfg.Paths.SourceDir,
		MainFile:  cfg.Paths.MainFile,
		BuildDir:  cfg.Paths.BuildDir,
		Output:    OutputName(cfg, variant),
	}
}

// ScratchPath returns the fixed build-directory path for an intermediate.
func (j *Job) ScratchPath(name string) string {
	return filepath.Join(j.BuildDir, string(j.Variant)+"-"+name)
}

// OutputPath returns where the finished EPUB lands.
func (j *Job) OutputPath() string {
	return filepath.Join(j.BuildDir, j.Output)
}

// Track registers path for cleanup.
func (j *Job) Track(path string) {
	if path == "" || slices.Contains(j.Intermediates, path) {
		return
	}
	j.Intermediates = append(j.Intermediates, path)
}

// Advance tracks path and makes it the current artifact.
func (j *Job) Advance(path string) {
	j.Track(path)
	j.Artifact = path
}

// Start marks the job running.
func (j *Job) Start(now time.Time) {
	j.Status = StatusRunning
	j.StartedAt = now.UTC()
	j.ErrorMessage = ""
	j.FailedStage = ""
}

// Succeed marks the job finished with the final artifact at path.
func (j *Job) Succeed(path string, now time.Time) {
	j.Status = StatusSucceeded
	j.FinalPath = path
	j.FinishedAt = now.UTC()
	j.Stage = ""
}

// SetFailed records a stage failure.
func (j *Job) SetFailed(stage, message string, now time.Time) {
	j.Status = StatusFailed
	j.FailedStage = stage
	j.ErrorMessage = strings.TrimSpace(message)
	j.FinishedAt = now.UTC()
}

// Duration is the elapsed run time, or zero while unfinished.
func (j *Job) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// CleanupIntermediates removes every tracked file except the final output.
func (j *Job) CleanupIntermediates() ([]string, error) {
	paths := make([]string, 0, len(j.Intermediates))
	for _, path := range j.Intermediates {
		if path != j.FinalPath {
			paths = append(paths, path)
		}
	}
	return fileutil.RemoveAll(paths)
}
