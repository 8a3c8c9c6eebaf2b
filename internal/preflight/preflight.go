package preflight

import (
	"fmt"
	"strings"

	"quire/internal/config"
	"quire/internal/deps"
	"quire/internal/job"
	"quire/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every check that applies to the given variants.
func RunAll(cfg *config.Config, variants []job.Variant) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg, variants) {
		results = append(results, fromStatus(status))
	}

	results = append(results, CheckDirectoryReadable("Source directory", cfg.Paths.SourceDir))
	results = append(results, CheckFile("Main file", cfg.MainPath()))
	if cfg.Converter.CoverImage != "" {
		results = append(results, CheckFile("Cover image", cfg.Converter.CoverImage))
	}
	for _, sheet := range cfg.Converter.Stylesheets {
		results = append(results, CheckFile("Stylesheet", sheet))
	}
	for _, filter := range cfg.Converter.Filters {
		results = append(results, CheckFile("Lua filter", filter))
	}
	results = append(results, CheckBuildDirectory("Build directory", cfg.Paths.BuildDir))
	return results
}

// CheckSystemDeps evaluates the binaries the selected variants shell out to.
func CheckSystemDeps(cfg *config.Config, variants []job.Variant) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "pandoc",
			Command:     cfg.Converter.Binary,
			Description: "Converts the flattened LaTeX source to EPUB",
		},
	}
	if cfg.PostProcessEnabled() {
		requirements = append(requirements, deps.Requirement{
			Name:        "EPUB helper",
			Command:     cfg.PostProcess.Command[0],
			Description: "Post-processes the converter output",
		})
	}
	for _, variant := range variants {
		if variant != job.VariantGooglePlay {
			continue
		}
		requirements = append(requirements, deps.Requirement{
			Name:        "ebook-convert",
			Command:     cfg.Calibre.ConvertBinary,
			Description: "Round-trips the google-play variant",
		})
		requirements = append(requirements, deps.Requirement{
			Name:        "ebook-polish",
			Command:     cfg.Calibre.PolishBinary,
			Description: "Upgrades the google-play variant",
			Optional:    !cfg.GooglePlay.Polish,
		})
	}
	return deps.CheckBinaries(requirements)
}

// Failed returns the required results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

// Err summarizes failed required checks as a configuration error, or nil.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(parts, "; "), nil)
}

func fromStatus(status deps.Status) Result {
	res := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
	switch {
	case status.Available:
		res.Detail = status.Path
	case status.Optional:
		res.Detail = status.Detail + " (optional)"
	default:
		res.Detail = status.Detail
	}
	return res
}
