package sourceprep

import (
	"quire/internal/config"
	"quire/internal/latex"
)

// Report counts what each pass changed.
type Report struct {
	Files     []string
	Verses    int
	Labels    int
	Footnotes int
	Subtitles int
}

// Prepare flattens mainFile under root and applies the configured passes.
func Prepare(cfg config.Source, root, mainFile string) (string, Report, error) {
	var report Report
	flattener := &latex.Flattener{Root: root, Commands: cfg.IncludeCommands}
	if cfg.ChapterSubtitles {
		flattener.Hooks = append(flattener.Hooks, latex.SubtitleHook(&report.Subtitles))
	}
	result, err := flattener.Flatten(mainFile)
	if err != nil {
		return "", report, err
	}
	report.Files = result.Files
	text := result.Text

	if cfg.AddLabels {
		text, report.Labels = latex.AddLabels(text, latex.LabelSet{})
	}
	if cfg.MergeFootnotes {
		if text, report.Footnotes, err = latex.MergeFootnotes(text); err != nil {
			return "", report, err
		}
	}
	converter := latex.VerseConverter{Macro: cfg.VerseMacro}
	if text, report.Verses, err = converter.Convert(text); err != nil {
		return "", report, err
	}
	return text, report, nil
}
