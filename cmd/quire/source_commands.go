package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"quire/internal/latex"
)

func newSourceCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newVersesCommand(ctx),
		newLabelsCommand(ctx),
		newFootnotesCommand(ctx),
		newSubtitlesCommand(ctx),
	}
}

func newVersesCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var suffix string
	var inPlace bool
	var macro string

	cmd := &cobra.Command{
		Use:         "verses <file|dir>...",
		Short:       "Convert verse macros into verse environments",
		Long:        "Directories contribute their top-level .tex files. Output goes to --outdir as\n<stem><suffix> unless --inplace is set.",
		Args:        cobra.MinimumNArgs(1),
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !inPlace && strings.TrimSpace(outDir) == "" {
				return errors.New("--outdir is required unless --inplace is set")
			}
			files, err := latex.CollectTexFiles(args, false)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no .tex files found")
			}
			if !inPlace {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}

			converter := latex.VerseConverter{Macro: verseMacro(ctx, macro)}
			out := cmd.OutOrStdout()
			total, changed := 0, 0
			for _, file := range files {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				converted, n, err := converter.Convert(string(data))
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				total += n
				if n > 0 {
					changed++
				}
				if inPlace {
					if err := writeText(file, converted); err != nil {
						return err
					}
					fmt.Fprintf(out, "[inplace] %s: converted %d verse(s)\n", file, n)
					continue
				}
				target := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))+suffix)
				if err := writeText(target, converted); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s -> %s: converted %d verse(s)\n", file, target, n)
			}
			fmt.Fprintf(out, "\nDone. Converted %d verse(s) across %d/%d file(s).\n", total, changed, len(files))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "outdir", "o", "", "Output directory for converted files")
	cmd.Flags().StringVar(&suffix, "suffix", ".epub.tex", "Suffix appended to output file stems")
	cmd.Flags().BoolVar(&inPlace, "inplace", false, "Overwrite input files; ignores --outdir and --suffix")
	cmd.Flags().StringVar(&macro, "macro", "", "Verse macro name (default from source.verse_macro, else Verse)")
	return cmd
}

func verseMacro(ctx *commandContext, flag string) string {
	if flag = strings.TrimPrefix(strings.TrimSpace(flag), `\`); flag != "" {
		return flag
	}
	if cfg := ctx.optionalConfig(); cfg != nil {
		return cfg.Source.VerseMacro
	}
	return "Verse"
}

func newLabelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "labels [file|dir]...",
		Short:       "Insert \\label after unlabelled chapter and section headings, in place",
		Long:        "Labels are unique across every file given. Directories are walked recursively;\nwith no arguments the configured source directory is used.",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := sourceFiles(ctx, args)
			if err != nil {
				return err
			}
			texts := make([]string, len(files))
			used := latex.LabelSet{}
			for i, file := range files {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				texts[i] = string(data)
				used.Collect(texts[i])
			}

			out := cmd.OutOrStdout()
			changed, inserted := 0, 0
			for i, file := range files {
				updated, n := latex.AddLabels(texts[i], used)
				if n == 0 {
					continue
				}
				if err := writeText(file, updated); err != nil {
					return err
				}
				changed++
				inserted += n
				fmt.Fprintf(out, "[UPDATED] %s: inserted %d label(s)\n", file, n)
			}
			fmt.Fprintf(out, "\nDone. %d/%d files updated; %d label(s) inserted.\n", changed, len(files), inserted)
			return nil
		},
	}
}

func newFootnotesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "footnotes [file|dir]...",
		Short:       "Merge \\footnotetext groups into the preceding customquote, in place",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := sourceFiles(ctx, args)
			if err != nil {
				return err
			}
			return rewriteEach(cmd.OutOrStdout(), files, "footnote(s) merged", func(_, text string) (string, int, error) {
				return latex.MergeFootnotes(text)
			})
		},
	}
}

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "subtitles [file|dir]...",
		Short:       "Rewrite \\chaptersubtitle blocks in chapter_NN.tex files, in place",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := sourceFiles(ctx, args)
			if err != nil {
				return err
			}
			var chapters []string
			for _, file := range files {
				if _, ok := latex.ChapterNumber(file); ok {
					chapters = append(chapters, file)
				}
			}
			return rewriteEach(cmd.OutOrStdout(), chapters, "change(s)", func(name, text string) (string, int, error) {
				updated, count := latex.ConvertChapterFile(name, text)
				return updated, count, nil
			})
		},
	}
}

// sourceFiles expands args recursively, defaulting to the configured source
// directory.
func sourceFiles(ctx *commandContext, args []string) ([]string, error) {
	if len(args) == 0 {
		cfg := ctx.optionalConfig()
		if cfg == nil {
			return nil, errors.New("no paths given and no usable configuration")
		}
		args = []string{cfg.Paths.SourceDir}
	}
	files, err := latex.CollectTexFiles(args, true)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no .tex files found")
	}
	return files, nil
}

func rewriteEach(out io.Writer, files []string, unit string, fn func(name, text string) (string, int, error)) error {
	changed := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		updated, n, err := fn(file, string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if n == 0 {
			fmt.Fprintf(out, "[SKIP]    %s\n", file)
			continue
		}
		if err := writeText(file, updated); err != nil {
			return err
		}
		changed++
		fmt.Fprintf(out, "[UPDATED] %s: %d %s\n", file, n, unit)
	}
	fmt.Fprintf(out, "\nDone. %d/%d file(s) updated.\n", changed, len(files))
	return nil
}

func writeText(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
