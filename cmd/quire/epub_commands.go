package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quire/internal/config"
	"quire/internal/epub"
	"quire/internal/language"
)

func newPatchNavCommand() *cobra.Command {
	defaults := config.Default().NavPatch
	var element string
	var attribute string
	var requireMatch bool

	cmd := &cobra.Command{
		Use:         "patch-nav <in.epub> [out.epub]",
		Short:       "Remove the landmarks block from an EPUB navigation document",
		Long:        "Without out.epub the input is replaced. The archive is rewritten with the\nmimetype entry first and uncompressed.",
		Args:        cobra.RangeArgs(1, 2),
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			dst := src
			if len(args) == 2 {
				dst = args[1]
			}
			res, err := epub.Patch(src, dst, epub.PatchOptions{
				Element:      element,
				Attribute:    attribute,
				RequireMatch: requireMatch,
			})
			if err != nil {
				return fmt.Errorf("patch %s: %w", src, err)
			}
			out := cmd.OutOrStdout()
			if res.Removed {
				fmt.Fprintf(out, "Removed <%s %s> from %s\n", element, attribute, res.NavPath)
			} else {
				fmt.Fprintf(out, "No <%s %s> block in %s; archive repacked unchanged\n", element, attribute, res.NavPath)
			}
			fmt.Fprintf(out, "Wrote %s (%d entries)\n", dst, res.Entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&element, "element", defaults.Element, "Element name of the block to remove")
	cmd.Flags().StringVar(&attribute, "attribute", defaults.Attribute, "Attribute text the start tag must contain")
	cmd.Flags().BoolVar(&requireMatch, "require-match", false, "Fail when no block matches")
	return cmd
}

type inspectView struct {
	Path             string   `json:"path"`
	Package          string   `json:"package"`
	Version          string   `json:"version"`
	Titles           []string `json:"titles"`
	Creators         []string `json:"creators"`
	Rights           string   `json:"rights,omitempty"`
	Identifiers      []string `json:"identifiers,omitempty"`
	Subjects         []string `json:"subjects,omitempty"`
	Language         string   `json:"language,omitempty"`
	Date             string   `json:"date,omitempty"`
	NavPath          string   `json:"nav_path,omitempty"`
	NavTypes         []string `json:"nav_types,omitempty"`
	FirstEntry       string   `json:"first_entry"`
	FirstEntryStored bool     `json:"first_entry_stored"`
	Entries          int      `json:"entries"`
}

func newInspectCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "inspect <file.epub>",
		Short:       "Show an EPUB's package metadata and navigation blocks",
		Args:        cobra.ExactArgs(1),
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := epub.Inspect(args[0])
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			md := info.Metadata
			view := inspectView{
				Path:             info.Path,
				Package:          info.PackagePath,
				Version:          info.Version,
				Titles:           md.Titles,
				Creators:         md.Creators,
				Rights:           md.Rights,
				Identifiers:      md.Identifiers,
				Subjects:         md.Subjects,
				Language:         md.Language,
				Date:             md.Date,
				NavPath:          info.NavPath,
				NavTypes:         info.NavTypes,
				FirstEntry:       info.FirstEntry,
				FirstEntryStored: info.FirstEntryStored,
				Entries:          info.Entries,
			}
			if asJSON {
				return writeJSON(cmd, view)
			}

			rows := [][]string{
				{"Title", strings.Join(view.Titles, "; ")},
				{"Author", md.Author()},
				{"Rights", view.Rights},
				{"Identifier", strings.Join(view.Identifiers, "; ")},
				{"Subjects", strings.Join(view.Subjects, ", ")},
				{"Language", languageLabel(view.Language)},
				{"Date", view.Date},
				{"EPUB version", view.Version},
				{"Package", view.Package},
				{"Navigation", view.NavPath},
				{"Nav blocks", strings.Join(view.NavTypes, ", ")},
				{"First entry", fmt.Sprintf("%s (stored: %s)", view.FirstEntry, yesNo(view.FirstEntryStored))},
				{"Entries", fmt.Sprintf("%d", view.Entries)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, tableLayout{wrap: []int{1}}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func languageLabel(tag string) string {
	if tag == "" {
		return ""
	}
	if name := language.Name(tag); name != tag {
		return fmt.Sprintf("%s (%s)", tag, name)
	}
	return tag
}
