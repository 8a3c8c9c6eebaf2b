package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quire/internal/history"
	"quire/internal/job"
)

type historyView struct {
	RunID        string `json:"run_id"`
	Variant      string `json:"variant"`
	Status       string `json:"status"`
	StartedAt    string `json:"started_at"`
	Duration     string `json:"duration,omitempty"`
	Output       string `json:"output,omitempty"`
	SHA256       string `json:"sha256,omitempty"`
	Title        string `json:"title,omitempty"`
	FailedStage  string `json:"failed_stage,omitempty"`
	FailureKind  string `json:"failure_kind,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var variantFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "Build history is disabled (history.enabled = false)")
				return nil
			}
			filter := history.Filter{Limit: limit}
			if variantFlag != "" {
				variant, ok := job.ParseVariant(variantFlag)
				if !ok {
					return fmt.Errorf("unknown variant %q (want standard or google-play)", variantFlag)
				}
				filter.Variant = string(variant)
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open build history: %w", err)
			}
			defer store.Close()
			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			views := make([]historyView, 0, len(records))
			for _, rec := range records {
				views = append(views, toHistoryView(rec))
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(out, "No builds recorded")
				return nil
			}

			rows := make([][]string, 0, len(views))
			for _, v := range views {
				result := v.Output
				if v.Status == string(job.StatusFailed) {
					result = fmt.Sprintf("%s: %s", v.FailedStage, v.ErrorMessage)
				}
				rows = append(rows, []string{shortRunID(v.RunID), v.Variant, v.Status, v.StartedAt, v.Duration, result})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Variant", "Status", "Started", "Duration", "Result"},
				rows,
				tableLayout{right: []int{4}, wrap: []int{5}},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of builds to show")
	cmd.Flags().StringVar(&variantFlag, "variant", "", "Only show one variant")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func toHistoryView(rec history.Record) historyView {
	view := historyView{
		RunID:        rec.RunID,
		Variant:      rec.Variant,
		Status:       rec.Status,
		StartedAt:    rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
		Output:       rec.OutputPath,
		SHA256:       rec.OutputSHA256,
		Title:        rec.Title,
		FailedStage:  rec.FailedStage,
		FailureKind:  rec.FailureKind,
		ErrorMessage: truncate(rec.ErrorMessage, 120),
	}
	if rec.Duration > 0 {
		view.Duration = rec.Duration.Round(time.Second / 10).String()
	}
	return view
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
