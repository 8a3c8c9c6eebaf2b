package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quire/internal/job"
	"quire/internal/logging"
	"quire/internal/preflight"
	"quire/internal/workflow"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [standard|google-play]",
		Short: "Check binaries, source files and the build directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			variants := job.AllVariants()
			if len(args) == 1 {
				variant, ok := job.ParseVariant(args[0])
				if !ok {
					return fmt.Errorf("unknown variant %q (want standard or google-play)", args[0])
				}
				variants = []job.Variant{variant}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cfg, variants)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				kind := statusOK
				switch {
				case !r.Passed && r.Optional:
					kind = statusWarn
				case !r.Passed:
					kind = statusError
				}
				rows = append(rows, []string{r.Name, statusCell(kind, colorize), r.Detail})
			}
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, tableLayout{wrap: []int{2}}))

			runner := workflow.NewRunner(cfg, logging.NewNop())
			for _, variant := range variants {
				health, err := runner.StageHealth(cmd.Context(), variant)
				if err != nil {
					return err
				}
				stageRows := make([][]string, 0, len(health))
				for _, h := range health {
					kind := statusOK
					if !h.Ready {
						kind = statusError
					}
					stageRows = append(stageRows, []string{h.Name, statusCell(kind, colorize), h.Detail})
				}
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Stages: "+string(variant), colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderTable([]string{"Stage", "Status", "Detail"}, stageRows, tableLayout{wrap: []int{2}}))
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}
}
