package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quire/internal/history"
	"quire/internal/job"
	"quire/internal/workflow"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var keepIntermediates bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "build [standard|google-play]",
		Short: "Build the standard EPUB, the Google Play EPUB, or both",
		Long: "Build runs the pipeline for one variant, or for standard then google-play when\n" +
			"no variant is given. The first failure stops the run; intermediates stay in\n" +
			"the build directory for inspection.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variants := job.AllVariants()
			if len(args) == 1 {
				variant, ok := job.ParseVariant(args[0])
				if !ok {
					return fmt.Errorf("unknown variant %q (want standard or google-play)", args[0])
				}
				variants = []job.Variant{variant}
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			opts := []workflow.Option{workflow.WithKeepIntermediates(keepIntermediates)}
			if skipPreflight {
				opts = append(opts, workflow.WithoutPreflight())
			}
			if cfg.History.Enabled {
				store, err := history.Open(cfg.History.Path)
				if err != nil {
					return fmt.Errorf("open build history: %w", err)
				}
				defer store.Close()
				opts = append(opts, workflow.WithHistory(store))
			}
			opts = append(opts, ctx.workflowOptions...)

			runner := workflow.NewRunner(cfg, logger, opts...)
			result, err := runner.Build(cmd.Context(), variants)
			out := cmd.OutOrStdout()
			if result != nil {
				for _, j := range result.Jobs {
					if j.Status == job.StatusSucceeded {
						fmt.Fprintf(out, "%s: %s\n", j.Variant, j.FinalPath)
					}
				}
			}
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			names := make([]string, 0, len(variants))
			for _, v := range variants {
				names = append(names, string(v))
			}
			fmt.Fprintf(out, "Built %s (run %s)\n", strings.Join(names, ", "), result.RunID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepIntermediates, "keep-intermediates", false, "Leave intermediate files in the build directory")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip binary and input checks")
	return cmd
}
