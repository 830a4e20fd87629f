package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var runFlag string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove temporary run workspaces and extracted music",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.buildLogger(cfg)
			if err != nil {
				return err
			}

			release, err := lockWorkspace(cfg)
			if err != nil {
				return err
			}
			defer release()

			controller := ctx.buildController(cfg, logger, nil, runOverrides{}, nil)
			out := cmd.OutOrStdout()
			if runFlag != "" {
				if err := controller.CleanupRun(runFlag); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed workspace for run %s\n", runFlag)
				return nil
			}
			if err := controller.Cleanup(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %s and %s\n", cfg.Paths.WorkDir, cfg.Paths.MusicDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&runFlag, "run", "", "Only remove the workspace of this run")
	return cmd
}
