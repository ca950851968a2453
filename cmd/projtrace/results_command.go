package main

import (
	"github.com/spf13/cobra"

	"projtrace/internal/config"
	"projtrace/internal/resultindex"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var imageFlag string
	var latest bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "results",
		Short: "List recorded runs from the results index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, _, _, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			image := ""
			if imageFlag != "" {
				if image, err = config.ExpandPath(imageFlag); err != nil {
					return err
				}
			}

			var runs []resultindex.Run
			if err := ctx.withIndex(runCtx, func(index *resultindex.Store) error {
				if latest && image != "" {
					run, err := index.Latest(runCtx, image)
					if err != nil {
						return err
					}
					runs = []resultindex.Run{run}
					return nil
				}
				runs, err = index.Runs(runCtx, image)
				return err
			}); err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, newRunViews(runs))
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&imageFlag, "image", "", "Only list runs of this image")
	cmd.Flags().BoolVar(&latest, "latest", false, "Only the most recent run (requires --image)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}
