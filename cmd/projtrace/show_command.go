package main

import (
	"github.com/spf13/cobra"

	"projtrace/internal/config"
	"projtrace/internal/projection"
	"projtrace/internal/services"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var boxName string

	cmd := &cobra.Command{
		Use:   "show <image>",
		Short: "Print cached results of an image without recomputing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			image, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			p, err := projection.Open(runCtx, image, cfg, logger)
			if err != nil {
				return err
			}

			var results []projection.BoxResult
			if boxName != "" {
				r, err := p.Result(boxName)
				if err != nil {
					return err
				}
				results = []projection.BoxResult{r}
			} else {
				results = p.Results()
				if len(results) == 0 && len(p.Record().Boxes) > 0 {
					return services.Wrap(services.ErrNotFound, "show", "results", "no computed results; run `projtrace process` first", nil)
				}
			}

			if jsonOutput {
				return writeJSON(cmd, newImageView(image, "", results))
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().StringVar(&boxName, "box", "", "Only show this box")
	return cmd
}
