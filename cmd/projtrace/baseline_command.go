package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"projtrace/internal/config"
	"projtrace/internal/projection"
	"projtrace/internal/resultindex"
	"projtrace/internal/services"
)

func newBaselineCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "baseline <image> <box> <peak> [value]",
		Short: "Set the baseline of one peak and recompute its centroid and width",
		Long: "Set the baseline of one peak. value is an intensity, a percentage of the peak height " +
			"such as 40%, or omitted for half height. The baseline must stay below the peak.",
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			image, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			box := args[1]
			peak, err := strconv.Atoi(args[2])
			if err != nil {
				return services.Wrap(services.ErrValidation, "baseline", "peak index", args[2], err)
			}
			value := ""
			if len(args) == 4 {
				value = args[3]
			}

			p, err := projection.Open(runCtx, image, cfg, logger)
			if err != nil {
				return err
			}
			accepted, err := p.SetBaseline(runCtx, box, peak, value)
			if err != nil {
				return err
			}
			if !accepted {
				return services.Wrap(services.ErrValidation, "baseline", "set",
					fmt.Sprintf("baseline %q is not below the height of peak %d in box %q", value, peak, box), nil)
			}

			var run imageRun
			if err := ctx.withIndex(runCtx, func(index *resultindex.Store) error {
				run, err = finishRun(runCtx, p, logger, projection.Settings{}, index)
				return err
			}); err != nil {
				return err
			}

			result, err := p.Result(box)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, newImageView(image, run.RunID, []projection.BoxResult{result}))
			}
			printResults(cmd.OutOrStdout(), []projection.BoxResult{result})
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}
