package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"projtrace/internal/batch"
	"projtrace/internal/config"
	"projtrace/internal/infostore"
	"projtrace/internal/logging"
	"projtrace/internal/resultindex"
)

type batchItemView struct {
	Image      string  `json:"image"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Fits       int     `json:"fits"`
	Boxes      int     `json:"boxes"`
	RunID      string  `json:"run_id,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var settingsPath string
	var workers int
	var jsonOutput bool
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "batch <image>...",
		Short: "Apply one settings file to many images in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			settings, err := settingsFromFlag(settingsPath)
			if err != nil {
				return err
			}
			images := make([]string, len(args))
			for i, arg := range args {
				if images[i], err = config.ExpandPath(arg); err != nil {
					return err
				}
			}
			if workers <= 0 {
				workers = cfg.Batch.Workers
			}

			var outcomes []batch.Outcome[imageRun]
			run := func(index *resultindex.Store) error {
				outcomes = batch.RunWithOptions(runCtx, images, batch.Options{Workers: workers, Logger: logger},
					func(ctx context.Context, image string) (imageRun, error) {
						// settings is only read by Process, so every worker can share it.
						return processImage(ctx, cfg, logger, image, settings, index)
					})
				return nil
			}
			if noIndex {
				_ = run(nil)
			} else if err := ctx.withIndex(runCtx, run); err != nil {
				return err
			}

			failed := batch.Failed(outcomes)
			logging.WithContext(runCtx, logger).Info("batch finished",
				logging.Int("images", len(outcomes)),
				logging.Int("failed", failed),
				logging.Int("workers", workers))

			views := make([]batchItemView, len(outcomes))
			for i, o := range outcomes {
				views[i] = batchItemView{
					Image:      o.Path,
					Status:     outcomeStatus(o),
					Fits:       o.Value.Report.Count(infostore.StageFit),
					Boxes:      len(o.Value.Results),
					RunID:      o.Value.RunID,
					DurationMS: float64(o.Duration.Microseconds()) / 1000,
				}
				if o.Err != nil {
					views[i].Error = o.Err.Error()
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else {
				rows := make([][]string, len(views))
				for i, v := range views {
					rows[i] = []string{v.Image, v.Status, strconv.Itoa(v.Boxes), strconv.Itoa(v.Fits), formatNumber(v.DurationMS, 1), v.Error}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					textColumn("Image"),
					textColumn("Status"),
					numberColumn("Boxes"),
					numberColumn("Fits"),
					numberColumn("ms"),
					textColumn("Error"),
				}, rows))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d images failed", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "TOML file with boxes, peaks and globals")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel workers (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print a JSON summary")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Do not record runs in the results index")
	return cmd
}

func outcomeStatus(o batch.Outcome[imageRun]) string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Err != nil:
		return "failed"
	case o.Value.Report.Empty():
		return "cached"
	default:
		return "processed"
	}
}
