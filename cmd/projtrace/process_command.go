package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"projtrace/internal/config"
	"projtrace/internal/logging"
	"projtrace/internal/projection"
	"projtrace/internal/resultindex"
	"projtrace/internal/version"
)

// imageRun is what one processed image reports back to the commands.
type imageRun struct {
	Image   string
	RunID   string
	Report  projection.Report
	Results []projection.BoxResult
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var settingsPath string
	var jsonOutput bool
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "process <image>",
		Short: "Apply settings to an image and compute its layer-line statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			settings, err := settingsFromFlag(settingsPath)
			if err != nil {
				return err
			}
			image, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			var run imageRun
			process := func(index *resultindex.Store) error {
				run, err = processImage(runCtx, cfg, logger, image, settings, index)
				return err
			}
			if noIndex {
				err = process(nil)
			} else {
				err = ctx.withIndex(runCtx, process)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, newImageView(run.Image, run.RunID, run.Results))
			}
			printResults(cmd.OutOrStdout(), run.Results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "TOML file with boxes, peaks and globals")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Do not record the run in the results index")
	return cmd
}

func settingsFromFlag(path string) (projection.Settings, error) {
	if path == "" {
		return projection.Settings{}, nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return projection.Settings{}, err
	}
	return loadSettings(expanded)
}

// processImage opens image with its cache, runs the pipeline and records the
// results in index when one is given.
func processImage(ctx context.Context, cfg *config.Config, logger *slog.Logger, image string, settings projection.Settings, index *resultindex.Store) (imageRun, error) {
	p, err := projection.Open(ctx, image, cfg, logger)
	if err != nil {
		return imageRun{Image: image}, err
	}
	return finishRun(ctx, p, logger, settings, index)
}

func finishRun(ctx context.Context, p *projection.Processor, logger *slog.Logger, settings projection.Settings, index *resultindex.Store) (imageRun, error) {
	run := imageRun{Image: p.ImagePath()}
	report, err := p.Process(ctx, settings)
	if err != nil {
		return run, err
	}
	run.Report = report
	run.Results = p.Results()

	if index != nil && len(run.Results) > 0 {
		recorded, err := index.Add(ctx, run.Image, version.Current(), resultindex.RowsFromResults(run.Results))
		if err != nil {
			return run, err
		}
		run.RunID = recorded.ID
		logging.WithContext(ctx, logger).Debug("run recorded",
			logging.String("run_id", recorded.ID),
			logging.Int("peaks", len(recorded.Peaks)))
	}
	return run, nil
}
