package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"projtrace/internal/config"
	"projtrace/internal/diffimage"
	"projtrace/internal/projection"
	"projtrace/internal/services"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var scale int

	cmd := &cobra.Command{
		Use:   "preview <image> <box>",
		Short: "Write an enlarged crop of a box for visual checks",
		Args:  cobra.ExactArgs(2),
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
			box, ok := p.Record().Boxes[args[1]]
			if !ok {
				return services.Wrap(services.ErrNotFound, "preview", "box", fmt.Sprintf("unknown box %q", args[1]), nil)
			}

			target := outputPath
			if target == "" {
				target = fmt.Sprintf("%s.png", args[1])
			}
			if target, err = config.ExpandPath(target); err != nil {
				return err
			}
			if err := diffimage.SavePreview(p.Image(), box.X[0], box.X[1], box.Y[0], box.Y[1], scale, target); err != nil {
				return services.Wrap(services.ErrPersistence, "preview", "save", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (png, jpg, tif or bmp; default <box>.png)")
	cmd.Flags().IntVar(&scale, "scale", 4, "Integer enlargement factor")
	return cmd
}
