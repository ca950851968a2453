package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"projtrace/internal/config"
	"projtrace/internal/ptcache"
	"projtrace/internal/resultindex"
	"projtrace/internal/version"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage per-image cache records",
	}
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePathCommand(ctx))
	return cacheCmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "clear <image>...",
		Short: "Delete cached records so the next run starts from scratch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.session(cmd)
			if err != nil {
				return err
			}
			store := ptcache.New(cfg.Paths.CacheDirName, version.Current(), logger)
			out := cmd.OutOrStdout()

			for _, arg := range args {
				image, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				removed, err := store.Remove(image)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(out, "Removed %s\n", store.Path(image))
				} else {
					fmt.Fprintf(out, "No cache for %s\n", image)
				}

				if forget {
					if err := ctx.withIndex(runCtx, func(index *resultindex.Store) error {
						n, err := index.Forget(runCtx, image)
						if err == nil && n > 0 {
							fmt.Fprintf(out, "Forgot %d recorded run(s) of %s\n", n, image)
						}
						return err
					}); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "forget", false, "Also delete the image's runs from the results index")
	return cmd
}

func newCachePathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path <image>",
		Short: "Print where the cache record of an image lives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			image, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			store := ptcache.New(cfg.Paths.CacheDirName, version.Current(), nil)
			fmt.Fprintln(cmd.OutOrStdout(), store.Path(image))
			return nil
		},
	}
}
