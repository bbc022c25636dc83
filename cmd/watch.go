package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"injector/pkg/config"
	"injector/pkg/expand"
	"injector/pkg/injector"
	"injector/pkg/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "watch [DEST SRC...]",
		Short: "Inject once, then again whenever a source or template changes",
		Long: `Inject like the inject command, then watch the directories of all sources and
templates and inject again after changes. Destinations are not watched.
Sources are expanded again before every run, so new files matching a pattern are
picked up as long as they appear in a watched directory.`,
		Args: injectArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(a.v, cmd.Flags(), injectFlagKeys)
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			groups, err := a.groups(cfg, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if err := inject(ctx, out, cfg, groups, a.logger); err != nil {
				a.logger.Error("Injection failed", zap.Error(err))
			}

			w, err := watch.New(delay, a.logger)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Add(watchedDirs(cfg, groups)...); err != nil {
				return err
			}
			w.Ignore(destinations(cfg, groups)...)

			a.logger.Info("Watching for changes", zap.Duration("delay", delay))
			return w.Run(ctx, func(ctx context.Context, changed []string) error {
				a.logger.Info("Files changed, injecting again", zap.Strings("files", changed))
				groups, err := a.groups(cfg, args)
				if err != nil {
					return err
				}
				return inject(ctx, out, cfg, groups, a.logger)
			})
		},
	}

	addInjectFlags(cmd)
	cmd.Flags().DurationVar(&delay, "delay", 200*time.Millisecond, "time without changes before injecting again")
	return cmd
}

// watchedDirs returns the existing directories of every source and template.
func watchedDirs(cfg *config.Config, groups []injector.FileGroup) []string {
	var files []string
	for _, g := range groups {
		files = append(files, g.Sources...)
		if cfg.Template != "" {
			files = append(files, cfg.Template)
		} else {
			files = append(files, g.Dest)
		}
	}
	var dirs []string
	for _, dir := range expand.Dirs(files...) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// destinations returns the files written by an injection.
func destinations(cfg *config.Config, groups []injector.FileGroup) []string {
	if cfg.DestFile != "" {
		return []string{cfg.DestFile}
	}
	dests := make([]string, 0, len(groups))
	for _, g := range groups {
		dests = append(dests, g.Dest)
	}
	return dests
}
