package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"injector/pkg/config"
	"injector/pkg/expand"
	"injector/pkg/injector"
	"injector/pkg/ui"
)

func newInjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject [DEST SRC...]",
		Short: "Inject source file references into templates",
		Long: `Inject references to source files into the marked regions of a template.

With arguments, SRC files and glob patterns are injected into DEST. Patterns starting
with '!' exclude files matched so far. Without arguments, every target of the config
file is injected.`,
		Example: `  injector inject index.html 'app/**/*.js' 'app/**/*.css' '!app/**/*.spec.js'
  injector inject --template index.tmpl.html index.html bower.json 'app/*.js'
  injector inject`,
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
			return inject(cmd.Context(), cmd.OutOrStdout(), cfg, groups, a.logger)
		},
	}

	addInjectFlags(cmd)
	return cmd
}

// injectArgs accepts no arguments or a DEST followed by at least one SRC.
func injectArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return errors.New("requires at least one SRC after DEST")
	}
	return nil
}

// injectFlagKeys maps the flags shared by inject and watch to configuration keys.
var injectFlagKeys = map[string]string{
	"min":          config.KeyMin,
	"template":     config.KeyTemplate,
	"ignore-path":  config.KeyIgnorePath,
	"dest-file":    config.KeyDestFile,
	"start-tag":    config.KeyStartTag,
	"end-tag":      config.KeyEndTag,
	"bower-prefix": config.KeyBowerPrefix,
	"bower-dev":    config.KeyBowerDev,
}

// addInjectFlags registers the flags shared by inject and watch. They are bound to the
// configuration when the command runs, since both commands share the same keys.
func addInjectFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("min", false, "inject the .min variant of a file when it exists")
	flags.String("template", "", "template to read instead of each destination")
	flags.StringSlice("ignore-path", nil, "path prefixes removed from injected paths")
	flags.String("dest-file", "", "file to write instead of each destination")
	flags.String("start-tag", "", "start marker, {{key}} is replaced by the classification key")
	flags.String("end-tag", "", "end marker, {{key}} is replaced by the classification key")
	flags.String("bower-prefix", "", "prefix of keys used for files resolved from a bower.json")
	flags.Bool("bower-dev", false, "also inject devDependencies of a bower.json")
}

// inject runs one injection and prints its report.
func inject(ctx context.Context, out io.Writer, cfg *config.Config, groups []injector.FileGroup, logger *zap.Logger) error {
	report, err := injector.New(cfg.InjectorOptions(), logger).Run(ctx, groups)
	if report != nil {
		ui.Report(out, report)
	}
	if err != nil {
		return err
	}
	if err := report.Err(); err != nil {
		return fmt.Errorf("%d of %d destinations failed: %w", len(report.Failed()), len(report.Groups), err)
	}
	return nil
}

// expandArgs expands SRC arguments relative to the working directory.
func expandArgs(patterns []string, logger *zap.Logger) ([]string, error) {
	return expand.Sources("", patterns, logger)
}
