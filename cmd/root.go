// Package cmd provides the command-line interface of the injector.
//
// Settings come from, in increasing order of precedence: built-in defaults, the config
// file (.injector.yaml, --config or INJECTOR_CONFIG_FILE), INJECTOR_* environment
// variables and command-line flags.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"injector/pkg/config"
	"injector/pkg/injector"
	"injector/pkg/logging"
	"injector/pkg/version"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	v          *viper.Viper
	cfgFile    string
	configUsed string
	logger     *zap.Logger
}

// Execute builds the command tree and runs it.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd returns the root command with all subcommands attached. Every call
// returns an independent tree with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:   version.AppName,
		Short: "Inject references to JavaScript, CSS and other files into HTML templates",
		Long: `injector scans source files, groups them by extension and writes a reference
to each of them between marker comments in a template:

  <!-- injector:js -->
  <script src="/app.js"></script>
  <!-- endinjector -->

Running it again recomputes every marked region, so templates can be injected in place.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .injector.yaml, can also use INJECTOR_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	bindFlags(a.v, rootCmd.PersistentFlags(), map[string]string{"log-level": config.KeyLogLevel})

	rootCmd.AddCommand(newInjectCmd(a), newWatchCmd(a), newConfigCmd(a), newVersionCmd())
	return rootCmd
}

// init reads the config file and builds the logger.
func (a *app) init() error {
	used, err := config.ReadInConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.configUsed = used

	logger, err := logging.New(a.v.GetString(config.KeyLogLevel), version.AppName, version.Version)
	if err != nil {
		return err
	}
	a.logger = logger
	if used != "" {
		a.logger.Debug("Using config file", zap.String("file", used))
	}
	return nil
}

// groups returns the file groups of a run: an ad-hoc group built from DEST and SRC
// arguments, or the targets of the configuration.
func (a *app) groups(cfg *config.Config, args []string) ([]injector.FileGroup, error) {
	if len(args) > 0 {
		sources, err := expandArgs(args[1:], a.logger)
		if err != nil {
			return nil, err
		}
		return []injector.FileGroup{{Sources: sources, Dest: args[0]}}, nil
	}

	groups, err := cfg.Groups(a.logger)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, errors.New("nothing to inject: pass DEST and SRC arguments or add targets to the config file")
	}
	return groups, nil
}

// bindFlags binds each flag to its configuration key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
		}
	}
}
