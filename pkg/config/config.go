// Package config loads injector settings from .injector.yaml, INJECTOR_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"injector/pkg/expand"
	"injector/pkg/injector"
)

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "INJECTOR"

// Keys shared by the config file, environment and flags.
const (
	KeyMin         = "min"
	KeyTemplate    = "template"
	KeyStartTag    = "starttag"
	KeyEndTag      = "endtag"
	KeyIgnorePath  = "ignorepath"
	KeyDestFile    = "destfile"
	KeyTransform   = "transform"
	KeyBowerPrefix = "bower.prefix"
	KeyBowerName   = "bower.manifest"
	KeyBowerDir    = "bower.directory"
	KeyBowerDev    = "bower.dev"
	KeyTargets     = "targets"
	KeyLogLevel    = "log-level"
)

// Config is the complete configuration of the injector CLI.
type Config struct {
	Min        bool              `mapstructure:"min" yaml:"min"`
	Template   string            `mapstructure:"template" yaml:"template,omitempty"`
	StartTag   string            `mapstructure:"starttag" yaml:"starttag"`
	EndTag     string            `mapstructure:"endtag" yaml:"endtag"`
	IgnorePath []string          `mapstructure:"ignorepath" yaml:"ignorepath,omitempty"`
	DestFile   string            `mapstructure:"destfile" yaml:"destfile,omitempty"`
	Transform  map[string]string `mapstructure:"transform" yaml:"transform,omitempty"`
	Bower      BowerConfig       `mapstructure:"bower" yaml:"bower"`
	Targets    []expand.Target   `mapstructure:"targets" yaml:"targets,omitempty"`
	LogLevel   string            `mapstructure:"log-level" yaml:"log-level"`
}

// BowerConfig configures dependency manifest resolution.
type BowerConfig struct {
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	Manifest  string `mapstructure:"manifest" yaml:"manifest"`
	Directory string `mapstructure:"directory" yaml:"directory,omitempty"`
	Dev       bool   `mapstructure:"dev" yaml:"dev"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMin, false)
	v.SetDefault(KeyTemplate, "")
	v.SetDefault(KeyDestFile, "")
	v.SetDefault(KeyIgnorePath, []string{})
	v.SetDefault(KeyStartTag, injector.DefaultStartTag)
	v.SetDefault(KeyEndTag, injector.DefaultEndTag)
	v.SetDefault(KeyBowerPrefix, injector.DefaultBowerPrefix)
	v.SetDefault(KeyBowerName, injector.DefaultBowerManifest)
	v.SetDefault(KeyBowerDir, "")
	v.SetDefault(KeyBowerDev, false)
	v.SetDefault(KeyLogLevel, "info")
}

// ReadInConfig locates and reads the config file. Resolution order:
//  1. cfgFile, usually the --config flag
//  2. the INJECTOR_CONFIG_FILE environment variable
//  3. .injector.yaml in the working directory
//
// A missing default config file is not an error; an explicitly named one is.
// It returns the file used, or "" when none was read.
func ReadInConfig(v *viper.Viper, cfgFile string) (string, error) {
	explicit := cfgFile
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".injector")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Slices bound to flags or env vars are not always visible to Unmarshal.
	if v.IsSet(KeyIgnorePath) && len(cfg.IgnorePath) == 0 {
		cfg.IgnorePath = v.GetStringSlice(KeyIgnorePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration errors that would make every run fail.
func (c *Config) Validate() error {
	if c.StartTag == "" {
		return errors.New("starttag must not be empty")
	}
	if c.EndTag == "" {
		return errors.New("endtag must not be empty")
	}
	for i, t := range c.Targets {
		if t.Dest == "" {
			return fmt.Errorf("targets[%d]: dest must not be empty", i)
		}
		if len(t.Src) == 0 {
			return fmt.Errorf("targets[%d]: src must not be empty", i)
		}
	}
	for ext, pattern := range c.Transform {
		if !strings.Contains(pattern, injector.FilePathPlaceholder) {
			return fmt.Errorf("transform.%s: pattern must contain %s", ext, injector.FilePathPlaceholder)
		}
	}
	return nil
}

// InjectorOptions converts the configuration into engine options. Transform patterns
// apply to their extensions; other extensions keep the default rendering.
func (c *Config) InjectorOptions() injector.Options {
	opts := injector.Options{
		Min:         c.Min,
		Template:    c.Template,
		StartTag:    c.StartTag,
		EndTag:      c.EndTag,
		IgnorePaths: c.IgnorePath,
		DestFile:    c.DestFile,
		Bower: injector.BowerOptions{
			ManifestName: c.Bower.Manifest,
			Prefix:       c.Bower.Prefix,
			Directory:    c.Bower.Directory,
			IncludeDev:   c.Bower.Dev,
		},
	}
	if len(c.Transform) > 0 {
		patterns := make(map[string]string, len(c.Transform))
		for ext, pattern := range c.Transform {
			patterns[strings.ToLower(strings.TrimPrefix(ext, "."))] = pattern
		}
		opts.Transform = injector.PatternTransformer{Patterns: patterns, Fallback: injector.DefaultTransformer{}}
	}
	return opts
}

// Groups expands the configured targets into file groups.
func (c *Config) Groups(logger *zap.Logger) ([]injector.FileGroup, error) {
	return expand.Groups(c.Targets, logger)
}
