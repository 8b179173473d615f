// Package config loads themepipe's config.yml and resolves the theme and
// site paths derived from it.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/env"
)

// Config holds the immutable configuration for a themepipe run. It is built
// once by Load and shared by pointer; nothing mutates it afterwards.
type Config struct {
	// Compatibility is the browserslist-style target list used for CSS
	// prefixing. Scripts are lowered to Script.Target instead.
	Compatibility []string `mapstructure:"compatibility"`

	// Port is the preview server's TCP port.
	Port int `mapstructure:"port"`

	Paths  Paths  `mapstructure:"paths"`
	Hugo   Hugo   `mapstructure:"hugo"`
	Lint   Lint   `mapstructure:"lint"`
	Watch  Watch  `mapstructure:"watch"`
	Script Script `mapstructure:"script"`

	// Mode is derived from --production and THEMEPIPE_PRODUCTION, not read
	// from the file.
	Mode Mode `mapstructure:"-"`

	configFile string
	sassSet    bool
}

// Paths lists the directories and inputs themepipe works with. After Load
// every entry is absolute.
type Paths struct {
	// Sass is the list of include paths handed to the Sass compiler.
	Sass []string `mapstructure:"sass"`

	// JavaScript is the ordered list of script inputs. Entries may be globs.
	JavaScript []string `mapstructure:"javascript"`

	ThemeRoot string `mapstructure:"theme_root"`
	SiteRoot  string `mapstructure:"site_root"`
	Source    string `mapstructure:"source"`
	Static    string `mapstructure:"static"`
	Public    string `mapstructure:"public"`

	// Raw is an optional directory served under /_raw/ with listings.
	Raw string `mapstructure:"raw"`
}

// Hugo configures the site generator invocation.
type Hugo struct {
	Binary     string   `mapstructure:"binary"`
	Theme      string   `mapstructure:"theme"`
	MinVersion string   `mapstructure:"min_version"`
	Args       []string `mapstructure:"args"`
}

// Lint configures the HTML post-processor.
type Lint struct {
	IndentSize       int  `mapstructure:"indent_size"`
	PreserveNewlines bool `mapstructure:"preserve_newlines"`
}

// Watch configures the watch scheduler.
type Watch struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Script configures the script pipeline.
type Script struct {
	Target string `mapstructure:"target"`
}

// ConfigFile returns the absolute path of the file that was loaded.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// ConfigDir returns the directory holding the loaded config file.
func (c *Config) ConfigDir() string {
	return filepath.Dir(c.configFile)
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// File is the config file to read. Defaults to config.yml in the
	// working directory.
	File string

	// Production is the value of the --production flag.
	Production bool

	// Stderr is where warnings are written.
	// If nil, os.Stderr is used.
	Stderr io.Writer

	// SkipEnv skips reading environment variables.
	SkipEnv bool
}

// Load reads the config file exactly once and returns a validated Config.
// Values are layered as follows (later sources override earlier):
//  1. Defaults
//  2. The config file
//  3. Environment variables (THEMEPIPE_PORT, THEMEPIPE_PRODUCTION)
//
// A missing or malformed file, or a missing required key, is an error.
func Load(opts *LoadOptions) (*Config, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	file := opts.File
	if file == "" {
		file = DefaultFile
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %s: %w", file, err)
	}

	viperInstance := viper.New()
	setDefaults(viperInstance)
	viperInstance.SetConfigType("yaml")
	viperInstance.SetConfigFile(absFile)

	if err := viperInstance.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", absFile, err)
	}

	var cfg Config
	if err := viperInstance.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.configFile = absFile
	cfg.sassSet = viperInstance.IsSet("paths.sass")
	cfg.Mode = Mode{Production: opts.Production}

	var envErrs []error
	if !opts.SkipEnv {
		envErrs = applyEnvironmentOverrides(&cfg)
	}

	cfg.resolvePaths()

	result := cfg.Validate()
	for _, err := range envErrs {
		result.Errors = append(result.Errors, ValidationError{Field: "env", Message: err.Error()})
	}
	if result.HasWarnings() {
		result.WriteWarnings(opts.Stderr)
	}
	if result.HasErrors() {
		return nil, errors.New(result.ErrorMessage())
	}

	slog.Debug("loaded config",
		slog.String(log.File, cfg.configFile),
		slog.String(log.Mode, cfg.Mode.String()),
	)

	return &cfg, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// Environment variables take precedence over config file values; the
// production flag can only be turned on, never off.
func applyEnvironmentOverrides(cfg *Config) []error {
	var errs []error

	if port, ok, err := env.LookupInt(env.Port); err != nil {
		errs = append(errs, err)
	} else if ok {
		cfg.Port = port
	}

	if prod, err := env.ParseBoolEnv(env.Production); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", env.Production, err))
	} else if prod {
		cfg.Mode.Production = true
	}

	return errs
}
