// Package themepipe is the themepipe command line.
package themepipe

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/yaklabco/themepipe/cmd/themepipe/version"
	"github.com/yaklabco/themepipe/config"
	"github.com/yaklabco/themepipe/internal/dryrun"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/env"
	"github.com/yaklabco/themepipe/pkg/themepipe"
)

const shortDescription = "themepipe builds a Hugo theme's styles and scripts, runs hugo, " +
	"and previews the site with live reload."

type rootCmdOptions struct {
	runFunc func(params RunParams) error
}

// Option customizes the root command.
type Option func(*rootCmdOptions)

// withRunFunc replaces Run; it exists for tests.
func withRunFunc(fn func(params RunParams) error) Option {
	return func(opts *rootCmdOptions) {
		opts.runFunc = fn
	}
}

// NewRootCmd returns the themepipe root command.
func NewRootCmd(ctx context.Context, opts ...Option) *cobra.Command {
	rootCmdOpts := &rootCmdOptions{
		runFunc: Run,
	}
	for _, opt := range opts {
		opt(rootCmdOpts)
	}

	var runParams RunParams
	rootCmd := &cobra.Command{
		Use:   "themepipe [flags] [task...]",
		Short: shortDescription,
		Example: `	# Build, serve and watch (the default task)
	themepipe

	# Build the static folder for release
	themepipe build --production

	# Regenerate and reformat the site
	themepipe hugo lint

	# List the available tasks
	themepipe --list`,
		Version: version.StringColorized(ctx),
		ValidArgsFunction: func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			file, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			names, err := taskNames(file)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			runParams.Args = args
			runParams.Stdout = cmd.OutOrStdout()
			runParams.Stderr = os.Stderr
			runParams.BaseCtx = cmd.Context() //nolint:fatcontext // intentionally setting context from cmd

			return rootCmdOpts.runFunc(runParams)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&runParams.ConfigFile, "config", "c", config.DefaultFile, "config file to read")
	rootCmd.PersistentFlags().BoolVar(&runParams.Production, "production", env.FailsafeParseBoolEnv(env.Production, false), "build minified output without source maps")
	rootCmd.PersistentFlags().BoolVarP(&runParams.Debug, "debug", "d", env.FailsafeParseBoolEnv(env.Debug, false), "turn on debug messages")
	rootCmd.PersistentFlags().BoolVarP(&runParams.Verbose, "verbose", "v", log.Verbose(), "echo external commands before running them")
	rootCmd.PersistentFlags().BoolVar(&runParams.DryRun, "dryrun", dryrun.IsDryRun(), "report writes, deletions and commands instead of performing them")
	rootCmd.PersistentFlags().BoolVarP(&runParams.List, "list", "l", false, "list tasks, optionally filtered by the given words")

	return rootCmd
}

// taskNames loads the config quietly and returns the entry point names.
func taskNames(file string) ([]string, error) {
	cfg, err := config.Load(&config.LoadOptions{File: file, Stderr: io.Discard})
	if err != nil {
		return nil, err
	}
	graph, err := themepipe.New(cfg, themepipe.Options{})
	if err != nil {
		return nil, err
	}
	return append(graph.Names(), themepipe.DefaultTask), nil
}

// ExecuteWithFang runs the root Cobra command with Fang-specific options.
func ExecuteWithFang(ctx context.Context, rootCmd *cobra.Command) error {
	//nolint:wrapcheck // top-level error from cobra, wrapping not needed
	return fang.Execute(
		ctx, rootCmd, fang.WithVersion(rootCmd.Version), fang.WithoutManpage())
}
