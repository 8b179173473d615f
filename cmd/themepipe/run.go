package themepipe

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/yaklabco/themepipe/config"
	"github.com/yaklabco/themepipe/internal/dryrun"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/prettylog"
	"github.com/yaklabco/themepipe/pkg/themepipe"
	"github.com/yaklabco/themepipe/pkg/ui"
)

// RunParams holds the parsed command line.
type RunParams struct {
	BaseCtx context.Context //nolint:containedctx // handed over from cobra

	// Args are the task names, or list filters with --list.
	Args []string

	ConfigFile string
	Production bool
	Debug      bool
	Verbose    bool
	DryRun     bool
	List       bool

	Stdout io.Writer
	Stderr io.Writer
}

// Run loads the config, builds the task graph and runs the requested tasks.
// It stops on SIGINT or SIGTERM, letting in-flight work finish.
func Run(params RunParams) error {
	ctx := params.BaseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if params.Stdout == nil {
		params.Stdout = os.Stdout
	}
	if params.Stderr == nil {
		params.Stderr = os.Stderr
	}

	prettylog.Setup(params.Stderr, params.Debug)
	log.SetVerbose(params.Verbose)
	dryrun.SetRequested(params.DryRun)

	cfg, err := config.Load(&config.LoadOptions{
		File:       params.ConfigFile,
		Production: params.Production,
		Stderr:     params.Stderr,
	})
	if err != nil {
		titleStyle, blockStyle := ui.GetBlockStyles()
		_, _ = fmt.Fprintln(params.Stderr, titleStyle.Render("configuration error"))
		_, _ = fmt.Fprintln(params.Stderr, blockStyle.Render(err.Error()))
		return err
	}

	graph, err := themepipe.New(cfg, themepipe.Options{})
	if err != nil {
		return err
	}

	if params.List {
		return graph.List(params.Stdout, params.Args)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return graph.Run(ctx, params.Args...)
}
