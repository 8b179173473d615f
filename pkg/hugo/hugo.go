// Package hugo invokes the Hugo site generator.
package hugo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/yaklabco/themepipe/config"
	"github.com/yaklabco/themepipe/internal/ish"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/task"
)

// ErrVersionTooOld is returned by CheckVersion when hugo is older than the
// configured minimum.
var ErrVersionTooOld = errors.New("hugo version too old")

//nolint:gochecknoglobals // compiled once
var versionPattern = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// Generator runs `hugo -t <theme> -s <site>`.
type Generator struct {
	binary     string
	theme      string
	siteRoot   string
	minVersion string
	extraArgs  []string

	stdin          io.Reader
	stdout, stderr io.Writer
}

// New returns a Generator for cfg that shares the process's stdio.
func New(cfg *config.Config) *Generator {
	return &Generator{
		binary:     cfg.Hugo.Binary,
		theme:      cfg.Hugo.Theme,
		siteRoot:   cfg.Paths.SiteRoot,
		minVersion: cfg.Hugo.MinVersion,
		extraArgs:  cfg.Hugo.Args,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

// Args returns the generator's command-line arguments.
func (g *Generator) Args() []string {
	args := []string{"-t", g.theme, "-s", g.siteRoot}
	return append(args, g.extraArgs...)
}

// Task returns the generator as the "hugo" task.
func (g *Generator) Task() task.Task {
	return task.Describe(task.Func("hugo", g.Run), "Build the site with hugo into the public directory")
}

// Run invokes hugo and waits for it to exit. A spawn failure is logged and
// returned; a non-zero exit is returned with hugo's exit status. Either
// halts the enclosing chain.
func (g *Generator) Run(ctx context.Context) error {
	args := g.Args()
	slog.Debug("running hugo", slog.String(log.Cmd, g.binary), slog.Any(log.Args, args))

	ran, err := ish.Exec(ctx, g.stdin, g.stdout, g.stderr, g.binary, args...)
	if err == nil {
		return nil
	}
	if !ran {
		slog.Error("could not start hugo",
			slog.String(log.Cmd, g.binary),
			slog.Any(log.Error, err),
		)
		return err
	}
	slog.Error("hugo failed", slog.Int("exit", task.ExitStatus(err)))
	return err
}

// Version runs `hugo version` and parses the reported version.
func (g *Generator) Version(ctx context.Context) (*semver.Version, error) {
	out, err := ish.Output(ctx, g.binary, "version")
	if err != nil {
		return nil, err
	}
	return ParseVersion(out)
}

// ParseVersion extracts the version from `hugo version` output such as
// "hugo v0.120.4-f11bca5fec2ebb3a02727fb2a5cfb08da96fd9df+extended linux/amd64".
func ParseVersion(out string) (*semver.Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return nil, fmt.Errorf("no version in %q", out)
	}
	v, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, fmt.Errorf("parsing hugo version %q: %w", m[1], err)
	}
	return v, nil
}

// CheckVersion compares the installed hugo with HUGO.min_version. With no
// minimum configured it does nothing.
func (g *Generator) CheckVersion(ctx context.Context) error {
	if g.minVersion == "" {
		return nil
	}
	minimum, err := semver.NewVersion(g.minVersion)
	if err != nil {
		return nil //nolint:nilerr // reported as a config warning at load time
	}
	got, err := g.Version(ctx)
	if err != nil {
		return err
	}
	if got.LessThan(minimum) {
		return fmt.Errorf("%w: found %s, need at least %s", ErrVersionTooOld, got, minimum)
	}
	slog.Debug("hugo version ok", slog.String(log.Version, got.String()))
	return nil
}

// VersionTask wraps CheckVersion as a task whose failure is nonfatal.
func (g *Generator) VersionTask() task.Task {
	return task.Func("hugo-version", func(ctx context.Context) error {
		return task.Nonfatal(g.CheckVersion(ctx))
	})
}
