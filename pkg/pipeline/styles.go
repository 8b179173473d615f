package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/samber/lo"

	"github.com/yaklabco/themepipe/config"
	"github.com/yaklabco/themepipe/internal/dryrun"
	"github.com/yaklabco/themepipe/internal/ish"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/task"
)

// SassBinary is the Dart Sass executable used by SassCLI.
const SassBinary = "sass"

// StyleCompiler turns a Sass entry point into plain CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, entry string, includePaths []string, sourceMap bool) ([]byte, error)
}

// SassCLI compiles with the Dart Sass command-line tool.
type SassCLI struct {
	Binary string
}

// Compile runs `sass` on entry and returns the CSS it prints. With sourceMap
// set the map is embedded in the output.
func (s SassCLI) Compile(ctx context.Context, entry string, includePaths []string, sourceMap bool) ([]byte, error) {
	binary := s.Binary
	if binary == "" {
		binary = SassBinary
	}

	args := lo.Map(includePaths, func(p string, _ int) string { return "--load-path=" + p })
	args = append(args, "--style=expanded", "--no-error-css")
	if sourceMap {
		args = append(args, "--embed-source-map", "--embed-sources")
	} else {
		args = append(args, "--no-source-map")
	}
	args = append(args, entry)

	var stdout, stderr bytes.Buffer
	if _, err := ish.Exec(ctx, nil, &stdout, &stderr, binary, args...); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w\n%s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Styles is the style pipeline: Sass entry → CSS → prefixed (and, in
// production, minified) app.css.
type Styles struct {
	entry        string
	includePaths []string
	output       string
	engines      []api.Engine
	mode         config.Mode
	compiler     StyleCompiler
}

// NewStyles builds the style pipeline for cfg. A nil compiler means SassCLI.
func NewStyles(cfg *config.Config, compiler StyleCompiler) *Styles {
	if compiler == nil {
		compiler = SassCLI{}
	}
	return &Styles{
		entry:        cfg.StyleEntry(),
		includePaths: cfg.Paths.Sass,
		output:       cfg.CSSOutput(),
		engines:      Engines(cfg.Compatibility),
		mode:         cfg.Mode,
		compiler:     compiler,
	}
}

// Output is the path of the CSS artifact.
func (s *Styles) Output() string {
	return s.output
}

// Task returns the pipeline as the "sass" task.
func (s *Styles) Task() task.Task {
	return task.Describe(task.Func("sass", s.Run), "Compile the theme's Sass into static/css/app.css")
}

// Run compiles, prefixes and writes app.css. A compile or prefixing error is
// logged and returned as nonfatal; the previous artifact is left in place.
func (s *Styles) Run(ctx context.Context) error {
	dev := !s.mode.Production

	css, err := s.compiler.Compile(ctx, s.entry, s.includePaths, dev)
	if err != nil {
		slog.Error("sass compile failed",
			slog.String(log.File, s.entry),
			slog.Any(log.Error, err),
		)
		return task.Nonfatal(fmt.Errorf("compiling %s: %w", s.entry, err))
	}
	if dryrun.Skip("write", s.output) {
		return nil
	}

	out, err := s.transform(css)
	if err != nil {
		slog.Error("css transform failed",
			slog.String(log.File, s.entry),
			slog.Any(log.Error, err),
		)
		return task.Nonfatal(err)
	}

	if err := writeArtifact(s.output, out); err != nil {
		return err
	}
	slog.Info("styles built",
		slog.String(log.Path, s.output),
		slog.String(log.Mode, s.mode.String()),
	)
	return nil
}

func (s *Styles) transform(css []byte) ([]byte, error) {
	opts := api.TransformOptions{
		Loader:     api.LoaderCSS,
		Engines:    s.engines,
		Sourcefile: filepath.Base(s.entry),
		LogLevel:   api.LogLevelSilent,
	}
	if s.mode.Production {
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
		opts.LegalComments = api.LegalCommentsNone
	} else {
		opts.Sourcemap = api.SourceMapInline
	}

	result := api.Transform(string(css), opts)
	if err := messagesError(result.Errors); err != nil {
		return nil, err
	}
	return result.Code, nil
}
