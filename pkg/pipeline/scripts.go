package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/samber/lo"

	"github.com/yaklabco/themepipe/config"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/globs"
	"github.com/yaklabco/themepipe/pkg/task"
)

// ScriptArtifact is the fixed name of the concatenated script.
const ScriptArtifact = "app.js"

//nolint:gochecknoglobals // lookup table
var scriptTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es6":    api.ES2015,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// Scripts is the script pipeline: ordered sources → transpiled → concatenated
// app.js, minified in production and carrying an index source map in
// development.
type Scripts struct {
	inputs []string
	output string
	target api.Target
	mode   config.Mode

	minifier func(code []byte) ([]byte, error)
}

// NewScripts builds the script pipeline for cfg. Scripts are lowered to the
// SCRIPT.target language level only; browser engines from the compatibility
// list drive CSS prefixing, since esbuild cannot lower let/const for the old
// browsers those lists usually name.
func NewScripts(cfg *config.Config) *Scripts {
	target, ok := scriptTargets[strings.ToLower(cfg.Script.Target)]
	if !ok {
		slog.Warn("unknown script target, using es2015", slog.String("target", cfg.Script.Target))
		target = api.ES2015
	}
	s := &Scripts{
		inputs: cfg.Paths.JavaScript,
		output: cfg.JSOutput(),
		target: target,
		mode:   cfg.Mode,
	}
	s.minifier = s.minify
	return s
}

// Output is the path of the script artifact.
func (s *Scripts) Output() string {
	return s.output
}

// Task returns the pipeline as the "javascript" task.
func (s *Scripts) Task() task.Task {
	return task.Describe(task.Func("javascript", s.Run), "Transpile and concatenate the theme's JavaScript into static/js/app.js")
}

// Files expands the configured inputs into the ordered list of files to
// concatenate. Glob entries expand in lexical order; a file listed twice
// keeps its first position.
func (s *Scripts) Files() ([]string, error) {
	var files []string
	for _, in := range s.inputs {
		if !globs.HasMeta(in) {
			files = append(files, in)
			continue
		}
		matches, err := globs.Expand(in)
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return lo.Uniq(files), nil
}

type transpiled struct {
	code      []byte
	sourceMap []byte
}

// Run transpiles, concatenates and writes app.js. A read or transpile error
// in any input is nonfatal and leaves the previous artifact in place. A
// minify failure is logged and the unminified script is written instead.
func (s *Scripts) Run(_ context.Context) error {
	files, err := s.Files()
	if err != nil {
		return task.Nonfatal(err)
	}

	parts := make([]transpiled, 0, len(files))
	for _, file := range files {
		part, err := s.transpile(file)
		if err != nil {
			slog.Error("javascript transpile failed",
				slog.String(log.File, file),
				slog.Any(log.Error, err),
			)
			return task.Nonfatal(fmt.Errorf("transpiling %s: %w", file, err))
		}
		parts = append(parts, part)
	}

	var out bytes.Buffer
	sections := make([]indexSection, 0, len(parts))
	for _, part := range parts {
		sections = append(sections, indexSection{line: bytes.Count(out.Bytes(), []byte("\n")), sourceMap: part.sourceMap})
		out.Write(part.code)
		if len(part.code) > 0 && !bytes.HasSuffix(part.code, []byte("\n")) {
			out.WriteByte('\n')
		}
	}

	result := out.Bytes()
	if s.mode.Production {
		minified, err := s.minifier(result)
		if err != nil {
			slog.Error("javascript minify failed, writing unminified output",
				slog.String(log.Path, s.output),
				slog.Any(log.Error, err),
			)
		} else {
			result = minified
		}
	} else {
		comment, err := sourceMapComment(ScriptArtifact, sections)
		if err != nil {
			return task.Nonfatal(err)
		}
		result = append(result, comment...)
	}

	if err := writeArtifact(s.output, result); err != nil {
		return err
	}
	slog.Info("scripts built",
		slog.String(log.Path, s.output),
		slog.Int(log.Files, len(files)),
		slog.String(log.Mode, s.mode.String()),
	)
	return nil
}

func (s *Scripts) transpile(file string) (transpiled, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return transpiled{}, err
	}

	opts := api.TransformOptions{
		Loader:     api.LoaderJS,
		Target:     s.target,
		Sourcefile: s.sourceName(file),
		LogLevel:   api.LogLevelSilent,
	}
	if !s.mode.Production {
		opts.Sourcemap = api.SourceMapExternal
	}

	result := api.Transform(string(src), opts)
	if err := messagesError(result.Errors); err != nil {
		return transpiled{}, err
	}
	return transpiled{code: result.Code, sourceMap: result.Map}, nil
}

func (s *Scripts) minify(code []byte) ([]byte, error) {
	result := api.Transform(string(code), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            s.target,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	if err := messagesError(result.Errors); err != nil {
		return nil, err
	}
	return result.Code, nil
}

// sourceName is file relative to the artifact's directory, so browsers
// resolve the map's sources next to the served app.js.
func (s *Scripts) sourceName(file string) string {
	rel, err := filepath.Rel(filepath.Dir(s.output), file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
