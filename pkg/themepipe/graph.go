// Package themepipe wires the pipelines, the site generator, the preview
// server and the watch scheduler into the task graph exposed on the command
// line.
//
// The graph is built once from a loaded config and is explicit: every entry
// point holds direct references to the tasks it runs. Names exist only so the
// command line can look entry points up.
package themepipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/yaklabco/themepipe/config"
	"github.com/yaklabco/themepipe/internal/ish"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/htmlfmt"
	"github.com/yaklabco/themepipe/pkg/hugo"
	"github.com/yaklabco/themepipe/pkg/metrics"
	"github.com/yaklabco/themepipe/pkg/pipeline"
	"github.com/yaklabco/themepipe/pkg/preview"
	"github.com/yaklabco/themepipe/pkg/task"
	"github.com/yaklabco/themepipe/pkg/toposort"
	"github.com/yaklabco/themepipe/pkg/watch"
)

// Entry point names.
const (
	TaskSass       = "sass"
	TaskJavaScript = "javascript"
	TaskBuild      = "build"
	TaskClean      = "clean"
	TaskHugo       = "hugo"
	TaskLint       = "lint"
	TaskWatch      = "watch"
	TaskServer     = "server"

	// DefaultTask runs when no task is named.
	DefaultTask = "default"
)

const shutdownTimeout = 5 * time.Second

// ErrUnknownTask is returned when a name matches no entry point.
var ErrUnknownTask = errors.New("unknown task")

// Options overrides parts of the graph. The zero value builds everything
// from the config.
type Options struct {
	// Compiler compiles Sass. Nil means the sass CLI.
	Compiler pipeline.StyleCompiler

	// Metrics records task runs. Nil gets a fresh recorder.
	Metrics *metrics.Recorder

	// Server replaces the preview server built from the config.
	Server *preview.Server
}

// Graph holds the entry points and the components behind them.
type Graph struct {
	cfg *config.Config

	styles  *pipeline.Styles
	scripts *pipeline.Scripts
	hugo    *hugo.Generator
	server  *preview.Server
	watcher *watch.Scheduler
	metrics *metrics.Recorder

	entries map[string]task.Task
	order   []string
}

// New builds the graph for cfg.
func New(cfg *config.Config, opts Options) (*Graph, error) {
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.New(nil)
	}
	server := opts.Server
	if server == nil {
		server = preview.FromConfig(cfg, rec)
	}

	g := &Graph{
		cfg:     cfg,
		styles:  pipeline.NewStyles(cfg, opts.Compiler),
		scripts: pipeline.NewScripts(cfg),
		hugo:    hugo.New(cfg),
		server:  server,
		metrics: rec,
		entries: make(map[string]task.Task),
	}

	sass := g.styles.Task()
	javascript := g.scripts.Task()
	build := task.Describe(
		task.Parallel(TaskBuild, sass, javascript),
		"Build the theme's static folder: styles and scripts in parallel",
	)
	clean := task.Describe(task.Func(TaskClean, func(context.Context) error {
		return ish.Rm(cfg.Paths.Public)
	}), "Delete the site's public directory")
	hugoTask := g.hugo.Task()
	lintOpts := htmlfmt.Options{IndentSize: cfg.Lint.IndentSize, PreserveNewlines: cfg.Lint.PreserveNewlines}
	lint := task.Describe(task.Func(TaskLint, func(ctx context.Context) error {
		return htmlfmt.FormatTree(ctx, cfg.Paths.Public, lintOpts)
	}), "Reformat the generated HTML in place")
	reload := server.Hub().Task()

	bindings := g.bindings(sass, javascript, hugoTask, lint, reload)
	watcher, err := watch.New(watch.Options{Debounce: cfg.Watch.Debounce, Metrics: rec}, bindings...)
	if err != nil {
		return nil, err
	}
	g.watcher = watcher
	watchTask := watcher.Task()

	serverTask := task.Describe(
		task.Series(TaskServer, g.hugo.VersionTask(), build, clean, hugoTask, lint, server.Task(), watchTask),
		"Build the site, run the preview server, and watch for file changes",
	)

	for _, t := range []task.Task{sass, javascript, build, clean, hugoTask, lint, watchTask, serverTask} {
		g.entries[t.Name()] = t
	}
	order, err := g.sortEntries()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// bindings returns the watch table: each source group re-runs what it
// affects, then hugo and lint, then reloads browsers once.
func (g *Graph) bindings(sass, javascript, hugoTask, lint, reload task.Task) []watch.Binding {
	chains := map[string]task.Task{
		config.GroupStyles:       task.Series("rebuild-styles", sass, hugoTask, lint, reload),
		config.GroupScripts:      task.Series("rebuild-scripts", javascript, hugoTask, lint, reload),
		config.GroupThemeContent: task.Series("rebuild-theme", hugoTask, lint, reload),
		config.GroupSiteContent:  task.Series("rebuild-site", hugoTask, lint, reload),
	}
	return lo.Map(g.cfg.WatchGroups(), func(wg config.WatchGroup, _ int) watch.Binding {
		return watch.Binding{Name: wg.Name, Patterns: wg.Patterns, Chain: chains[wg.Name]}
	})
}

// Lookup returns the entry point called name, case-insensitively. "default"
// resolves to server.
func (g *Graph) Lookup(name string) (task.Task, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == DefaultTask || name == "" {
		name = TaskServer
	}
	t, ok := g.entries[name]
	return t, ok
}

// Names returns the entry point names with every entry after the entries it
// runs.
func (g *Graph) Names() []string {
	return slices.Clone(g.order)
}

// Metrics returns the graph's metrics recorder.
func (g *Graph) Metrics() *metrics.Recorder {
	return g.metrics
}

// Server returns the preview server.
func (g *Graph) Server() *preview.Server {
	return g.server
}

// Watcher returns the watch scheduler.
func (g *Graph) Watcher() *watch.Scheduler {
	return g.watcher
}

// Run runs the named entry points in order, or the default one when none is
// named. Runs are reported to the graph's metrics. The preview server, if
// started, is shut down before Run returns.
func (g *Graph) Run(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = []string{DefaultTask}
	}
	tasks := make([]task.Task, 0, len(names))
	for _, name := range names {
		t, ok := g.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTask, name)
		}
		tasks = append(tasks, t)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := g.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("preview server shutdown", slog.Any(log.Error, err))
		}
	}()

	ctx = task.WithObserver(ctx, g.metrics)
	for _, t := range tasks {
		if err := task.Run(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

type entryNode struct {
	name string
	deps []string
}

func (n entryNode) ID() string          { return n.name }
func (n entryNode) DependsOn() []string { return n.deps }

// sortEntries orders the entry points so each comes after the entries it
// contains, failing on duplicate names or cycles.
func (g *Graph) sortEntries() ([]string, error) {
	names := lo.Keys(g.entries)
	slices.Sort(names)

	nodes := make([]entryNode, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, entryNode{name: name, deps: g.contains(g.entries[name])})
	}
	sorted, err := toposort.Sort(nodes, false)
	if err != nil {
		return nil, fmt.Errorf("invalid task graph: %w", err)
	}
	return lo.Map(sorted, func(n entryNode, _ int) string { return n.name }), nil
}

// contains returns the names of the other entry points reachable from t.
func (g *Graph) contains(t task.Task) []string {
	var found []string
	var walk func(task.Task)
	walk = func(member task.Task) {
		for _, m := range task.Members(member) {
			if _, isEntry := g.entries[m.Name()]; isEntry && m.Name() != t.Name() {
				found = append(found, m.Name())
			}
			walk(m)
		}
	}
	walk(t)
	return lo.Uniq(found)
}
