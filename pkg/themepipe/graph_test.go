package themepipe

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/themepipe/config"
	"github.com/yaklabco/themepipe/pkg/metrics"
	"github.com/yaklabco/themepipe/pkg/preview"
	"github.com/yaklabco/themepipe/pkg/task"
	"github.com/yaklabco/themepipe/pkg/watch"
)

type fakeCompiler struct{}

func (fakeCompiler) Compile(context.Context, string, []string, bool) ([]byte, error) {
	return []byte(".card {\n  display: flex;\n}\n"), nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(fakeHugoEnv, "1")

	site := filepath.Join(t.TempDir(), "site")
	theme := filepath.Join(site, "themes", "mytheme")
	source := filepath.Join(theme, "source")
	for _, dir := range []string{"js", "scss"} {
		require.NoError(t, os.MkdirAll(filepath.Join(source, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(source, "js", "a.js"), []byte("const a = () => 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "scss", "app.scss"), []byte(".card { display: flex; }\n"), 0o644))

	cfg := &config.Config{
		Compatibility: []string{"chrome >= 90"},
		Port:          3000,
	}
	cfg.Paths = config.Paths{
		Sass:       []string{filepath.Join(source, "scss")},
		JavaScript: []string{filepath.Join(source, "js", "a.js")},
		ThemeRoot:  theme,
		SiteRoot:   site,
		Source:     source,
		Static:     filepath.Join(theme, "static"),
		Public:     filepath.Join(site, "public"),
	}
	cfg.Hugo = config.Hugo{Binary: os.Args[0], Theme: "mytheme"}
	cfg.Lint = config.Lint{IndentSize: 2}
	cfg.Watch.Debounce = 100 * time.Millisecond
	cfg.Script.Target = "es2015"
	return cfg
}

func testGraph(t *testing.T, cfg *config.Config) *Graph {
	t.Helper()
	server := preview.New(preview.Options{Addr: "127.0.0.1:0", Public: cfg.Paths.Public})
	g, err := New(cfg, Options{Compiler: fakeCompiler{}, Server: server})
	require.NoError(t, err)
	return g
}

func memberNames(tk task.Task) []string {
	return lo.Map(task.Members(tk), func(m task.Task, _ int) string { return m.Name() })
}

func taskRuns(t *testing.T, rec *metrics.Recorder, name string) float64 {
	t.Helper()
	mfs, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "themepipe_task_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "task" && l.GetValue() == name {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestLookup(t *testing.T) {
	g := testGraph(t, testConfig(t))

	for _, name := range []string{TaskSass, TaskJavaScript, TaskBuild, TaskClean, TaskHugo, TaskLint, TaskWatch, TaskServer} {
		tk, ok := g.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, tk.Name())
		assert.NotEmpty(t, task.Description(tk), name)
	}

	def, ok := g.Lookup(DefaultTask)
	require.True(t, ok)
	assert.Equal(t, TaskServer, def.Name())

	upper, ok := g.Lookup("BUILD")
	require.True(t, ok)
	assert.Equal(t, TaskBuild, upper.Name())

	_, ok = g.Lookup("deploy")
	assert.False(t, ok)
}

func TestGraphShape(t *testing.T) {
	g := testGraph(t, testConfig(t))

	build, _ := g.Lookup(TaskBuild)
	assert.Equal(t, []string{TaskSass, TaskJavaScript}, memberNames(build))

	server, _ := g.Lookup(TaskServer)
	assert.Equal(t,
		[]string{"hugo-version", TaskBuild, TaskClean, TaskHugo, TaskLint, "serve", TaskWatch},
		memberNames(server),
	)
}

func TestNamesAreDependencyOrdered(t *testing.T) {
	g := testGraph(t, testConfig(t))
	names := g.Names()
	require.Len(t, names, 8)

	before := func(a, b string) {
		t.Helper()
		assert.Less(t, slices.Index(names, a), slices.Index(names, b), "%s should come before %s", a, b)
	}
	before(TaskSass, TaskBuild)
	before(TaskJavaScript, TaskBuild)
	before(TaskBuild, TaskServer)
	before(TaskHugo, TaskServer)
	before(TaskWatch, TaskServer)
	assert.Equal(t, TaskServer, names[len(names)-1])
}

func TestWatchChainsReloadOnceAtTheEnd(t *testing.T) {
	cfg := testConfig(t)
	g := testGraph(t, cfg)
	sass, _ := g.Lookup(TaskSass)
	javascript, _ := g.Lookup(TaskJavaScript)
	hugoTask, _ := g.Lookup(TaskHugo)
	lint, _ := g.Lookup(TaskLint)
	reload := g.Server().Hub().Task()

	chains := lo.SliceToMap(g.bindings(sass, javascript, hugoTask, lint, reload), func(b watch.Binding) (string, []string) {
		return b.Name, memberNames(b.Chain)
	})

	assert.Equal(t, []string{"sass", "hugo", "lint", "reload"}, chains[config.GroupStyles])
	assert.Equal(t, []string{"javascript", "hugo", "lint", "reload"}, chains[config.GroupScripts])
	assert.Equal(t, []string{"hugo", "lint", "reload"}, chains[config.GroupThemeContent])
	assert.Equal(t, []string{"hugo", "lint", "reload"}, chains[config.GroupSiteContent])
}

func TestRunBuild(t *testing.T) {
	cfg := testConfig(t)
	g := testGraph(t, cfg)

	vendor := filepath.Join(cfg.Paths.Static, "js", "vendor.js")
	printCSS := filepath.Join(cfg.Paths.Static, "css", "print.css")
	untouched := map[string][]byte{
		vendor:   []byte("window.vendor = true;\n"),
		printCSS: []byte("@media print { nav { display: none; } }\n"),
	}
	for path, content := range untouched {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644))
	}

	require.NoError(t, g.Run(context.Background(), TaskBuild))

	css, err := os.ReadFile(cfg.CSSOutput())
	require.NoError(t, err)
	assert.Contains(t, string(css), ".card")

	js, err := os.ReadFile(cfg.JSOutput())
	require.NoError(t, err)
	assert.Contains(t, string(js), "const a")

	for path, content := range untouched {
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content, got, "%s was modified", path)
	}
	assert.ElementsMatch(t, []string{"app.js", "vendor.js"}, dirNames(t, filepath.Dir(cfg.JSOutput())))
	assert.ElementsMatch(t, []string{"app.css", "print.css"}, dirNames(t, filepath.Dir(cfg.CSSOutput())))

	assert.InDelta(t, 1, taskRuns(t, g.Metrics(), TaskSass), 0)
	assert.InDelta(t, 1, taskRuns(t, g.Metrics(), TaskJavaScript), 0)
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return lo.Map(entries, func(e os.DirEntry, _ int) string { return e.Name() })
}

func TestRunUnknownTask(t *testing.T) {
	g := testGraph(t, testConfig(t))
	err := g.Run(context.Background(), TaskBuild, "deploy")
	require.ErrorIs(t, err, ErrUnknownTask)
	assert.InDelta(t, 0, taskRuns(t, g.Metrics(), TaskBuild), 0)
}

func TestRunCleanHugoLint(t *testing.T) {
	cfg := testConfig(t)
	g := testGraph(t, cfg)

	stale := filepath.Join(cfg.Paths.Public, "stale.html")
	require.NoError(t, os.MkdirAll(cfg.Paths.Public, 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("<p>old</p>"), 0o644))

	require.NoError(t, g.Run(context.Background(), TaskClean, TaskHugo, TaskLint))

	assert.NoFileExists(t, stale)
	page, err := os.ReadFile(filepath.Join(cfg.Paths.Public, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "\n      <h1>Hello</h1>\n      <p>Some <em>text</em></p>\n")
}

func TestCleanMissingPublicIsNoop(t *testing.T) {
	g := testGraph(t, testConfig(t))
	require.NoError(t, g.Run(context.Background(), TaskClean))
}

func TestWatchScriptChangeRunsOnlyScriptChain(t *testing.T) {
	cfg := testConfig(t)
	g := testGraph(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, TaskWatch) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("watch did not stop")
		}
	}()

	select {
	case <-g.Watcher().Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}

	src := cfg.Paths.JavaScript[0]
	require.NoError(t, os.WriteFile(src, []byte("const a = () => 2;\n"), 0o644))

	rec := g.Metrics()
	require.Eventually(t, func() bool { return taskRuns(t, rec, "reload") == 1 }, 10*time.Second, 50*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.InDelta(t, 1, taskRuns(t, rec, TaskJavaScript), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, TaskHugo), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, TaskLint), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, "reload"), 0)
	assert.InDelta(t, 0, taskRuns(t, rec, TaskSass), 0)

	js, err := os.ReadFile(cfg.JSOutput())
	require.NoError(t, err)
	assert.Contains(t, string(js), "2")
}

func TestRunDefaultServesAndRebuilds(t *testing.T) {
	cfg := testConfig(t)
	g := testGraph(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()
	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	}
	defer stop()

	select {
	case <-g.Watcher().Ready():
	case err := <-done:
		stopped = true
		t.Fatalf("server returned before watching: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher never became ready")
	}

	rec := g.Metrics()
	assert.InDelta(t, 1, taskRuns(t, rec, "hugo-version"), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, TaskSass), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, TaskJavaScript), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, TaskClean), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, TaskHugo), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, TaskLint), 0)

	js, err := os.ReadFile(cfg.JSOutput())
	require.NoError(t, err)
	assert.Contains(t, string(js), "//# sourceMappingURL=")

	addr, err := g.Server().Addr()
	require.NoError(t, err)
	resp, err := http.Get("http://" + addr.String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `<script src="/livereload.js"></script>`)
	assert.Contains(t, string(body), "<h1>Hello</h1>")

	require.NoError(t, os.WriteFile(cfg.Paths.JavaScript[0], []byte("const a = () => 3;\n"), 0o644))
	require.Eventually(t, func() bool { return taskRuns(t, rec, "reload") == 1 }, 10*time.Second, 50*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.InDelta(t, 1, taskRuns(t, rec, TaskSass), 0)
	assert.InDelta(t, 2, taskRuns(t, rec, TaskJavaScript), 0)
	assert.InDelta(t, 2, taskRuns(t, rec, TaskHugo), 0)
	assert.InDelta(t, 2, taskRuns(t, rec, TaskLint), 0)
	assert.InDelta(t, 1, taskRuns(t, rec, "reload"), 0)

	stop()
	_, err = g.Server().Addr()
	require.ErrorIs(t, err, preview.ErrNotStarted)
}

func TestList(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	g := testGraph(t, testConfig(t))

	var buf bytes.Buffer
	require.NoError(t, g.List(&buf, nil))
	out := buf.String()

	assert.Contains(t, out, "Tasks:")
	assert.Contains(t, out, "server (default) [W]")
	assert.Contains(t, out, "watch [W]")
	assert.Contains(t, out, "sass, javascript")
	assert.NotContains(t, out, "build [W]")
	assert.Contains(t, out, "[W] = keeps running and rebuilds on change")
}

func TestListFilters(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	g := testGraph(t, testConfig(t))

	var buf bytes.Buffer
	require.NoError(t, g.List(&buf, []string{"HTML"}))
	out := buf.String()
	assert.Contains(t, out, "lint")
	assert.NotContains(t, out, "javascript")

	buf.Reset()
	require.NoError(t, g.List(&buf, []string{"no-such-task"}))
	assert.Contains(t, buf.String(), "(no matching tasks)")
}
