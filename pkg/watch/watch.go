// Package watch re-runs task chains when the files bound to them change.
//
// A Scheduler owns one fsnotify watcher. Each Binding's patterns decide which
// directories are watched: a pattern with wildcards has its non-wildcard
// prefix watched recursively (directories created later are picked up), and
// a literal path has only its parent directory watched. Every change to a
// matching path triggers the binding's chain, subject to a per-binding
// debounce window and at most one queued follow-up run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/metrics"
	"github.com/yaklabco/themepipe/pkg/task"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 150 * time.Millisecond

// ErrNoBindings is returned by New when given nothing to watch.
var ErrNoBindings = errors.New("no watch bindings")

// Options configures a Scheduler.
type Options struct {
	// Debounce is the quiet period a binding waits for after a change
	// before running its chain.
	Debounce time.Duration

	// Metrics receives trigger counts. It may be nil.
	Metrics *metrics.Recorder
}

// Scheduler watches the filesystem and dispatches changes to bindings.
type Scheduler struct {
	bindings []*compiled
	debounce time.Duration
	metrics  *metrics.Recorder

	ready     chan struct{}
	readyOnce sync.Once

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	watched   map[string]bool
	recursive []string
	runners   map[string]*runner
}

// New compiles the bindings. Binding names must be unique.
func New(opts Options, bindings ...Binding) (*Scheduler, error) {
	if len(bindings) == 0 {
		return nil, ErrNoBindings
	}
	if dups := lo.FindDuplicates(lo.Map(bindings, func(b Binding, _ int) string { return b.Name })); len(dups) > 0 {
		return nil, fmt.Errorf("duplicate watch bindings: %s", strings.Join(dups, ", "))
	}

	s := &Scheduler{
		debounce: opts.Debounce,
		metrics:  opts.Metrics,
		ready:    make(chan struct{}),
		watched:  make(map[string]bool),
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	for _, b := range bindings {
		if b.Chain == nil {
			return nil, fmt.Errorf("watch binding %q has no chain", b.Name)
		}
		c, err := compile(b)
		if err != nil {
			return nil, fmt.Errorf("watch binding %q: %w", b.Name, err)
		}
		s.bindings = append(s.bindings, c)
	}
	return s, nil
}

// Ready is closed once Run has installed its watches.
func (s *Scheduler) Ready() <-chan struct{} {
	return s.ready
}

// Task returns Run as the "watch" task.
func (s *Scheduler) Task() task.Task {
	return task.Describe(task.Func("watch", s.Run), "Watch sources and rebuild on change")
}

// Run watches until ctx is cancelled, then waits for in-flight chains to
// finish. Errors from chains are logged and never end the watch.
func (s *Scheduler) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	s.mu.Lock()
	s.watcher = w
	s.runners = make(map[string]*runner, len(s.bindings))
	for _, b := range s.bindings {
		s.runners[b.Name] = newRunner(ctx, &wg, b, s.debounce, s.metrics)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		for _, r := range s.runners {
			r.stop()
		}
		s.mu.Unlock()
		wg.Wait()
	}()

	if err := s.install(); err != nil {
		return err
	}
	s.readyOnce.Do(func() { close(s.ready) })
	slog.Info("watching for changes", slog.Int("dirs", s.watchCount()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handle(event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", slog.Any(log.Error, err))
		}
	}
}
