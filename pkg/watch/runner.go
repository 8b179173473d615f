package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/metrics"
	"github.com/yaklabco/themepipe/pkg/task"
)

// runner serializes the runs of one binding's chain.
//
// Triggers inside the debounce window restart the window. When the window
// closes while the chain is running, exactly one follow-up run is queued;
// later triggers fold into it. In-flight runs are never interrupted.
type runner struct {
	name    string
	chain   task.Task
	window  time.Duration
	metrics *metrics.Recorder

	ctx context.Context //nolint:containedctx // lifetime of the scheduler
	wg  *sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	queued  bool
	stopped bool
}

func newRunner(ctx context.Context, wg *sync.WaitGroup, b *compiled, window time.Duration, rec *metrics.Recorder) *runner {
	return &runner{
		name:    b.Name,
		chain:   b.Chain,
		window:  window,
		metrics: rec,
		ctx:     ctx,
		wg:      wg,
	}
}

// trigger records a change for the binding.
func (r *runner) trigger(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	slog.Debug("change detected", slog.String(log.Binding, r.name), slog.String(log.Path, path))
	if r.timer != nil && r.timer.Stop() {
		r.metrics.IncCoalesced(r.name)
	}
	r.timer = time.AfterFunc(r.window, r.fire)
}

// fire runs when the debounce window closes.
func (r *runner) fire() {
	r.mu.Lock()
	r.timer = nil
	if r.stopped {
		r.mu.Unlock()
		return
	}
	if r.running {
		if r.queued {
			r.metrics.IncCoalesced(r.name)
		}
		r.queued = true
		r.mu.Unlock()
		return
	}
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go r.loop()
}

func (r *runner) loop() {
	defer r.wg.Done()
	for {
		r.runOnce()

		r.mu.Lock()
		if !r.queued || r.stopped {
			r.queued = false
			r.running = false
			r.mu.Unlock()
			return
		}
		r.queued = false
		r.mu.Unlock()
	}
}

func (r *runner) runOnce() {
	r.metrics.IncTrigger(r.name)
	slog.Info("rebuilding", slog.String(log.Binding, r.name), slog.String(log.Task, r.chain.Name()))

	if err := task.Run(r.ctx, r.chain); err != nil {
		slog.Error("rebuild failed; still watching",
			slog.String(log.Binding, r.name),
			slog.Any(log.Error, err),
		)
	}
}

// stop cancels a pending trigger and drops any queued run. A run already in
// progress completes.
func (r *runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	r.queued = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
