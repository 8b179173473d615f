// Package metrics exposes task and live-reload counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yaklabco/themepipe/pkg/task"
)

const namespace = "themepipe"

// Result labels for task outcomes.
const (
	ResultSuccess  = "success"
	ResultNonfatal = "nonfatal"
	ResultFailed   = "failed"
)

// Recorder collects themepipe metrics into its own registry. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	reg *prom.Registry

	taskRuns      *prom.CounterVec
	taskDuration  *prom.HistogramVec
	taskResults   *prom.CounterVec
	reloads       prom.Counter
	reloadClients prom.Gauge
	triggers      *prom.CounterVec
	coalesced     *prom.CounterVec
}

var _ task.Observer = (*Recorder)(nil)

// New constructs a Recorder and registers its collectors with reg. A nil reg
// gets a fresh registry.
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		taskRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Task runs started, by task",
		}, []string{"task"}),
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of task runs",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task results by outcome",
		}, []string{"task", "result"}),
		reloads: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Live-reload broadcasts sent to browsers",
		}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "reload_clients",
			Help:      "Browsers currently connected for live reload",
		}),
		triggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_triggers_total",
			Help:      "Watch chain runs started, by binding",
		}, []string{"binding"}),
		coalesced: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_coalesced_total",
			Help:      "File events folded into an already pending run, by binding",
		}, []string{"binding"}),
	}
	reg.MustRegister(r.taskRuns, r.taskDuration, r.taskResults, r.reloads, r.reloadClients, r.triggers, r.coalesced)
	return r
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// TaskStarted implements task.Observer.
func (r *Recorder) TaskStarted(name string) {
	if r == nil {
		return
	}
	r.taskRuns.WithLabelValues(name).Inc()
}

// TaskFinished implements task.Observer.
func (r *Recorder) TaskFinished(name string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.taskDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.taskResults.WithLabelValues(name, resultLabel(err)).Inc()
}

// IncReload counts one live-reload broadcast.
func (r *Recorder) IncReload() {
	if r == nil {
		return
	}
	r.reloads.Inc()
}

// SetReloadClients records the number of connected live-reload clients.
func (r *Recorder) SetReloadClients(n int) {
	if r == nil {
		return
	}
	r.reloadClients.Set(float64(n))
}

// IncTrigger counts one chain run started for binding.
func (r *Recorder) IncTrigger(binding string) {
	if r == nil {
		return
	}
	r.triggers.WithLabelValues(binding).Inc()
}

// IncCoalesced counts one event absorbed by a pending run of binding.
func (r *Recorder) IncCoalesced(binding string) {
	if r == nil {
		return
	}
	r.coalesced.WithLabelValues(binding).Inc()
}

// Handler serves the recorder's registry. A nil recorder serves an empty
// registry.
func (r *Recorder) Handler() http.Handler {
	reg := r.Registry()
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case task.IsNonfatal(err):
		return ResultNonfatal
	default:
		return ResultFailed
	}
}
