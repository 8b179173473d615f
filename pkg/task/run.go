package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/ui"
)

type contextKey int

const observerKey contextKey = iota

// Observer is notified around every task run, leaves and groups alike.
type Observer interface {
	TaskStarted(name string)
	TaskFinished(name string, elapsed time.Duration, err error)
}

// WithObserver returns a context whose task runs report to obs.
func WithObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, observerKey, obs)
}

func observerFrom(ctx context.Context) Observer {
	obs, _ := ctx.Value(observerKey).(Observer)
	return obs
}

// run runs t, converting a panic into a fatal error so a misbehaving task
// cannot take down a long-running watch process.
func run(ctx context.Context, t Task) (err error) {
	obs := observerFrom(ctx)
	if obs != nil {
		obs.TaskStarted(t.Name())
	}
	slog.Debug("starting "+ui.TaskName(t.Name()), slog.String(log.Task, t.Name()))
	start := time.Now()

	defer func() {
		if panicValue := recover(); panicValue != nil {
			if perr, ok := panicValue.(error); ok {
				err = Fatalf(changeExit(1, ExitStatus(perr)), "task %s panicked: %v", t.Name(), perr)
			} else {
				err = Fatal(1, fmt.Sprintf("task %s panicked: %v", t.Name(), panicValue))
			}
		}
		elapsed := time.Since(start)
		if obs != nil {
			obs.TaskFinished(t.Name(), elapsed, err)
		}
		if err == nil {
			slog.Info("finished "+ui.TaskName(t.Name()),
				slog.String(log.Task, t.Name()),
				slog.Duration(log.Duration, elapsed.Round(time.Millisecond)),
			)
		}
	}()

	return leafError(t, t.Run(ctx))
}

func logNonfatal(_ context.Context, t Task, err error) {
	slog.Warn(ui.TaskName(t.Name())+" reported an error; continuing",
		slog.String(log.Task, t.Name()),
		slog.Any(log.Error, err),
	)
}
