// Package task provides the building blocks of the themepipe task graph.
//
// A Task is a named unit of work. Leaves wrap a single function; Series runs
// its members strictly in order and Parallel runs them concurrently. Tasks
// carry no state beyond their definition, so the same handle can appear in
// several graphs (the build task is both an entry point and the first step
// of server) and be run any number of times.
package task

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Task is a unit of work that can be run by name or by reference.
type Task interface {
	// Name is the identifier used on the command line and in logs.
	Name() string

	// Run performs the work. Errors wrapped with Nonfatal are logged by the
	// enclosing group instead of stopping it.
	Run(ctx context.Context) error
}

// Group is implemented by composite tasks.
type Group interface {
	Task
	Members() []Task
}

// Describer is implemented by tasks that carry a one-line description.
type Describer interface {
	Description() string
}

type fn struct {
	name string
	desc string
	f    func(ctx context.Context) error
}

// Func wraps f as a leaf task.
func Func(name string, f func(ctx context.Context) error) Task {
	return fn{name: name, f: f}
}

func (f fn) Name() string        { return f.name }
func (f fn) Description() string { return f.desc }

func (f fn) Run(ctx context.Context) error {
	return f.f(ctx)
}

type described struct {
	Task
	desc string
}

// Describe attaches a description to t, shown by the task listing.
func Describe(t Task, desc string) Task {
	return described{Task: t, desc: desc}
}

func (d described) Description() string { return d.desc }

// Unwrap returns the described task.
func (d described) Unwrap() Task { return d.Task }

// unwrap strips Describe wrappers off t.
func unwrap(t Task) Task {
	for {
		u, ok := t.(interface{ Unwrap() Task })
		if !ok {
			return t
		}
		t = u.Unwrap()
	}
}

// Description returns t's description, or "" if it has none.
func Description(t Task) string {
	if d, ok := t.(Describer); ok {
		return d.Description()
	}
	return ""
}

// Members returns the direct members of t when t is a group, otherwise nil.
func Members(t Task) []Task {
	if g, ok := unwrap(t).(Group); ok {
		return g.Members()
	}
	return nil
}

type series struct {
	name  string
	tasks []Task
}

// Series returns a task that runs tasks one after another. Each member must
// finish before the next starts. A nonfatal error is logged and the series
// continues; any other error stops the series and is returned.
func Series(name string, tasks ...Task) Task {
	return series{name: name, tasks: tasks}
}

func (s series) Name() string    { return s.name }
func (s series) Members() []Task { return s.tasks }

func (s series) Run(ctx context.Context) error {
	for _, t := range s.tasks {
		err := run(ctx, t)
		if err == nil {
			continue
		}
		if IsNonfatal(err) {
			logNonfatal(ctx, t, err)
			continue
		}
		return err
	}
	return nil
}

type parallel struct {
	name  string
	tasks []Task
}

// Parallel returns a task that runs tasks concurrently and waits for all of
// them. Nonfatal member errors are logged; other errors are combined into a
// single error whose exit status is derived from the members'.
func Parallel(name string, tasks ...Task) Task {
	return parallel{name: name, tasks: tasks}
}

func (p parallel) Name() string    { return p.name }
func (p parallel) Members() []Task { return p.tasks }

func (p parallel) Run(ctx context.Context) error {
	mu := &sync.Mutex{}
	var errs []error
	wg := &sync.WaitGroup{}
	for _, t := range p.tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := run(ctx, t)
			if err == nil {
				return
			}
			if IsNonfatal(err) {
				logNonfatal(ctx, t, err)
				return
			}
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	var exit int
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		exit = changeExit(exit, ExitStatus(err))
		msgs = append(msgs, err.Error())
	}
	return Fatalf(exit, "%s", strings.Join(msgs, "\n"))
}

// Run runs t as a top-level task. A nonfatal error from t itself is logged
// and swallowed, matching how groups treat their members.
func Run(ctx context.Context, t Task) error {
	err := run(ctx, t)
	if err != nil && IsNonfatal(err) {
		logNonfatal(ctx, t, err)
		return nil
	}
	return err
}

func leafError(t Task, err error) error {
	if err == nil || IsNonfatal(err) {
		return err
	}
	if _, isGroup := unwrap(t).(Group); isGroup {
		return err
	}
	return fmt.Errorf("task %s: %w", t.Name(), err)
}
