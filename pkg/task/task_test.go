package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(out *[]string, mu *sync.Mutex, name string) Task {
	return Func(name, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		*out = append(*out, name)
		return nil
	})
}

func TestSeriesRunsInOrder(t *testing.T) {
	var got []string
	mu := &sync.Mutex{}
	s := Series("chain",
		recorder(&got, mu, "a"),
		recorder(&got, mu, "b"),
		recorder(&got, mu, "c"),
	)

	require.NoError(t, Run(context.Background(), s))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSeriesStopsOnError(t *testing.T) {
	var got []string
	mu := &sync.Mutex{}
	s := Series("chain",
		recorder(&got, mu, "a"),
		Func("boom", func(context.Context) error { return Fatal(3, "boom") }),
		recorder(&got, mu, "c"),
	)

	err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 3, ExitStatus(err))
	assert.Contains(t, err.Error(), "task boom")
}

func TestSeriesContinuesAfterNonfatal(t *testing.T) {
	var got []string
	mu := &sync.Mutex{}
	s := Series("chain",
		Func("soft", func(context.Context) error { return Nonfatal(errors.New("compile error")) }),
		recorder(&got, mu, "after"),
	)

	require.NoError(t, Run(context.Background(), s))
	assert.Equal(t, []string{"after"}, got)
}

func TestParallelRunsConcurrently(t *testing.T) {
	// Both members block until the other has started; a serial runner would deadlock.
	var wg sync.WaitGroup
	wg.Add(2)
	member := func(name string) Task {
		return Func(name, func(context.Context) error {
			wg.Done()
			wg.Wait()
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), Parallel("group", member("x"), member("y"))) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("parallel members did not run concurrently")
	}
}

func TestParallelWaitsForAllMembers(t *testing.T) {
	var finished atomic.Int32
	slow := Func("slow", func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		finished.Add(1)
		return nil
	})
	failing := Func("failing", func(context.Context) error {
		return errors.New("nope")
	})

	err := Run(context.Background(), Parallel("group", slow, failing))
	require.Error(t, err)
	assert.Equal(t, int32(1), finished.Load())
}

func TestParallelCombinesExitStatus(t *testing.T) {
	a := Func("a", func(context.Context) error { return Fatal(2, "a failed") })
	b := Func("b", func(context.Context) error { return Fatal(2, "b failed") })

	err := Run(context.Background(), Parallel("group", a, b))
	require.Error(t, err)
	assert.Equal(t, 2, ExitStatus(err))
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")
}

func TestPanicBecomesError(t *testing.T) {
	p := Func("panicky", func(context.Context) error { panic("oh no") })

	err := Run(context.Background(), Series("chain", p))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicky")
	assert.Equal(t, 1, ExitStatus(err))
}

func TestDescribeKeepsGroupMembers(t *testing.T) {
	leaf := Func("leaf", func(context.Context) error { return nil })
	g := Describe(Series("chain", leaf), "a chain")

	assert.Equal(t, "a chain", Description(g))
	assert.Equal(t, "chain", g.Name())
	require.Len(t, Members(g), 1)
	assert.Equal(t, "leaf", Members(g)[0].Name())
	assert.Empty(t, Members(leaf))
}

type countingObserver struct {
	mu       sync.Mutex
	started  []string
	finished map[string]error
}

func (c *countingObserver) TaskStarted(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, name)
}

func (c *countingObserver) TaskFinished(name string, _ time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished[name] = err
}

func TestObserverSeesEveryTask(t *testing.T) {
	obs := &countingObserver{finished: map[string]error{}}
	ctx := WithObserver(context.Background(), obs)
	leaf := Func("leaf", func(context.Context) error { return nil })

	require.NoError(t, Run(ctx, Series("chain", leaf)))
	assert.Equal(t, []string{"chain", "leaf"}, obs.started)
	assert.Contains(t, obs.finished, "chain")
	assert.Contains(t, obs.finished, "leaf")
}
