// Package parallelism bounds CPU-bound fan-out, such as reformatting every
// generated HTML page.
package parallelism

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NumProcessorsEnvVar overrides the number of workers.
const NumProcessorsEnvVar = "THEMEPIPE_NUM_PROCESSORS"

// Workers returns the number of workers to use: THEMEPIPE_NUM_PROCESSORS if
// set, otherwise the number of CPUs.
func Workers() (int, error) {
	strFromEnv := strings.TrimSpace(os.Getenv(NumProcessorsEnvVar))
	if strFromEnv == "" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(strFromEnv)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", NumProcessorsEnvVar, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s: must be at least 1, got %d", NumProcessorsEnvVar, n)
	}
	return n, nil
}

// Each calls fn for every item using at most Workers() goroutines and waits
// for all of them. Errors are joined. Items not yet started when ctx is
// cancelled are skipped.
func Each[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) error) error {
	if len(items) == 0 {
		return nil
	}
	workers, err := Workers()
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var group errgroup.Group
	group.SetLimit(min(workers, len(items)))
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := fn(ctx, item); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()

	if ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
