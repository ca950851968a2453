// Package batch runs independent per-image jobs on a bounded pool of
// workers. Each job owns its image, processor and cache record; the pool
// shares nothing between jobs except the context.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"projtrace/internal/logging"
	"projtrace/internal/services"
)

// Func processes one image path.
type Func[T any] func(ctx context.Context, path string) (T, error)

// Outcome is the result of one path. Skipped is set when the context was
// cancelled before the path was handed to a worker.
type Outcome[T any] struct {
	Path     string
	Value    T
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Options tunes a run.
type Options struct {
	Workers int
	Logger  *slog.Logger
}

// Run calls fn for every path with at most workers calls in flight and
// returns the outcomes in input order. Cancelling ctx stops dispatch; jobs
// already running are expected to observe ctx themselves.
func Run[T any](ctx context.Context, paths []string, workers int, fn Func[T]) []Outcome[T] {
	return RunWithOptions(ctx, paths, Options{Workers: workers}, fn)
}

// RunWithOptions is Run with a logger attached.
func RunWithOptions[T any](ctx context.Context, paths []string, opts Options, fn Func[T]) []Outcome[T] {
	outcomes := make([]Outcome[T], len(paths))
	for i, path := range paths {
		outcomes[i].Path = path
	}
	if len(paths) == 0 {
		return outcomes
	}

	workers := max(opts.Workers, 1)
	workers = min(workers, len(paths))
	logger := logging.NewComponentLogger(opts.Logger, "batch")

	jobs := make(chan int)
	dispatched := make([]bool, len(paths))
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = runOne(ctx, logger, paths[i], fn)
			}
		}()
	}

dispatch:
	for i := range paths {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
			dispatched[i] = true
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	skipped := 0
	for i := range outcomes {
		if !dispatched[i] {
			outcomes[i].Skipped = true
			outcomes[i].Err = ctx.Err()
			skipped++
		}
	}
	if skipped > 0 {
		logger.Warn("batch cancelled before all images were dispatched",
			logging.Int("skipped", skipped),
			logging.String(logging.FieldEventType, "batch_cancelled"),
			logging.String(logging.FieldImpact, "skipped images keep their previous cache state"))
	}
	return outcomes
}

func runOne[T any](ctx context.Context, logger *slog.Logger, path string, fn Func[T]) Outcome[T] {
	out := Outcome[T]{Path: path}
	if err := ctx.Err(); err != nil {
		out.Skipped = true
		out.Err = err
		return out
	}
	ctx = services.WithImage(ctx, path)
	start := time.Now()
	out.Value, out.Err = fn(ctx, path)
	out.Duration = time.Since(start)
	if out.Err != nil {
		logging.WithContext(ctx, logger).Warn("image failed",
			logging.Error(out.Err),
			logging.String(logging.FieldEventType, "batch_image_failed"))
	}
	return out
}

// Failed counts outcomes that carry an error, skipped ones included.
func Failed[T any](outcomes []Outcome[T]) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
