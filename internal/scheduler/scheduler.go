// Package scheduler implements bounded-concurrency fan-out over a list of
// tasks, reporting progress as work completes. Concurrency is bounded by
// a weighted semaphore the way moai-adk's server manager bounds parallel
// server starts, generalized from a fixed-size channel to
// golang.org/x/sync/semaphore so a future caller can weight tasks
// unevenly if it needs to.
package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"codegraph/internal/event"
)

// Task is one unit of fan-out work producing a result or an error.
type Task[T any] func(ctx context.Context) (T, error)

// Result pairs a task's outcome with its original index so callers can
// restore input order after concurrent completion.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Options configures a Run call.
type Options struct {
	// Concurrency bounds how many tasks run at once. Non-positive means 1.
	Concurrency int
	// ProgressEvery reports progress every N completions (0 disables the
	// count-based trigger).
	ProgressEvery int
	// ProgressInterval reports progress at least this often in wall-clock
	// time if any task completed since the last report (0 disables the
	// time-based trigger).
	ProgressInterval time.Duration
	// RunID tags emitted progress events, matching the event bus's
	// CrawlProgressData.RunID correlation key.
	RunID string
	// Bus receives progress events; a nil Bus disables reporting.
	Bus *event.Bus
}

// Run fans tasks out with bounded concurrency and returns their results in
// input order. A task that errors still occupies its slot in the returned
// slice (spec.md's gathered variant: nothing is dropped, a failure is
// visible at its original position).
func Run[T any](ctx context.Context, tasks []Task[T], opts Options) []Result[T] {
	n := len(tasks)
	results := make([]Result[T], n)
	if n == 0 {
		return results
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	done := make(chan int, n)
	start := time.Now()

	for i, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled before this task could start; record the
			// cancellation in place and stop launching new work.
			results[i] = Result[T]{Index: i, Err: ctx.Err()}
			done <- i
			continue
		}
		go func(i int, task Task[T]) {
			defer sem.Release(1)
			v, err := task(ctx)
			results[i] = Result[T]{Index: i, Value: v, Err: err}
			done <- i
		}(i, task)
	}

	reportProgressLoop(ctx, done, n, start, opts)

	return results
}

// reportProgressLoop drains the completion channel, emitting progress
// events on the count or time triggers configured in opts.
func reportProgressLoop(ctx context.Context, done <-chan int, total int, start time.Time, opts Options) {
	completed := 0
	lastReport := 0
	lastReportTime := start

	var ticker *time.Ticker
	var tickCh <-chan time.Time
	if opts.ProgressInterval > 0 {
		ticker = time.NewTicker(opts.ProgressInterval)
		tickCh = ticker.C
		defer ticker.Stop()
	}

	for completed < total {
		select {
		case <-done:
			completed++
			if opts.ProgressEvery > 0 && completed-lastReport >= opts.ProgressEvery {
				emitProgress(opts, completed, total, start)
				lastReport = completed
				lastReportTime = time.Now()
			}
		case <-tickCh:
			if completed > lastReport && time.Since(lastReportTime) >= opts.ProgressInterval {
				emitProgress(opts, completed, total, start)
				lastReport = completed
				lastReportTime = time.Now()
			}
		}
	}

	if opts.Bus != nil && completed != lastReport {
		emitProgress(opts, completed, total, start)
	}
}

func emitProgress(opts Options, completed, total int, start time.Time) {
	if opts.Bus == nil {
		return
	}
	elapsed := time.Since(start).Seconds()
	perSec := 0.0
	if elapsed > 0 {
		perSec = float64(completed) / elapsed
	}
	eta := 0.0
	if perSec > 0 {
		eta = float64(total-completed) / perSec
	}
	percent := 0.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}

	opts.Bus.PublishSync(event.Event{
		Type: event.CrawlProgress,
		Data: event.CrawlProgressData{
			RunID:      opts.RunID,
			Completed:  completed,
			Total:      total,
			Percent:    percent,
			ElapsedSec: elapsed,
			PerSec:     perSec,
			ETASec:     eta,
		},
	})
}
