package executor

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/sourcegraph/conc"
)

// Runner drives a set of workers and feeds their control messages to an aggregator
//
// Both implementations produce the same message sequence per worker, so the aggregator
// behaves identically whichever one is used.
type Runner interface {
	Run(ctx context.Context, workers []*Worker, agg *Aggregator) RunStats
}

// RunStats combines the aggregator's observations with worker health
type RunStats struct {
	DrainStats

	// Crashed counts workers that exited without finishing their task list
	Crashed int
}

// InlineRunner runs workers one after another on the calling goroutine,
// handing each message straight to the aggregator
type InlineRunner struct {
	Logger *slog.Logger
}

// Run implements Runner
func (r InlineRunner) Run(ctx context.Context, workers []*Worker, agg *Aggregator) RunStats {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var stats RunStats
	for _, w := range workers {
		if err := w.Run(ctx, agg); err != nil {
			logger.Warn("inline worker stopped early", "worker_id", w.ID(), "error", err)
			stats.Crashed++
		}
	}
	stats.DrainStats = agg.Stats()
	return stats
}

// GoroutineRunner starts one goroutine per worker and drains a shared control channel
type GoroutineRunner struct {
	// Capacity bounds the control channel; zero sizes it so posts never block
	Capacity int

	Logger *slog.Logger
}

// Run implements Runner
func (r GoroutineRunner) Run(ctx context.Context, workers []*Worker, agg *Aggregator) RunStats {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	capacity := r.Capacity
	if capacity <= 0 {
		capacity = 2 * len(workers)
		for _, w := range workers {
			capacity += len(w.files) + len(w.globals)
		}
	}
	ch := NewControlChannel(capacity)

	handles := make([]*workerHandle, len(workers))
	probes := make([]WorkerHandle, len(workers))

	var wg conc.WaitGroup
	for i, w := range workers {
		h := newWorkerHandle()
		handles[i] = h
		probes[i] = h

		wg.Go(func() {
			finished := false
			defer func() { h.exit(finished) }()

			if err := w.Run(ctx, ch); err != nil {
				logger.Warn("worker stopped early", "worker_id", w.ID(), "error", err)
				return
			}
			finished = true
		})
	}

	logger.Debug("workers started", "count", len(workers), "channel_capacity", capacity)

	stats := RunStats{DrainStats: agg.Drain(ch, probes)}

	if recovered := wg.WaitAndRecover(); recovered != nil {
		logger.Error("worker crashed, its unannounced results are lost",
			"panic", recovered.Value,
			"stack", string(recovered.Stack))
	}

	for i, h := range handles {
		if !h.finished() {
			stats.Crashed++
			logger.Warn("worker exited without completing", "worker_id", workers[i].ID())
		}
	}

	return stats
}

// workerHandle tracks a worker goroutine
type workerHandle struct {
	alive atomic.Bool
	clean atomic.Bool
	done  chan struct{}
}

func newWorkerHandle() *workerHandle {
	h := &workerHandle{done: make(chan struct{})}
	h.alive.Store(true)
	return h
}

// Alive implements WorkerHandle
func (h *workerHandle) Alive() bool {
	return h.alive.Load()
}

// Done returns a channel closed once the worker goroutine has exited
func (h *workerHandle) Done() <-chan struct{} {
	return h.done
}

func (h *workerHandle) exit(finished bool) {
	h.clean.Store(finished)
	h.alive.Store(false)
	close(h.done)
}

func (h *workerHandle) finished() bool {
	return h.clean.Load()
}
