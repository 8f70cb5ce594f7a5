package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	// ErrPoolRunning is returned when a section is executed while another one is in progress
	ErrPoolRunning = errors.New("pool is already running")

	// ErrNoSink is returned when ExecuteSection is called without a sink
	ErrNoSink = errors.New("a result sink is required")
)

// ExecutionSummary is returned once a section has been executed
type ExecutionSummary struct {
	// AnyResults is true if at least one visible result reached the sink
	AnyResults bool

	// FileArtifacts maps every loaded file path to its artifact
	FileArtifacts map[string]*Artifact

	// GlobalResultCount is the number of global result batches produced
	GlobalResultCount int

	// Workers is the number of workers used (0 for an empty run)
	Workers int

	// Dispatched counts sink invocations
	Dispatched int

	// Violations counts control messages that could not be resolved
	Violations int

	// Crashed counts workers that died before completing
	Crashed int

	// Duration is the wall time of the run
	Duration time.Duration
}

// Option configures a Pool
type Option func(*Pool)

// WithPollInterval sets how long the drain loop waits on the control channel
func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithFs sets the file system files are loaded from
func WithFs(fs afero.Fs) Option {
	return func(p *Pool) {
		if fs != nil {
			p.fs = fs
		}
	}
}

// WithProgress registers a callback invoked on every worker completion marker
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pool) {
		p.progress = fn
	}
}

// Pool executes sections by spreading their tasks over a bounded number of workers
type Pool struct {
	// workers is the maximum number of concurrent workers
	workers int

	pollInterval time.Duration
	fs           afero.Fs
	progress     ProgressFunc

	// logger for structured logging
	logger *slog.Logger

	// running indicates if the pool is currently executing
	running atomic.Bool
}

// NewPool creates a pool with at most workers concurrent workers
// workers must be > 0, otherwise it defaults to 1
func NewPool(workers int, logger *slog.Logger, opts ...Option) *Pool {
	if workers <= 0 {
		workers = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		workers:      workers,
		pollInterval: DefaultPollInterval,
		fs:           afero.NewOsFs(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExecuteSection runs every task of catalog and streams result batches to sink
//
// Tasks that fail or panic become visible results; they never fail the run. Results are
// delivered in the order workers announce them, which interleaves files when more than
// one worker is used. An error is returned only if the run could not be set up.
func (p *Pool) ExecuteSection(ctx context.Context, section Section, catalog Catalog, sink Sink) (ExecutionSummary, error) {
	if sink == nil {
		return ExecutionSummary{}, ErrNoSink
	}

	if !p.running.CompareAndSwap(false, true) {
		return ExecutionSummary{}, ErrPoolRunning
	}
	defer p.running.Store(false)

	logger := p.logger.With("run_id", uuid.NewString(), "section", section.Name)

	if catalog.TaskCount() == 0 {
		logger.Debug("no tasks to execute")
		return ExecutionSummary{FileArtifacts: map[string]*Artifact{}}, nil
	}

	startTime := time.Now()

	artifacts := loadArtifacts(p.fs, catalog.Files, logger)
	plan := newRunPlan(section, catalog, artifacts, logger)

	workerCount := p.workerCountFor(len(artifacts))
	workers := partition(plan, workerCount)

	logger.Info("starting section execution",
		"workers", workerCount,
		"files", len(artifacts),
		"local_tasks", len(catalog.Local),
		"global_tasks", len(catalog.Global))

	agg := NewAggregator(AggregatorConfig{
		Section:      section,
		Local:        plan.localBuf,
		Global:       plan.globalBuf,
		Artifacts:    plan.artifactIndex(),
		Sink:         sink,
		PollInterval: p.pollInterval,
		Workers:      workerCount,
		Progress:     p.progress,
		Logger:       logger,
	})

	var runner Runner = GoroutineRunner{Logger: logger}
	if workerCount == 1 {
		runner = InlineRunner{Logger: logger}
	}

	stats := runner.Run(ctx, workers, agg)

	summary := ExecutionSummary{
		AnyResults:        stats.AnyResults(),
		FileArtifacts:     plan.files,
		GlobalResultCount: plan.globalBuf.Len(),
		Workers:           workerCount,
		Dispatched:        stats.Dispatched,
		Violations:        stats.Violations,
		Crashed:           stats.Crashed,
		Duration:          time.Since(startTime),
	}

	logger.Info("section execution completed",
		"dispatched", summary.Dispatched,
		"delivered", stats.Delivered,
		"hidden", stats.Hidden,
		"crashed", summary.Crashed,
		"duration", summary.Duration)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("section %q interrupted: %w", section.Name, err)
	}

	return summary, nil
}

// IsRunning returns true if the pool is currently executing a section
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// WorkerCount returns the maximum number of workers in the pool
func (p *Pool) WorkerCount() int {
	return p.workers
}

// workerCountFor never starts more workers than there are files, and always at least one
func (p *Pool) workerCountFor(files int) int {
	n := p.workers
	if n > files {
		n = files
	}
	if n < 1 {
		n = 1
	}
	return n
}

// partition splits files into contiguous, near-equal chunks and hands every global task
// to the last worker
func partition(plan *runPlan, n int) []*Worker {
	fileCount := len(plan.artifacts)
	base := fileCount / n
	extra := fileCount % n

	globals := make([]int, len(plan.global))
	for i := range globals {
		globals[i] = i
	}

	workers := make([]*Worker, n)
	next := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}

		files := make([]int, size)
		for j := range files {
			files[j] = next
			next++
		}

		var owned []int
		if i == n-1 {
			owned = globals
		}
		workers[i] = newWorker(i, plan, files, owned)
	}
	return workers
}
