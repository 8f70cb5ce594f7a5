package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// runPlan is the per-run state shared read-only by all workers
// Buffer slots are the exception: each worker writes only the keys it owns
type runPlan struct {
	section   Section
	local     []LocalTask
	global    []GlobalTask
	artifacts []*Artifact
	files     map[string]*Artifact

	localBuf  *ResultBuffer
	globalBuf *ResultBuffer

	logger *slog.Logger
}

func newRunPlan(section Section, catalog Catalog, artifacts []*Artifact, logger *slog.Logger) *runPlan {
	files := make(map[string]*Artifact, len(artifacts))
	localKeys := make([]int, len(artifacts))
	for i, a := range artifacts {
		files[a.Path] = a
		localKeys[i] = i
	}

	globalKeys := make([]int, len(catalog.Global))
	for i := range catalog.Global {
		globalKeys[i] = i
	}

	return &runPlan{
		section:   section,
		local:     catalog.Local,
		global:    catalog.Global,
		artifacts: artifacts,
		files:     files,
		localBuf:  NewResultBuffer(localKeys...),
		globalBuf: NewResultBuffer(globalKeys...),
		logger:    logger,
	}
}

// artifactIndex maps local keys to artifacts for the aggregator
func (p *runPlan) artifactIndex() map[int]*Artifact {
	index := make(map[int]*Artifact, len(p.artifacts))
	for i, a := range p.artifacts {
		index[i] = a
	}
	return index
}

// Worker executes a fixed share of a run: local tasks for the files it owns,
// then any global tasks it was assigned
type Worker struct {
	id      int
	plan    *runPlan
	files   []int
	globals []int
	logger  *slog.Logger
}

func newWorker(id int, plan *runPlan, files, globals []int) *Worker {
	return &Worker{
		id:      id,
		plan:    plan,
		files:   files,
		globals: globals,
		logger:  plan.logger.With("worker_id", id),
	}
}

// ID returns the worker number within its run
func (w *Worker) ID() int {
	return w.id
}

// Run executes the worker's tasks, posting LOCAL(key) for every file, then LOCAL_DONE,
// then GLOBAL(key) for every global task, then GLOBAL_DONE
// It only fails when out refuses a message
func (w *Worker) Run(ctx context.Context, out Poster) error {
	w.logger.Debug("worker started", "files", len(w.files), "global_tasks", len(w.globals))
	startTime := time.Now()

	for _, key := range w.files {
		file := w.plan.artifacts[key]
		w.plan.localBuf.Set(key, w.runLocal(ctx, key, file))

		if err := out.Post(ctx, LocalMessage(key)); err != nil {
			return err
		}
	}
	if err := out.Post(ctx, LocalDoneMessage()); err != nil {
		return err
	}

	for _, key := range w.globals {
		task := w.plan.global[key]
		results := w.runTask(task.Name(), key, "", func() ([]Result, error) {
			return task.RunGlobal(ctx, w.plan.section, w.plan.files)
		})
		w.plan.globalBuf.Set(key, results)

		if err := out.Post(ctx, GlobalMessage(key)); err != nil {
			return err
		}
	}
	if err := out.Post(ctx, GlobalDoneMessage()); err != nil {
		return err
	}

	w.logger.Debug("worker finished", "duration", time.Since(startTime))
	return nil
}

// runLocal runs every local task on one file and concatenates their results
func (w *Worker) runLocal(ctx context.Context, key int, file *Artifact) []Result {
	var results []Result
	for _, task := range w.plan.local {
		taskResults := w.runTask(task.Name(), key, file.Path, func() ([]Result, error) {
			return task.RunLocal(ctx, w.plan.section, file)
		})
		for i := range taskResults {
			if taskResults[i].File == "" {
				taskResults[i].File = file.Path
			}
		}
		results = append(results, taskResults...)
	}
	return results
}

// runTask executes fn, turning an error or a panic into a fault result
func (w *Worker) runTask(name string, key int, file string, fn func() ([]Result, error)) (results []Result) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			fault := &TaskFault{Task: name, Key: key, Err: fmt.Errorf("panic: %v", r)}
			w.logger.Error("task panicked", "task", name, "key", key, "file", file, "panic", r)
			results = append(results, fault.Result(file))
		}
	}()

	results, err := fn()
	if err != nil {
		fault := &TaskFault{Task: name, Key: key, Err: err}
		w.logger.Warn("task failed", "task", name, "key", key, "file", file, "error", err)
		results = append(results, fault.Result(file))
		return results
	}

	w.logger.Debug("task succeeded",
		"task", name,
		"key", key,
		"file", file,
		"results", len(results),
		"duration", time.Since(startTime))

	return results
}
