// Package executor distributes analysis tasks over a set of workers and
// aggregates their results as they complete.
//
// A section run partitions the section's files among N workers. Each worker
// computes the results of its local tasks (one per file) and of the global
// tasks it owns, stores them in a shared result buffer, and announces each
// stored key on a control channel. A single aggregator drains that channel
// and hands every announced batch to a sink callback.
//
// # Control Protocol
//
// Workers post four kinds of messages:
//
//	LOCAL(key)    results for file key are in the local buffer
//	LOCAL_DONE    the worker finished all of its local tasks
//	GLOBAL(key)   results for global task key are in the global buffer
//	GLOBAL_DONE   the worker finished all of its global tasks
//
// Results are written to the buffer before the key is posted. The channel send
// is the happens-before edge that makes the slot visible to the aggregator.
//
// # Draining
//
// The aggregator polls the channel with a bounded wait. It stops only after
// every worker handle reports not alive and the channel is empty. Completion
// markers feed progress reporting and never end the loop on their own, so a
// worker that crashes without posting them cannot hang the run.
//
// # Basic Usage
//
//	pool := executor.NewPool(4, logger)
//
//	summary, err := pool.ExecuteSection(ctx, section, executor.Catalog{
//	    Files: paths,
//	    Local: []executor.LocalTask{lineLength},
//	}, func(section executor.Section, results []executor.Result, file *executor.Artifact) {
//	    printer.Print(results)
//	})
//
// A pool with one worker runs inline on the calling goroutine. The same
// message sequence reaches the aggregator either way.
//
// # Task Faults
//
// A task that returns an error or panics yields a single major result with
// origin set to the task name. Other tasks and other files keep running.
//
// # Thread Safety
//
//   - ResultBuffer keys are fixed at construction; distinct keys may be written concurrently
//   - ExecuteSection calls are mutually exclusive per Pool
//   - The sink is called from the aggregator goroutine only
package executor
