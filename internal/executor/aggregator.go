package executor

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is how long the drain loop waits for a message before
// re-checking worker liveness
const DefaultPollInterval = 100 * time.Millisecond

// WorkerHandle reports whether a worker may still post control messages
type WorkerHandle interface {
	Alive() bool
}

// ProgressFunc is called whenever a worker reports the end of its local or global phase
// Markers are advisory, so the counts may be short of workers when a worker crashed
type ProgressFunc func(localDone, globalDone, workers int)

// DrainStats describes what an aggregator observed
type DrainStats struct {
	// Dispatched counts sink invocations
	Dispatched int

	// Delivered counts visible results handed to the sink
	Delivered int

	// Hidden counts results filtered out before delivery
	Hidden int

	// LocalDone and GlobalDone count completion markers
	LocalDone  int
	GlobalDone int

	// Violations counts messages referencing unknown keys or kinds
	Violations int
}

// AnyResults reports whether any visible result was delivered
func (s DrainStats) AnyResults() bool {
	return s.Delivered > 0
}

// AggregatorConfig configures an Aggregator
type AggregatorConfig struct {
	// Section is passed through to the sink
	Section Section

	// Local and Global are the buffers announced by LOCAL and GLOBAL messages
	Local  *ResultBuffer
	Global *ResultBuffer

	// Artifacts maps local keys to their file; may be nil
	Artifacts map[int]*Artifact

	// Sink receives every announced batch
	Sink Sink

	// PollInterval bounds each wait on the control channel (defaults to DefaultPollInterval)
	PollInterval time.Duration

	// Workers is the number of workers feeding the channel, used for progress reporting
	Workers int

	// Progress is optional
	Progress ProgressFunc

	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// Aggregator drains the control channel and forwards announced result batches to a sink
// in arrival order
type Aggregator struct {
	cfg    AggregatorConfig
	logger *slog.Logger
	stats  DrainStats
}

// NewAggregator creates an aggregator from cfg
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Sink == nil {
		cfg.Sink = func(Section, []Result, *Artifact) {}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		cfg:    cfg,
		logger: logger,
	}
}

// Drain consumes ch until every worker handle reports not alive and the channel is empty
//
// Completion markers never end the loop on their own: a worker may still be flushing
// messages when its last marker is observed, and a crashed worker never sends one.
func (a *Aggregator) Drain(ch *ControlChannel, workers []WorkerHandle) DrainStats {
	a.logger.Debug("drain started", "workers", len(workers), "poll_interval", a.cfg.PollInterval)

	for {
		if msg, ok := ch.Take(a.cfg.PollInterval); ok {
			a.Handle(msg)
			continue
		}

		if !anyAlive(workers) && ch.Empty() {
			break
		}
	}

	a.logger.Debug("drain finished",
		"dispatched", a.stats.Dispatched,
		"delivered", a.stats.Delivered,
		"hidden", a.stats.Hidden,
		"local_done", a.stats.LocalDone,
		"global_done", a.stats.GlobalDone,
		"violations", a.stats.Violations)

	return a.stats
}

// Post handles msg immediately, letting a worker run inline without a channel
func (a *Aggregator) Post(_ context.Context, msg ControlMessage) error {
	a.Handle(msg)
	return nil
}

// Handle processes a single control message
func (a *Aggregator) Handle(msg ControlMessage) {
	switch msg.Kind {
	case ControlLocal:
		a.dispatch(msg, a.cfg.Local, a.cfg.Artifacts[msg.Key])
	case ControlGlobal:
		a.dispatch(msg, a.cfg.Global, nil)
	case ControlLocalDone:
		a.stats.LocalDone++
		a.reportProgress()
	case ControlGlobalDone:
		a.stats.GlobalDone++
		a.reportProgress()
	default:
		a.stats.Violations++
		a.logger.Warn("unexpected control message", "message", msg.String())
	}
}

// Stats returns what the aggregator has observed so far
func (a *Aggregator) Stats() DrainStats {
	return a.stats
}

func (a *Aggregator) dispatch(msg ControlMessage, buf *ResultBuffer, file *Artifact) {
	results, ok := buf.Get(msg.Key)
	if !ok {
		a.stats.Violations++
		a.logger.Warn("control message references unknown key", "message", msg.String())
		return
	}

	visible := FilterVisible(results)
	a.stats.Hidden += len(results) - len(visible)
	a.stats.Delivered += len(visible)
	a.stats.Dispatched++

	a.cfg.Sink(a.cfg.Section, visible, file)
}

func (a *Aggregator) reportProgress() {
	if a.cfg.Progress != nil {
		a.cfg.Progress(a.stats.LocalDone, a.stats.GlobalDone, a.cfg.Workers)
	}
}

func anyAlive(workers []WorkerHandle) bool {
	for _, w := range workers {
		if w.Alive() {
			return true
		}
	}
	return false
}
