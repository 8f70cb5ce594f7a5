// Package procgroup launches external commands as the leader of a new
// process group so the whole subtree can be terminated together.
package procgroup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultGrace is how long Terminate waits between SIGTERM and SIGKILL
const DefaultGrace = 2 * time.Second

// Policy selects what happens to a child's output stream
type Policy int

const (
	// Inherit connects the stream to this process's stdout/stderr
	Inherit Policy = iota
	// Capture buffers the stream for Stdout/Stderr
	Capture
	// Discard drops the stream
	Discard
)

// String returns the policy name
func (p Policy) String() string {
	switch p {
	case Inherit:
		return "inherit"
	case Capture:
		return "capture"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// SpawnError is returned when a command cannot be started
type SpawnError struct {
	Argv []string
	Err  error
}

// Error implements the error interface
func (e *SpawnError) Error() string {
	if len(e.Argv) == 0 {
		return fmt.Sprintf("spawn: %v", e.Err)
	}
	return fmt.Sprintf("spawn %q: %v", strings.Join(e.Argv, " "), e.Err)
}

// Unwrap returns the underlying error
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ErrEmptyCommand is wrapped by SpawnError when argv is empty
var ErrEmptyCommand = errors.New("empty command")

// Option configures a Group before launch
type Option func(*launchConfig)

type launchConfig struct {
	grace  time.Duration
	dir    string
	logger *slog.Logger
}

// WithGrace sets the SIGTERM to SIGKILL grace period
func WithGrace(d time.Duration) Option {
	return func(c *launchConfig) {
		c.grace = d
	}
}

// WithDir sets the working directory of the child
func WithDir(dir string) Option {
	return func(c *launchConfig) {
		c.dir = dir
	}
}

// WithLogger sets the logger used for lifecycle events
func WithLogger(logger *slog.Logger) Option {
	return func(c *launchConfig) {
		c.logger = logger
	}
}

// Group is a running command and the process group it leads.
// It is safe for concurrent use.
type Group struct {
	id     string
	argv   []string
	cmd    *exec.Cmd
	grace  time.Duration
	logger *slog.Logger

	stdout *captureStream
	stderr *captureStream

	exited   chan struct{}
	done     chan struct{}
	waitOnce sync.Once
	exitCode atomic.Int32

	mu      sync.RWMutex
	exitErr error

	terminated atomic.Bool
}

// Launch starts argv in a new process group
func Launch(argv []string, stdout, stderr Policy, opts ...Option) (*Group, error) {
	if len(argv) == 0 {
		return nil, &SpawnError{Argv: argv, Err: ErrEmptyCommand}
	}

	cfg := launchConfig{grace: DefaultGrace}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	g := &Group{
		id:     uuid.NewString(),
		argv:   append([]string(nil), argv...),
		grace:  cfg.grace,
		exited: make(chan struct{}),
		done:   make(chan struct{}),
	}
	g.logger = cfg.logger.With("group_id", g.id, "command", argv[0])
	g.exitCode.Store(-1)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cfg.dir
	configureGroup(cmd)
	g.cmd = cmd

	outFile, outCapture, err := openStream(stdout, os.Stdout)
	if err != nil {
		return nil, &SpawnError{Argv: g.argv, Err: err}
	}
	errFile, errCapture, err := openStream(stderr, os.Stderr)
	if err != nil {
		outCapture.abort()
		return nil, &SpawnError{Argv: g.argv, Err: err}
	}
	g.stdout, g.stderr = outCapture, errCapture
	if outFile != nil {
		cmd.Stdout = outFile
	}
	if errFile != nil {
		cmd.Stderr = errFile
	}

	err = cmd.Start()
	// The child holds its own copy of the write ends
	g.stdout.closeWriter()
	g.stderr.closeWriter()
	if err != nil {
		g.stdout.abort()
		g.stderr.abort()
		return nil, &SpawnError{Argv: g.argv, Err: err}
	}

	g.logger.Debug("process group started", "pid", cmd.Process.Pid)

	go g.stdout.copy()
	go g.stderr.copy()
	go g.waitLoop()

	return g, nil
}

// Run launches argv and waits for it to exit.
// Group members still running when the leader exits are killed.
// When ctx is done first the group is terminated and ctx's error is returned
// along with the group.
func Run(ctx context.Context, argv []string, stdout, stderr Policy, opts ...Option) (*Group, error) {
	g, err := Launch(argv, stdout, stderr, opts...)
	if err != nil {
		return nil, err
	}

	select {
	case <-g.exited:
		if err := killGroup(g.cmd); err != nil {
			g.logger.Warn("failed to sweep process group", "error", err)
		}
		if _, err := g.Wait(); err != nil {
			return g, err
		}
		return g, nil
	case <-ctx.Done():
		g.logger.Debug("context done, terminating process group", "error", ctx.Err())
		if err := g.Terminate(); err != nil {
			g.logger.Warn("failed to terminate process group", "error", err)
		}
		g.Wait()
		return g, fmt.Errorf("%s: %w", g.argv[0], ctx.Err())
	}
}

// captureStream collects one output stream through a pipe owned by the
// group, so the leader can be reaped while members still hold the write end
type captureStream struct {
	r    *os.File
	w    *os.File
	done chan struct{}

	mu  sync.Mutex
	buf bytes.Buffer
}

// openStream maps a policy to the file handed to exec.Cmd.
// A nil file makes exec connect the stream to the null device.
func openStream(p Policy, inherit *os.File) (*os.File, *captureStream, error) {
	switch p {
	case Inherit:
		return inherit, nil, nil
	case Capture:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pipe: %w", err)
		}
		return w, &captureStream{r: r, w: w, done: make(chan struct{})}, nil
	default:
		return nil, nil, nil
	}
}

func (c *captureStream) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// copy reads until every writer has closed the pipe or the read end is closed
func (c *captureStream) copy() {
	if c == nil {
		return
	}
	defer close(c.done)
	io.Copy(c, c.r)
	c.r.Close()
}

func (c *captureStream) closeWriter() {
	if c != nil {
		c.w.Close()
	}
}

func (c *captureStream) abort() {
	if c != nil {
		c.w.Close()
		c.r.Close()
	}
}

func (c *captureStream) snapshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf.Bytes()...)
}

// ID returns the unique id assigned at launch
func (g *Group) ID() string {
	return g.id
}

// Argv returns the launched command line
func (g *Group) Argv() []string {
	return append([]string(nil), g.argv...)
}

// PID returns the process id of the group leader
func (g *Group) PID() int {
	return g.cmd.Process.Pid
}

// PGID returns the process group id of the leader.
// On Unix it equals PID.
func (g *Group) PGID() (int, error) {
	return groupID(g.cmd.Process.Pid)
}

// Done returns a channel that is closed when the leader has exited and its
// captured output is complete
func (g *Group) Done() <-chan struct{} {
	return g.done
}

// Exited reports whether the leader has exited
func (g *Group) Exited() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the leader exits and returns its exit code.
// The code is -1 when the leader was killed by a signal. Non-zero exits are
// not errors; the error is set only when waiting itself failed.
func (g *Group) Wait() (int, error) {
	<-g.done

	g.mu.RLock()
	defer g.mu.RUnlock()
	return int(g.exitCode.Load()), g.exitErr
}

// Terminate sends SIGTERM to the group, waits for the grace period and then
// sends SIGKILL. Members left behind by a leader that already exited are
// signalled too. Only the first call has an effect.
func (g *Group) Terminate() error {
	if !g.terminated.CompareAndSwap(false, true) {
		return nil
	}

	g.logger.Debug("terminating process group", "grace", g.grace)

	if err := interruptGroup(g.cmd); err != nil {
		return fmt.Errorf("failed to signal process group: %w", err)
	}

	timer := time.NewTimer(g.grace)
	defer timer.Stop()

	select {
	case <-g.exited:
	case <-timer.C:
		g.logger.Debug("grace period expired, killing process group")
	}

	// Sweep members that outlived the leader
	if err := killGroup(g.cmd); err != nil {
		return fmt.Errorf("failed to kill process group: %w", err)
	}
	return nil
}

// Stdout returns the captured standard output.
// It is nil until the leader exits or when the stream was not captured.
func (g *Group) Stdout() []byte {
	return g.captured(g.stdout)
}

// Stderr returns the captured standard error.
// It is nil until the leader exits or when the stream was not captured.
func (g *Group) Stderr() []byte {
	return g.captured(g.stderr)
}

func (g *Group) captured(c *captureStream) []byte {
	if c == nil || !g.Exited() {
		return nil
	}
	return c.snapshot()
}

func (g *Group) waitLoop() {
	g.waitOnce.Do(func() {
		err := g.cmd.Wait()

		code := 0
		var waitErr error
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// ExitCode is -1 for signalled processes
				code = exitErr.ExitCode()
			} else {
				code = -1
				waitErr = fmt.Errorf("wait %s: %w", g.argv[0], err)
			}
		}

		g.mu.Lock()
		g.exitErr = waitErr
		g.mu.Unlock()
		g.exitCode.Store(int32(code))

		g.logger.Debug("process group leader exited", "exit_code", code)
		close(g.exited)

		g.drainOutput()
		close(g.done)
	})
}

// drainOutput waits for the captured streams to reach EOF. Members that keep
// a pipe open longer than the grace period are cut off.
func (g *Group) drainOutput() {
	var streams []*captureStream
	for _, c := range []*captureStream{g.stdout, g.stderr} {
		if c != nil {
			streams = append(streams, c)
		}
	}
	if len(streams) == 0 {
		return
	}

	timer := time.NewTimer(g.grace + time.Second)
	defer timer.Stop()

	for _, c := range streams {
		select {
		case <-c.done:
		case <-timer.C:
			g.logger.Debug("captured output still open after leader exit")
			for _, c := range streams {
				c.r.Close()
			}
			return
		}
	}
}
