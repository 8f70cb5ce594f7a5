package executor

import (
	"context"
	"fmt"
	"time"
)

// ControlKind tags a control message
type ControlKind int

const (
	// ControlLocal announces that the local buffer slot for Key is ready
	ControlLocal ControlKind = iota
	// ControlLocalDone marks that one worker finished its local phase
	ControlLocalDone
	// ControlGlobal announces that the global buffer slot for Key is ready
	ControlGlobal
	// ControlGlobalDone marks that one worker finished its global phase
	ControlGlobalDone
)

// String returns the protocol name of the kind
func (k ControlKind) String() string {
	switch k {
	case ControlLocal:
		return "LOCAL"
	case ControlLocalDone:
		return "LOCAL_DONE"
	case ControlGlobal:
		return "GLOBAL"
	case ControlGlobalDone:
		return "GLOBAL_DONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// ControlMessage is exchanged between workers and the aggregator
// Key is only meaningful for ControlLocal and ControlGlobal
type ControlMessage struct {
	Kind ControlKind
	Key  int
}

// String returns a compact representation such as LOCAL(3)
func (m ControlMessage) String() string {
	switch m.Kind {
	case ControlLocal, ControlGlobal:
		return fmt.Sprintf("%s(%d)", m.Kind, m.Key)
	default:
		return m.Kind.String()
	}
}

// LocalMessage builds a LOCAL(key) message
func LocalMessage(key int) ControlMessage {
	return ControlMessage{Kind: ControlLocal, Key: key}
}

// GlobalMessage builds a GLOBAL(key) message
func GlobalMessage(key int) ControlMessage {
	return ControlMessage{Kind: ControlGlobal, Key: key}
}

// LocalDoneMessage builds a LOCAL_DONE marker
func LocalDoneMessage() ControlMessage {
	return ControlMessage{Kind: ControlLocalDone}
}

// GlobalDoneMessage builds a GLOBAL_DONE marker
func GlobalDoneMessage() ControlMessage {
	return ControlMessage{Kind: ControlGlobalDone}
}

// Poster accepts control messages from a worker
type Poster interface {
	Post(ctx context.Context, msg ControlMessage) error
}

// ControlChannel is a bounded multi-producer, single-consumer FIFO of control messages
type ControlChannel struct {
	ch chan ControlMessage
}

// NewControlChannel creates a channel holding at most capacity pending messages
// capacity must be > 0, otherwise it defaults to 1
func NewControlChannel(capacity int) *ControlChannel {
	if capacity <= 0 {
		capacity = 1
	}
	return &ControlChannel{ch: make(chan ControlMessage, capacity)}
}

// Post enqueues a message, waiting while the channel is full
// It returns the context error if ctx is done before there is room
func (c *ControlChannel) Post(ctx context.Context, msg ControlMessage) error {
	select {
	case c.ch <- msg:
		return nil
	default:
	}

	select {
	case c.ch <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("post %s: %w", msg, ctx.Err())
	}
}

// Take returns the next message, or false if none arrived within timeout
// A timeout <= 0 only returns an already queued message
func (c *ControlChannel) Take(timeout time.Duration) (ControlMessage, bool) {
	select {
	case msg := <-c.ch:
		return msg, true
	default:
	}

	if timeout <= 0 {
		return ControlMessage{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.ch:
		return msg, true
	case <-timer.C:
		return ControlMessage{}, false
	}
}

// Len returns the number of queued messages
func (c *ControlChannel) Len() int {
	return len(c.ch)
}

// Empty reports whether no message is queued
func (c *ControlChannel) Empty() bool {
	return len(c.ch) == 0
}

// Cap returns the channel capacity
func (c *ControlChannel) Cap() int {
	return cap(c.ch)
}
