package recorder

import (
	"context"
	"sync"

	"github.com/asticode/go-astiglove"
)

// Job is a finalized recording waiting to be processed
type Job struct {
	Attempt astiglove.Attempt
	Frames  []astiglove.Frame
	cancel  context.CancelFunc
	ctx     context.Context
}

func newJob(a astiglove.Attempt, fs []astiglove.Frame) *Job {
	j := &Job{
		Attempt: a,
		Frames:  fs,
	}
	j.ctx, j.cancel = context.WithCancel(context.Background())
	return j
}

// Context returns the job context, cancelled when the job is preempted
func (j *Job) Context() context.Context { return j.ctx }

// Mailbox is a single slot handoff between the read loop and the processing
// goroutine. Publishing into an occupied slot overwrites the unconsumed job
// whereas putting into it waits for the slot to be consumed.
type Mailbox struct {
	c         *sync.Cond
	closed    bool
	current   *Job
	drops     uint64
	m         *sync.Mutex // Locks everything
	pending   *Job
	preempts  uint64
	published uint64
}

// NewMailbox creates a new mailbox
func NewMailbox() *Mailbox {
	m := &sync.Mutex{}
	return &Mailbox{
		c: sync.NewCond(m),
		m: m,
	}
}

// MailboxStats represents mailbox stats
type MailboxStats struct {
	Busy      bool   `json:"busy"`
	Drops     uint64 `json:"drops"`
	Pending   bool   `json:"pending"`
	Preempts  uint64 `json:"preempts"`
	Published uint64 `json:"published"`
}

// Stats returns the mailbox stats
func (m *Mailbox) Stats() MailboxStats {
	m.m.Lock()
	defer m.m.Unlock()
	return MailboxStats{
		Busy:      m.current != nil,
		Drops:     m.drops,
		Pending:   m.pending != nil,
		Preempts:  m.preempts,
		Published: m.published,
	}
}

// Publish puts the job in the slot without blocking and returns the job it
// overwrote, if any. Once closed, the job is returned right away.
func (m *Mailbox) Publish(j *Job) (dropped *Job) {
	m.m.Lock()
	defer m.m.Unlock()

	// Closed
	if m.closed {
		return j
	}

	// Previous job has not been consumed
	if m.pending != nil {
		dropped = m.pending
		dropped.cancel()
		m.drops++
	}

	// Overwrite
	m.pending = j
	m.published++
	m.c.Broadcast()
	return
}

// Put puts the job in the slot once it is empty. Once closed, the job is
// returned right away.
func (m *Mailbox) Put(j *Job) (rejected *Job) {
	m.m.Lock()
	defer m.m.Unlock()

	// Wait for the slot
	for m.pending != nil && !m.closed {
		m.c.Wait()
	}

	// Closed
	if m.closed {
		return j
	}

	// Put
	m.pending = j
	m.published++
	m.c.Broadcast()
	return
}

// Wait blocks until every job put in the slot has been processed or the
// mailbox is closed. It must only be called while a consumer is running.
func (m *Mailbox) Wait() {
	m.m.Lock()
	defer m.m.Unlock()
	for (m.pending != nil || m.current != nil) && !m.closed {
		m.c.Wait()
	}
}

// Preempt empties the slot, returning the job it held, and cancels the job
// being processed.
func (m *Mailbox) Preempt() (dropped *Job) {
	m.m.Lock()
	defer m.m.Unlock()

	// Empty slot
	if m.pending != nil {
		dropped = m.pending
		dropped.cancel()
		m.pending = nil
		m.preempts++
	}

	// Cancel current job
	if m.current != nil && m.current.ctx.Err() == nil {
		m.current.cancel()
		m.preempts++
	}
	return
}

// Next blocks until a job is available and returns it. It returns nil once
// the mailbox is closed and drained.
func (m *Mailbox) Next() *Job {
	m.m.Lock()
	defer m.m.Unlock()

	// Wait
	for m.pending == nil && !m.closed {
		m.c.Wait()
	}

	// Nothing left
	if m.pending == nil {
		return nil
	}

	// Consume
	m.current = m.pending
	m.pending = nil
	m.c.Broadcast()
	return m.current
}

// Done marks the current job as processed
func (m *Mailbox) Done(j *Job) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.current == j {
		m.current = nil
	}
	j.cancel()
	m.c.Broadcast()
}

// Close makes Next return nil once the slot is drained
func (m *Mailbox) Close() {
	m.m.Lock()
	defer m.m.Unlock()
	m.closed = true
	m.c.Broadcast()
}
