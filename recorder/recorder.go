package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astilog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Handoffs
const (
	HandoffBlocking = "blocking"
	HandoffMailbox  = "mailbox"
	HandoffSync     = "sync"
)

// States
const (
	StateIdle      = "idle"
	StateRecording = "recording"
)

// Options represents recorder options
type Options struct {
	Handoff           string        `toml:"handoff"`
	InactivityTimeout time.Duration `toml:"inactivity_timeout"`
	MinRawFrames      int           `toml:"min_raw_frames"`
	PreemptOnStart    bool          `toml:"preempt_on_start"`
}

// Processor turns a finalized recording into a downstream effect. The
// returned outcome must carry a name; attempt fields are filled by the
// recorder. Processors must give up without side effect once ctx is done.
type Processor interface {
	Process(ctx context.Context, a astiglove.Attempt, fs []astiglove.Frame) astiglove.Outcome
}

// Deleter removes the most recent artifact of the session
type Deleter interface {
	DeleteLatest() (astiglove.Deletion, error)
}

// Status is a snapshot of the recorder
type Status struct {
	Attempt   *astiglove.Attempt             `json:"attempt,omitempty"`
	Mailbox   *MailboxStats                  `json:"mailbox,omitempty"`
	NumFrames int                            `json:"num_frames"`
	Outcomes  map[string]int                 `json:"outcomes"`
	Rejected  map[astiglove.RejectReason]int `json:"rejected"`
	State     string                         `json:"state"`
}

// Recorder owns the recording state and the gesture buffer. Lines must be
// handled from a single goroutine.
type Recorder struct {
	attempt    *astiglove.Attempt
	buf        []astiglove.Frame
	d          *astiglove.Dispatcher
	del        Deleter
	injected   chan string
	lastLineAt time.Time
	m          *sync.Mutex // Locks status
	mb         *Mailbox
	now        func() time.Time
	o          Options
	p          Processor
	status     Status
}

// New creates a new recorder. del may be nil in which case deletions are
// ignored.
func New(o Options, d *astiglove.Dispatcher, p Processor, del Deleter) (r *Recorder) {
	// Default options
	if o.MinRawFrames < 1 {
		o.MinRawFrames = 1
	}

	// Create recorder
	r = &Recorder{
		d:        d,
		del:      del,
		injected: make(chan string, 8),
		m:        &sync.Mutex{},
		now:      time.Now,
		o:        o,
		p:        p,
		status: Status{
			Outcomes: make(map[string]int),
			Rejected: make(map[astiglove.RejectReason]int),
			State:    StateIdle,
		},
	}

	// Create mailbox
	if o.Handoff != HandoffSync {
		r.mb = NewMailbox()
	}
	return
}

// Status returns a snapshot of the recorder
func (r *Recorder) Status() (s Status) {
	r.m.Lock()
	defer r.m.Unlock()
	s = r.status
	s.Outcomes = make(map[string]int)
	for k, v := range r.status.Outcomes {
		s.Outcomes[k] = v
	}
	s.Rejected = make(map[astiglove.RejectReason]int)
	for k, v := range r.status.Rejected {
		s.Rejected[k] = v
	}
	if r.mb != nil {
		ms := r.mb.Stats()
		s.Mailbox = &ms
	}
	return
}

func (r *Recorder) updateStatus() {
	r.m.Lock()
	defer r.m.Unlock()
	r.status.Attempt = r.attempt
	r.status.NumFrames = len(r.buf)
	if r.attempt != nil {
		r.status.State = StateRecording
	} else {
		r.status.State = StateIdle
	}
}

// Inject queues a line that will be handled by the read loop between two
// reads. It doesn't block and returns false if the queue is full.
func (r *Recorder) Inject(line string) bool {
	select {
	case r.injected <- line:
		return true
	default:
		return false
	}
}

// HandleLine handles one transport line. It never panics.
func (r *Recorder) HandleLine(s string) {
	// Recover
	defer func() {
		if v := recover(); v != nil {
			astilog.Error(errors.Errorf("recorder: handling line %q panicked: %v", s, v))
		}
	}()

	// Update status
	defer r.updateStatus()

	// Empty
	if s == "" {
		return
	}
	r.lastLineAt = r.now()

	// Parse
	l := astiglove.ParseLine(s)
	switch l.Kind {
	case astiglove.LineSignal:
		r.handleSignal(l.Signal)
	case astiglove.LineFrame:
		// Idle
		if r.attempt == nil {
			return
		}

		// Append
		r.buf = append(r.buf, l.Frame)
	case astiglove.LineRejected:
		// Idle
		if r.attempt == nil {
			return
		}

		// Log
		astilog.Debugf("recorder: line rejected: %s", l.Err)
		r.m.Lock()
		r.status.Rejected[l.Reason]++
		r.m.Unlock()
	}
}

func (r *Recorder) handleSignal(s astiglove.Signal) {
	switch s {
	case astiglove.SignalStart:
		// Restart
		if r.attempt != nil {
			r.abort(astiglove.OutcomeRestarted)
		}

		// Preempt
		if r.o.PreemptOnStart && r.mb != nil {
			if j := r.mb.Preempt(); j != nil {
				r.end(j.Attempt, len(j.Frames), astiglove.Outcome{Name: astiglove.OutcomePreempted})
			}
		}

		// Start
		r.attempt = &astiglove.Attempt{
			ID:        uuid.New().String(),
			StartedAt: r.now(),
		}
		r.buf = nil
		astilog.Debugf("recorder: attempt %s started", r.attempt.ID)
		r.d.Dispatch(astiglove.Event{
			Attempt: r.attempt,
			Name:    astiglove.EventNameAttemptStarted,
		})
	case astiglove.SignalCancel, astiglove.SignalDiscard, astiglove.SignalSuccess:
		// Idle
		if r.attempt == nil {
			astilog.Debugf("recorder: %s signal received while idle, ignoring", s)
			return
		}

		// Cancel or discard
		if s == astiglove.SignalCancel {
			r.abort(astiglove.OutcomeCancelled)
			return
		} else if s == astiglove.SignalDiscard {
			r.abort(astiglove.OutcomeDiscarded)
			return
		}

		// Too short
		if len(r.buf) < r.o.MinRawFrames {
			r.abort(astiglove.OutcomeTooShort)
			return
		}

		// Finalize
		a, fs := *r.attempt, r.buf
		r.attempt, r.buf = nil, nil
		r.handoff(newJob(a, fs))
	case astiglove.SignalDelete:
		// Reset
		if r.attempt != nil {
			r.abort(astiglove.OutcomeReset)
		}

		// No deleter
		if r.del == nil {
			astilog.Debug("recorder: delete signal received without deleter, ignoring")
			return
		}

		// Wait for finalized recordings to be processed so that the latest
		// artifact is the one of the latest recording
		if r.mb != nil {
			r.mb.Wait()
		}

		// Delete
		d, err := r.del.DeleteLatest()
		if err != nil {
			astilog.Error(errors.Wrap(err, "recorder: deleting latest artifact failed"))
			d.Error = err.Error()
		}
		r.d.Dispatch(astiglove.Event{
			Deletion: &d,
			Name:     astiglove.EventNameArtifactDeleted,
		})
	}
}

// abort ends the in-flight attempt without processing its buffer
func (r *Recorder) abort(name string) {
	a, n := *r.attempt, len(r.buf)
	r.attempt, r.buf = nil, nil
	r.end(a, n, astiglove.Outcome{Name: name})
}

func (r *Recorder) handoff(j *Job) {
	// Sync
	if r.mb == nil {
		r.process(j)
		return
	}

	// Put
	if r.o.Handoff == HandoffBlocking {
		if d := r.mb.Put(j); d != nil {
			r.end(d.Attempt, len(d.Frames), astiglove.Outcome{Name: astiglove.OutcomeInterrupted})
		}
		return
	}

	// Publish
	if d := r.mb.Publish(j); d != nil {
		n := astiglove.OutcomeDropped
		if d == j {
			n = astiglove.OutcomeInterrupted
		}
		r.end(d.Attempt, len(d.Frames), astiglove.Outcome{Name: n})
	}
}

func (r *Recorder) process(j *Job) {
	// Recover
	defer func() {
		if v := recover(); v != nil {
			err := errors.Errorf("recorder: processing attempt %s panicked: %v", j.Attempt.ID, v)
			astilog.Error(err)
			r.end(j.Attempt, len(j.Frames), astiglove.Outcome{Error: err.Error(), Name: astiglove.OutcomeFailed})
		}
	}()

	// Preempted before processing
	if j.ctx.Err() != nil {
		r.end(j.Attempt, len(j.Frames), astiglove.Outcome{Name: astiglove.OutcomePreempted})
		return
	}

	// Process
	o := r.p.Process(j.ctx, j.Attempt, j.Frames)
	if o.Name == "" {
		o.Name = astiglove.OutcomeFailed
	}
	r.end(j.Attempt, len(j.Frames), o)
}

func (r *Recorder) end(a astiglove.Attempt, n int, o astiglove.Outcome) {
	// Fill outcome
	o.AttemptID = a.ID
	o.EndedAt = r.now()
	o.NumFrames = n

	// Log
	if o.Error != "" {
		astilog.Infof("recorder: attempt %s ended with outcome %s after %d frames: %s", a.ID, o.Name, n, o.Error)
	} else {
		astilog.Infof("recorder: attempt %s ended with outcome %s after %d frames", a.ID, o.Name, n)
	}

	// Update status
	r.m.Lock()
	r.status.Outcomes[o.Name]++
	r.m.Unlock()

	// Dispatch
	r.d.Dispatch(astiglove.Event{
		Name:    astiglove.EventNameAttemptEnded,
		Outcome: &o,
	})
}

// Check force resets a recording that has seen no line for longer than the
// inactivity timeout
func (r *Recorder) Check(now time.Time) {
	if r.o.InactivityTimeout <= 0 || r.attempt == nil || now.Sub(r.lastLineAt) < r.o.InactivityTimeout {
		return
	}
	astilog.Debugf("recorder: no line received for %s, resetting", now.Sub(r.lastLineAt))
	r.abort(astiglove.OutcomeTimedOut)
	r.updateStatus()
}

// LineReader reads transport lines. Timeouts must return an empty line and
// no error.
type LineReader interface {
	ReadLine() (string, error)
}

// Run reads lines until the context is done or the reader fails with
// anything but a decode error.
func (r *Recorder) Run(ctx context.Context, lr LineReader) (err error) {
	for {
		// Handle injected lines
		r.handleInjected()

		// Context is done
		if ctx.Err() != nil {
			return
		}

		// Read
		var s string
		if s, err = lr.ReadLine(); err != nil {
			if astiglove.Is(err, astiglove.ErrDecode) {
				astilog.Debugf("recorder: %s", err)
				err = nil
				continue
			}
			err = errors.Wrap(err, "recorder: reading line failed")
			return
		}

		// Handle line
		r.HandleLine(s)

		// Watchdog
		r.Check(r.now())
	}
}

func (r *Recorder) handleInjected() {
	for {
		select {
		case s := <-r.injected:
			r.HandleLine(s)
		default:
			return
		}
	}
}

// Consume processes jobs until the recorder is closed and every job
// published before has been processed. It returns right away in sync mode.
func (r *Recorder) Consume() {
	// Sync
	if r.mb == nil {
		return
	}

	// Loop
	for {
		j := r.mb.Next()
		if j == nil {
			return
		}
		r.process(j)
		r.mb.Done(j)
	}
}

// Close ends the in-flight attempt and stops the consumer once the mailbox
// is drained. It must be called once the read loop has exited.
func (r *Recorder) Close() {
	if r.attempt != nil {
		r.abort(astiglove.OutcomeInterrupted)
		r.updateStatus()
	}
	if r.mb != nil {
		r.mb.Close()
	}
}
