package pipeline

import (
	"context"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/dataset"
	"github.com/pkg/errors"
)

// CollectorOptions represents collector options
type CollectorOptions struct {
	StoreResampled bool `toml:"store_resampled"`
}

// Collector persists recordings of a session
type Collector struct {
	d *astiglove.Dispatcher
	l astiglove.Layout
	o CollectorOptions
	s dataset.Session
	w *dataset.Writer
}

// NewCollector creates a new collector
func NewCollector(w *dataset.Writer, s dataset.Session, l astiglove.Layout, d *astiglove.Dispatcher, o CollectorOptions) *Collector {
	return &Collector{
		d: d,
		l: l,
		o: o,
		s: s,
		w: w,
	}
}

// Process implements the recorder.Processor interface. Raw frames are stored
// unless the collector is configured to store resampled ones, but a
// recording that can't be resampled is never stored.
func (c *Collector) Process(ctx context.Context, a astiglove.Attempt, fs []astiglove.Frame) (o astiglove.Outcome) {
	// Init outcome
	o.Gesture = c.s.Gesture
	o.Subject = c.s.Subject

	// Resample
	seq, err := c.l.Sequence(fs)
	if err != nil {
		o.Error = err.Error()
		o.Name = astiglove.OutcomeFailed
		if astiglove.Is(err, astiglove.ErrInsufficientData) {
			o.Name = astiglove.OutcomeInsufficientData
		}
		return
	}

	// Dispatch
	c.d.Dispatch(astiglove.Event{
		Attempt:  &a,
		Name:     astiglove.EventNameSequenceResampled,
		Sequence: seq,
	})

	// Preempted
	if ctx.Err() != nil {
		o.Name = astiglove.OutcomePreempted
		return
	}

	// Write
	ws := fs
	if c.o.StoreResampled {
		ws = seq
	}
	if o.Path, o.Count, err = c.w.Write(c.s, ws); err != nil {
		o.Error = errors.Wrap(err, "pipeline: writing failed").Error()
		o.Name = astiglove.OutcomeFailed
		return
	}

	// Report
	p := astiglove.NewFlexPeaks(fs)
	o.Name = astiglove.OutcomeSaved
	o.Peaks = &p
	return
}

// DeleteLatest implements the recorder.Deleter interface
func (c *Collector) DeleteLatest() (d astiglove.Deletion, err error) {
	if d, err = c.w.DeleteLatest(c.s); err != nil {
		err = errors.Wrap(err, "pipeline: deleting latest failed")
		return
	}
	return
}
