package pipeline

import (
	"context"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/classifier"
	"github.com/pkg/errors"
)

// Phraser translates labels into phrases
type Phraser interface {
	Phrase(label string) string
}

// Inferer classifies recordings
type Inferer struct {
	d *astiglove.Dispatcher
	i *classifier.Invoker
	l astiglove.Layout
	p Phraser
}

// NewInferer creates a new inferer. p may be nil.
func NewInferer(i *classifier.Invoker, l astiglove.Layout, d *astiglove.Dispatcher, p Phraser) *Inferer {
	return &Inferer{
		d: d,
		i: i,
		l: l,
		p: p,
	}
}

// Process implements the recorder.Processor interface
func (i *Inferer) Process(ctx context.Context, a astiglove.Attempt, fs []astiglove.Frame) (o astiglove.Outcome) {
	// Resample
	seq, err := i.l.Sequence(fs)
	if err != nil {
		o.Error = err.Error()
		o.Name = astiglove.OutcomeFailed
		if astiglove.Is(err, astiglove.ErrInsufficientData) {
			o.Name = astiglove.OutcomeInsufficientData
		}
		return
	}

	// Dispatch
	i.d.Dispatch(astiglove.Event{
		Attempt:  &a,
		Name:     astiglove.EventNameSequenceResampled,
		Sequence: seq,
	})

	// Classify
	c, err := i.i.Classify(ctx, i.l.SequenceVector(seq))
	if err != nil {
		if astiglove.Is(err, astiglove.ErrPreempted) {
			o.Name = astiglove.OutcomePreempted
			return
		}
		o.Error = errors.Wrap(err, "pipeline: classifying failed").Error()
		o.Name = astiglove.OutcomeFailed
		return
	}

	// Translate
	if c.Phrase == "" && i.p != nil {
		c.Phrase = i.p.Phrase(c.Label)
	}
	o.Classification = &c
	o.Name = astiglove.OutcomeClassified
	return
}
