package classifier

import (
	"context"
	"math"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

// Options represents classifier options
type Options struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	ModelDir            string  `toml:"model_dir"`
}

// DefaultConfidenceThreshold is the threshold used when nothing is configured
const DefaultConfidenceThreshold = 0.45

// Model is a trained model
type Model interface {
	Predict(v []float64) (int, error)
	PredictProba(v []float64) ([]float64, error)
}

// Shaper is implemented by models knowing how many entries they expect and
// how many labels they score
type Shaper interface {
	Shape() (inputs, outputs int)
}

// Announcer acts on a confident classification and returns what it said
type Announcer interface {
	Announce(label string) (phrase string, err error)
}

// Invoker classifies vectors and announces confident results
type Invoker struct {
	a         Announcer
	labels    []string
	m         Model
	threshold float64
}

// NewInvoker creates a new invoker. a may be nil.
func NewInvoker(m Model, labels []string, a Announcer, threshold float64) *Invoker {
	return &Invoker{
		a:         a,
		labels:    labels,
		m:         m,
		threshold: threshold,
	}
}

// Labels returns the label list
func (i *Invoker) Labels() []string { return i.labels }

// Threshold returns the confidence threshold
func (i *Invoker) Threshold() float64 { return i.threshold }

// Classify invokes the model once, picks the most probable label and
// announces it when its probability reaches the threshold. Nothing is
// announced once ctx is done.
func (i *Invoker) Classify(ctx context.Context, v []float64) (c astiglove.Classification, err error) {
	// Predict
	var ps []float64
	if ps, err = i.m.PredictProba(v); err != nil {
		err = errors.Wrap(err, "classifier: predicting probabilities failed")
		return
	}

	// Check probabilities
	if len(ps) != len(i.labels) {
		err = errors.Errorf("classifier: %d probabilities for %d labels", len(ps), len(i.labels))
		return
	}

	// Arg max
	c.Index = -1
	for idx, p := range ps {
		if math.IsNaN(p) {
			continue
		}
		if c.Index < 0 || p > c.Confidence {
			c.Index = idx
			c.Confidence = p
		}
	}
	if c.Index < 0 {
		err = errors.New("classifier: no valid probability")
		return
	}
	c.Label = i.labels[c.Index]

	// Below threshold
	if c.Confidence < i.threshold {
		astilog.Debugf("classifier: %s confidence %.2f is below %.2f", c.Label, c.Confidence, i.threshold)
		return
	}

	// Preempted
	if ctx.Err() != nil {
		err = errors.Wrap(astiglove.ErrPreempted, "classifier: announcing aborted")
		return
	}

	// No announcer
	if i.a == nil {
		return
	}

	// Announce
	p, errAnnounce := i.a.Announce(c.Label)
	if errAnnounce != nil {
		astilog.Error(errors.Wrapf(errAnnounce, "classifier: announcing %s failed", c.Label))
		return
	}
	c.Announced = true
	c.Phrase = p
	return
}
