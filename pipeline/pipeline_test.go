package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/classifier"
	"github.com/asticode/go-astiglove/dataset"
	"github.com/asticode/go-astiglove/recorder"
	"github.com/stretchr/testify/assert"
)

func frameLine(i int) string {
	var ss []string
	for c := 0; c < astiglove.NumChannels; c++ {
		ss = append(ss, fmt.Sprintf("%d.5", i+c))
	}
	return "S " + strings.Join(ss, " ") + " E"
}

func outcomes(d *astiglove.Dispatcher) *[]astiglove.Outcome {
	var ocs []astiglove.Outcome
	d.On(astiglove.EventNameAttemptEnded, func(e astiglove.Event) error {
		ocs = append(ocs, *e.Outcome)
		return nil
	})
	return &ocs
}

func TestCollector(t *testing.T) {
	d := astiglove.NewDispatcher()
	ocs := outcomes(d)
	w := dataset.NewWriter(dataset.Options{Root: t.TempDir()})
	s := dataset.Session{Gesture: "hello", Subject: "bob"}
	c := NewCollector(w, s, astiglove.Layout{TargetFrames: 10, TrimZeroFrames: true}, d, CollectorOptions{})
	r := recorder.New(recorder.Options{Handoff: recorder.HandoffSync, MinRawFrames: 5}, d, c, c)

	// Saved
	r.HandleLine("START_SIGNAL")
	for i := 0; i < 5; i++ {
		r.HandleLine(frameLine(i))
	}
	r.HandleLine("SUCCESS_SIGNAL")
	assert.Len(t, *ocs, 1)
	o := (*ocs)[0]
	assert.Equal(t, astiglove.OutcomeSaved, o.Name)
	assert.Equal(t, 1, o.Count)
	assert.Equal(t, 5, o.NumFrames)
	assert.Equal(t, 8.5, o.Peaks.Left[4])
	fs, err := dataset.ReadFile(o.Path)
	assert.NoError(t, err)
	assert.Len(t, fs, 5)

	// Too short
	r.HandleLine("START_SIGNAL")
	for i := 0; i < 3; i++ {
		r.HandleLine(frameLine(i))
	}
	r.HandleLine("SUCCESS_SIGNAL")
	assert.Equal(t, astiglove.OutcomeTooShort, (*ocs)[1].Name)
	n, err := w.Count(s)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	// Only zero frames
	r.HandleLine("START_SIGNAL")
	for i := 0; i < 5; i++ {
		r.HandleLine("S " + strings.Repeat("0 ", astiglove.NumChannels) + "E")
	}
	r.HandleLine("SUCCESS_SIGNAL")
	assert.Equal(t, astiglove.OutcomeInsufficientData, (*ocs)[2].Name)

	// Delete
	r.HandleLine("DELETE_SIGNAL")
	n, err = w.Count(s)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCollectorStoreResampled(t *testing.T) {
	d := astiglove.NewDispatcher()
	w := dataset.NewWriter(dataset.Options{Root: t.TempDir()})
	c := NewCollector(w, dataset.Session{Gesture: "hello", Subject: "bob"}, astiglove.Layout{TargetFrames: 10}, d, CollectorOptions{StoreResampled: true})
	var fs []astiglove.Frame
	for i := 0; i < 4; i++ {
		l := astiglove.ParseLine(frameLine(i))
		fs = append(fs, l.Frame)
	}
	o := c.Process(context.Background(), astiglove.Attempt{ID: "1"}, fs)
	assert.Equal(t, astiglove.OutcomeSaved, o.Name)
	rfs, err := dataset.ReadFile(o.Path)
	assert.NoError(t, err)
	assert.Len(t, rfs, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o = c.Process(ctx, astiglove.Attempt{ID: "2"}, fs)
	assert.Equal(t, astiglove.OutcomePreempted, o.Name)
}

type mockedModel struct {
	ps  []float64
	dim int
}

func (m *mockedModel) Predict(v []float64) (int, error) { return 0, nil }

func (m *mockedModel) PredictProba(v []float64) ([]float64, error) {
	m.dim = len(v)
	return m.ps, nil
}

type mockedAnnouncer struct {
	labels []string
}

func (a *mockedAnnouncer) Announce(label string) (string, error) {
	a.labels = append(a.labels, label)
	return "spoken " + label, nil
}

type mockedPhraser struct{}

func (mockedPhraser) Phrase(label string) string { return "phrase " + label }

func TestInferer(t *testing.T) {
	d := astiglove.NewDispatcher()
	ocs := outcomes(d)
	var seqs int
	d.On(astiglove.EventNameSequenceResampled, func(e astiglove.Event) error {
		seqs++
		return nil
	})
	m := &mockedModel{ps: []float64{0.4, 0.6}}
	a := &mockedAnnouncer{}
	inv := classifier.NewInvoker(m, []string{"bye", "hello"}, a, 0.45)
	r := recorder.New(recorder.Options{Handoff: recorder.HandoffSync, MinRawFrames: 10}, d, NewInferer(inv, astiglove.DefaultLayout, d, mockedPhraser{}), nil)

	// Announced
	r.HandleLine("START_SIGNAL")
	for i := 0; i < 12; i++ {
		r.HandleLine(frameLine(i))
	}
	r.HandleLine("SUCCESS_SIGNAL")
	assert.Equal(t, 1210, m.dim)
	assert.Equal(t, 1, seqs)
	assert.Len(t, *ocs, 1)
	assert.Equal(t, astiglove.OutcomeClassified, (*ocs)[0].Name)
	assert.Equal(t, astiglove.Classification{Announced: true, Confidence: 0.6, Index: 1, Label: "hello", Phrase: "spoken hello"}, *(*ocs)[0].Classification)

	// Not announced
	m.ps = []float64{0.6, 0.4}
	inv = classifier.NewInvoker(m, []string{"bye", "hello"}, a, 0.7)
	r = recorder.New(recorder.Options{Handoff: recorder.HandoffSync, MinRawFrames: 10}, d, NewInferer(inv, astiglove.DefaultLayout, d, mockedPhraser{}), nil)
	r.HandleLine("START_SIGNAL")
	for i := 0; i < 10; i++ {
		r.HandleLine(frameLine(i))
	}
	r.HandleLine("SUCCESS_SIGNAL")
	assert.Equal(t, astiglove.Classification{Confidence: 0.6, Index: 0, Label: "bye", Phrase: "phrase bye"}, *(*ocs)[1].Classification)
	assert.Equal(t, []string{"hello"}, a.labels)
}
