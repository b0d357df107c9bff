package classifier

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/asticode/go-astiglove"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type mockedModel struct {
	calls int
	ps    []float64
}

func (m *mockedModel) Predict(v []float64) (int, error) { return 0, nil }

func (m *mockedModel) PredictProba(v []float64) ([]float64, error) {
	m.calls++
	return m.ps, nil
}

type mockedAnnouncer struct {
	err    error
	labels []string
}

func (a *mockedAnnouncer) Announce(label string) (string, error) {
	a.labels = append(a.labels, label)
	return "say " + label, a.err
}

func TestInvokerConfidenceGate(t *testing.T) {
	labels := []string{"bye", "hello", "thanks"}

	// Below threshold
	m := &mockedModel{ps: []float64{0.35, 0.40, 0.25}}
	a := &mockedAnnouncer{}
	i := NewInvoker(m, labels, a, 0.45)
	c, err := i.Classify(context.Background(), []float64{1})
	assert.NoError(t, err)
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, astiglove.Classification{Confidence: 0.40, Index: 1, Label: "hello"}, c)
	assert.Len(t, a.labels, 0)

	// Above threshold
	m.ps = []float64{0.30, 0.20, 0.50}
	c, err = i.Classify(context.Background(), []float64{1})
	assert.NoError(t, err)
	assert.Equal(t, astiglove.Classification{Announced: true, Confidence: 0.50, Index: 2, Label: "thanks", Phrase: "say thanks"}, c)
	assert.Equal(t, []string{"thanks"}, a.labels)

	// Exactly at threshold
	m.ps = []float64{0.45, 0.30, 0.25}
	c, err = i.Classify(context.Background(), []float64{1})
	assert.NoError(t, err)
	assert.True(t, c.Announced)

	// Announcer failure
	a.err = errors.New("test")
	c, err = i.Classify(context.Background(), []float64{1})
	assert.NoError(t, err)
	assert.False(t, c.Announced)
	assert.Equal(t, "bye", c.Label)
}

func TestInvokerErrors(t *testing.T) {
	i := NewInvoker(&mockedModel{ps: []float64{1}}, []string{"a", "b"}, nil, 0.45)
	_, err := i.Classify(context.Background(), nil)
	assert.Error(t, err)

	a := &mockedAnnouncer{}
	i = NewInvoker(&mockedModel{ps: []float64{0.9, 0.1}}, []string{"a", "b"}, a, 0.45)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = i.Classify(ctx, nil)
	assert.True(t, astiglove.Is(err, astiglove.ErrPreempted))
	assert.Len(t, a.labels, 0)
}

type constantModel struct {
	Y int `json:"y"`
}

func (m constantModel) Predict(v []float64) (int, error) { return m.Y, nil }

func (m constantModel) PredictProba(v []float64) ([]float64, error) {
	ps := make([]float64, 2)
	ps[m.Y] = 1
	return ps, nil
}

func decodeConstant(data json.RawMessage) (Model, error) {
	var m constantModel
	err := json.Unmarshal(data, &m)
	return m, err
}

func TestArtifact(t *testing.T) {
	dir := t.TempDir()
	l := astiglove.Layout{Features: true, TargetFrames: 20, TrimZeroFrames: true}
	assert.NoError(t, SaveArtifact(dir, "constant", constantModel{Y: 1}, []string{"bye", "hello"}, l))

	a, err := LoadArtifact(dir)
	assert.NoError(t, err)
	assert.Equal(t, "constant", a.Kind)
	assert.Equal(t, []string{"bye", "hello"}, a.Labels)
	assert.Equal(t, l, a.Layout)

	ds := map[string]Decoder{"constant": decodeConstant}
	m, err := a.NewModel(ds, l)
	assert.NoError(t, err)
	y, err := m.Predict(nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, y)

	_, err = a.NewModel(ds, astiglove.DefaultLayout)
	assert.True(t, astiglove.Is(err, astiglove.ErrClassifierLoad))
	_, err = a.NewModel(map[string]Decoder{}, l)
	assert.True(t, astiglove.Is(err, astiglove.ErrClassifierLoad))
}

func TestLoadArtifactErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadArtifact(dir)
	assert.True(t, astiglove.Is(err, astiglove.ErrClassifierLoad))

	assert.NoError(t, ioutil.WriteFile(filepath.Join(dir, FileLabels), []byte("[]"), 0644))
	_, err = LoadArtifact(dir)
	assert.True(t, astiglove.Is(err, astiglove.ErrClassifierLoad))

	assert.NoError(t, ioutil.WriteFile(filepath.Join(dir, FileLabels), []byte(`["a"]`), 0644))
	assert.NoError(t, ioutil.WriteFile(filepath.Join(dir, FileLayout), []byte("{"), 0644))
	_, err = LoadArtifact(dir)
	assert.True(t, astiglove.Is(err, astiglove.ErrClassifierLoad))
}

type shapedModel struct {
	constantModel
	inputs  int
	outputs int
}

func (m shapedModel) Shape() (int, int) { return m.inputs, m.outputs }

func TestArtifactShape(t *testing.T) {
	l := astiglove.Layout{Features: true, TargetFrames: 20, TrimZeroFrames: true}
	a := Artifact{Kind: "shaped", Labels: []string{"bye", "hello"}, Layout: l}
	for _, c := range []struct {
		inputs  int
		ok      bool
		outputs int
	}{
		{inputs: l.VectorLength(), ok: true, outputs: 2},
		{inputs: l.VectorLength() + 1, outputs: 2},
		{inputs: l.VectorLength(), outputs: 3},
	} {
		ds := map[string]Decoder{"shaped": func(json.RawMessage) (Model, error) {
			return shapedModel{inputs: c.inputs, outputs: c.outputs}, nil
		}}
		m, err := a.NewModel(ds, l)
		if c.ok {
			assert.NoError(t, err)
			assert.NotNil(t, m)
		} else {
			assert.True(t, astiglove.Is(err, astiglove.ErrClassifierLoad))
			assert.Nil(t, m)
		}
	}
}
