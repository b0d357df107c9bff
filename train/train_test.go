package train

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/classifier"
	"github.com/asticode/go-astiglove/classifier/centroid"
	"github.com/asticode/go-astiglove/dataset"
	"github.com/stretchr/testify/assert"
)

func recording(base float64, k int) (fs []astiglove.Frame) {
	for i := 0; i < 8+k%3; i++ {
		var f astiglove.Frame
		for c := range f {
			f[c] = base + float64(c) + float64((i*7+k*3+c)%5)/10
		}
		fs = append(fs, f)
	}
	return
}

func TestTrain(t *testing.T) {
	// Create dataset
	root := t.TempDir()
	w := dataset.NewWriter(dataset.Options{Root: root})
	for k := 0; k < 10; k++ {
		for g, base := range map[string]float64{"up": 100, "down": 0} {
			_, _, err := w.Write(dataset.Session{Gesture: g, Subject: "bob"}, recording(base, k))
			assert.NoError(t, err)
		}
	}
	_, _, err := w.Write(dataset.Session{Gesture: "up", Subject: "alice"}, recording(100, 0)[:1])
	assert.NoError(t, err)
	assert.NoError(t, ioutil.WriteFile(filepath.Join(root, "down", "broken.csv"), []byte("nope"), 0644))

	// Train
	o := Options{DatasetRoot: root, ModelDir: filepath.Join(t.TempDir(), "model")}
	l := astiglove.Layout{Features: true, TargetFrames: 10, TrimZeroFrames: true}
	var steps []string
	r, err := Train(context.Background(), o, l, func(p Progress) {
		if len(steps) == 0 || steps[len(steps)-1] != p.CurrentStep {
			steps = append(steps, p.CurrentStep)
		}
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{LoadingStep, EvaluatingStep, FittingStep}, steps)
	assert.Equal(t, []string{"down", "up"}, r.Labels)
	assert.Equal(t, 20, r.NumSamples)
	assert.Equal(t, 2, r.NumSkipped)
	assert.Equal(t, 2, r.NumHoldout)
	assert.Equal(t, float64(1), r.Accuracy)
	assert.Equal(t, []LabelScore{
		{Label: "down", Precision: 1, Recall: 1, Support: 1},
		{Label: "up", Precision: 1, Recall: 1, Support: 1},
	}, r.Scores)
	assert.False(t, r.UpToDate)

	// Load
	a, err := classifier.LoadArtifact(o.ModelDir)
	assert.NoError(t, err)
	assert.Equal(t, r.Labels, a.Labels)
	m, err := a.NewModel(map[string]classifier.Decoder{centroid.Kind: centroid.Decode}, l)
	assert.NoError(t, err)
	v, err := l.Vector(recording(100, 42))
	assert.NoError(t, err)
	y, err := m.Predict(v)
	assert.NoError(t, err)
	assert.Equal(t, "up", a.Labels[y])

	// Up to date
	r, err = Train(context.Background(), o, l, nil)
	assert.NoError(t, err)
	assert.True(t, r.UpToDate)

	// Layout changed
	r, err = Train(context.Background(), o, astiglove.Layout{TargetFrames: 10}, nil)
	assert.NoError(t, err)
	assert.False(t, r.UpToDate)

	// Forced
	o.Force = true
	r, err = Train(context.Background(), o, astiglove.Layout{TargetFrames: 10}, nil)
	assert.NoError(t, err)
	assert.False(t, r.UpToDate)
}

func TestTrainNoLabel(t *testing.T) {
	_, err := Train(context.Background(), Options{DatasetRoot: t.TempDir(), ModelDir: t.TempDir()}, astiglove.DefaultLayout, nil)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	var ss []sample
	for i := 0; i < 20; i++ {
		ss = append(ss, sample{label: i % 2})
	}
	train, holdout := split(ss, 0.15)
	assert.Len(t, holdout, 2)
	assert.Len(t, train, 18)
	assert.Equal(t, 0, holdout[0].label)
	assert.Equal(t, 1, holdout[1].label)
}

func TestScore(t *testing.T) {
	a, ss := score([]int{0, 0, 0, 1, 1, 2}, []int{0, 0, 1, 1, 0, 1}, []string{"a", "b", "c", "d"})
	assert.Equal(t, 0.5, a)
	assert.Equal(t, []LabelScore{
		{Label: "a", Precision: 2.0 / 3, Recall: 2.0 / 3, Support: 3},
		{Label: "b", Precision: 1.0 / 3, Recall: 0.5, Support: 2},
		{Label: "c", Support: 1},
		{Label: "d"},
	}, ss)
}
