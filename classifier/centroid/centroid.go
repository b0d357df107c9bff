package centroid

import (
	"encoding/json"
	"math"

	"github.com/asticode/go-astiglove/classifier"
	"github.com/pkg/errors"
)

// Kind is the persisted model kind
const Kind = "centroid"

// Model is a nearest centroid model on standardized vectors. Probabilities
// are the softmax of the negative mean squared distances to the centroids.
type Model struct {
	Centroids   [][]float64 `json:"centroids"`
	Means       []float64   `json:"means"`
	Scales      []float64   `json:"scales"`
	Temperature float64     `json:"temperature"`
}

// Train computes one centroid per label. Labels without vectors get no
// centroid and are never predicted.
func Train(vs [][]float64, ys []int, numLabels int) (m *Model, err error) {
	// Check input
	if len(vs) == 0 {
		err = errors.New("centroid: no vectors")
		return
	} else if len(vs) != len(ys) {
		err = errors.Errorf("centroid: %d vectors for %d labels", len(vs), len(ys))
		return
	}
	dim := len(vs[0])
	for idx, v := range vs {
		if len(v) != dim {
			err = errors.Errorf("centroid: vector #%d has %d entries, expected %d", idx, len(v), dim)
			return
		} else if ys[idx] < 0 || ys[idx] >= numLabels {
			err = errors.Errorf("centroid: label #%d is %d, expected [0, %d)", idx, ys[idx], numLabels)
			return
		}
	}

	// Create model
	m = &Model{
		Centroids:   make([][]float64, numLabels),
		Means:       make([]float64, dim),
		Scales:      make([]float64, dim),
		Temperature: 1,
	}

	// Standardization
	n := float64(len(vs))
	for _, v := range vs {
		for i, x := range v {
			m.Means[i] += x
		}
	}
	for i := range m.Means {
		m.Means[i] /= n
	}
	for _, v := range vs {
		for i, x := range v {
			d := x - m.Means[i]
			m.Scales[i] += d * d
		}
	}
	for i := range m.Scales {
		if m.Scales[i] = math.Sqrt(m.Scales[i] / n); m.Scales[i] == 0 {
			m.Scales[i] = 1
		}
	}

	// Centroids
	counts := make([]int, numLabels)
	for idx, v := range vs {
		y := ys[idx]
		if m.Centroids[y] == nil {
			m.Centroids[y] = make([]float64, dim)
		}
		for i, z := range m.standardize(v) {
			m.Centroids[y][i] += z
		}
		counts[y]++
	}
	for y, c := range m.Centroids {
		for i := range c {
			c[i] /= float64(counts[y])
		}
	}
	return
}

// Decode implements the classifier.Decoder signature
func Decode(data json.RawMessage) (classifier.Model, error) {
	m := &Model{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(err, "centroid: unmarshaling failed")
	}
	if len(m.Means) == 0 || len(m.Means) != len(m.Scales) {
		return nil, errors.New("centroid: invalid standardization")
	}
	for i, s := range m.Scales {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, errors.Errorf("centroid: scale #%d is %v", i, s)
		}
	}
	var n int
	for y, c := range m.Centroids {
		if c == nil {
			continue
		} else if len(c) != len(m.Means) {
			return nil, errors.Errorf("centroid: centroid #%d has %d entries, expected %d", y, len(c), len(m.Means))
		}
		n++
	}
	if n == 0 {
		return nil, errors.New("centroid: no centroids")
	}
	if m.Temperature <= 0 {
		m.Temperature = 1
	}
	return m, nil
}

// Shape implements the classifier.Shaper interface
func (m *Model) Shape() (inputs, outputs int) {
	return len(m.Means), len(m.Centroids)
}

func (m *Model) standardize(v []float64) (z []float64) {
	z = make([]float64, len(v))
	for i, x := range v {
		z[i] = (x - m.Means[i]) / m.Scales[i]
	}
	return
}

// PredictProba implements the classifier.Model interface
func (m *Model) PredictProba(v []float64) (ps []float64, err error) {
	// Check input
	if len(v) != len(m.Means) {
		err = errors.Errorf("centroid: vector has %d entries, expected %d", len(v), len(m.Means))
		return
	}

	// Distances
	z := m.standardize(v)
	ds := make([]float64, len(m.Centroids))
	min := math.Inf(1)
	for y, c := range m.Centroids {
		if c == nil {
			ds[y] = math.Inf(1)
			continue
		}
		for i := range c {
			d := z[i] - c[i]
			ds[y] += d * d
		}
		ds[y] /= float64(len(c))
		min = math.Min(min, ds[y])
	}

	// Softmax
	ps = make([]float64, len(ds))
	var sum float64
	for y, d := range ds {
		if math.IsInf(d, 1) {
			continue
		}
		ps[y] = math.Exp(-(d - min) / m.Temperature)
		sum += ps[y]
	}
	for y := range ps {
		ps[y] /= sum
	}
	return
}

// Predict implements the classifier.Model interface
func (m *Model) Predict(v []float64) (y int, err error) {
	// Predict probabilities
	var ps []float64
	if ps, err = m.PredictProba(v); err != nil {
		err = errors.Wrap(err, "centroid: predicting probabilities failed")
		return
	}

	// Arg max
	for i, p := range ps {
		if p > ps[y] {
			y = i
		}
	}
	return
}
