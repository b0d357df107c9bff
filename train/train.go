package train

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/classifier"
	"github.com/asticode/go-astiglove/classifier/centroid"
	"github.com/asticode/go-astiglove/dataset"
	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

// Steps
const (
	LoadingStep    = "loading"
	EvaluatingStep = "evaluating"
	FittingStep    = "fitting"
)

// DefaultHoldoutRatio is the share of each label kept aside for evaluation
const DefaultHoldoutRatio = 0.15

// Options represents training options
type Options struct {
	DatasetRoot  string  `toml:"dataset_root"`
	Force        bool    `toml:"force"`
	HoldoutRatio float64 `toml:"holdout_ratio"`
	ModelDir     string  `toml:"model_dir"`
}

// Progress represents training progress
type Progress struct {
	CurrentStep string   `json:"current_step"`
	Progress    float64  `json:"progress"` // In percentage
	Steps       []string `json:"steps"`
}

// Result sums up a training
type Result struct {
	Accuracy   float64      `json:"accuracy"`
	Labels     []string     `json:"labels"`
	NumHoldout int          `json:"num_holdout"`
	NumSamples int          `json:"num_samples"`
	NumSkipped int          `json:"num_skipped"`
	Scores     []LabelScore `json:"scores,omitempty"`
	UpToDate   bool         `json:"up_to_date"`
}

// LabelScore represents the hold out scores of a label. Recall is the share
// of the label samples predicted as such, precision is the share of the
// label predictions that were right.
type LabelScore struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}

type sample struct {
	label int
	path  string
	v     []float64
}

// Train builds vectors out of every dataset file with the layout, evaluates
// a model on a per label hold out split, then fits the final model on every
// sample and saves it along with the ordered labels and the layout. Nothing
// is done if neither the dataset nor the layout changed since the last
// training, unless forced.
func Train(ctx context.Context, o Options, l astiglove.Layout, progressFunc func(Progress)) (r Result, err error) {
	// Default options
	if o.HoldoutRatio <= 0 || o.HoldoutRatio >= 1 {
		o.HoldoutRatio = DefaultHoldoutRatio
	}

	// Init progress
	p := Progress{Steps: []string{LoadingStep, EvaluatingStep, FittingStep}}
	update := func(step string, progress float64) {
		p.CurrentStep = step
		p.Progress = progress
		if progressFunc != nil {
			progressFunc(p)
		}
	}

	// Get labels
	if r.Labels, err = dataset.Labels(o.DatasetRoot); err != nil {
		err = errors.Wrap(err, "train: getting labels failed")
		return
	} else if len(r.Labels) == 0 {
		err = errors.Errorf("train: no label in %s", o.DatasetRoot)
		return
	}

	// Get files
	var files [][]string
	for _, label := range r.Labels {
		var ps []string
		if ps, err = dataset.Files(o.DatasetRoot, label); err != nil {
			err = errors.Wrapf(err, "train: getting files of %s failed", label)
			return
		}
		files = append(files, ps)
	}

	// Hash
	var h []byte
	if h, err = hash(files, l); err != nil {
		err = errors.Wrap(err, "train: hashing failed")
		return
	}

	// Check whether hashes are the same
	if !o.Force {
		var same bool
		if same, err = sameHashes(h, hashPath(o.ModelDir)); err != nil {
			err = errors.Wrap(err, "train: checking whether hashes are the same failed")
			return
		} else if same {
			astilog.Infof("train: dataset and layout didn't change since last training, use force to train anyway")
			r.UpToDate = true
			return
		}
	}

	// Load samples
	var ss []sample
	if ss, r.NumSkipped, err = load(ctx, files, l, func(progress float64) { update(LoadingStep, progress) }); err != nil {
		err = errors.Wrap(err, "train: loading samples failed")
		return
	}
	r.NumSamples = len(ss)
	if len(ss) == 0 {
		err = errors.Errorf("train: no usable sample in %s", o.DatasetRoot)
		return
	}

	// Evaluate
	update(EvaluatingStep, 0)
	if r.Accuracy, r.Scores, r.NumHoldout, err = evaluate(ss, r.Labels, o.HoldoutRatio); err != nil {
		err = errors.Wrap(err, "train: evaluating failed")
		return
	}
	update(EvaluatingStep, 100)

	// Check context
	if ctx.Err() != nil {
		err = ctx.Err()
		return
	}

	// Fit
	update(FittingStep, 0)
	var m *centroid.Model
	if m, err = fit(ss, len(r.Labels)); err != nil {
		err = errors.Wrap(err, "train: fitting failed")
		return
	}

	// Save
	if err = classifier.SaveArtifact(o.ModelDir, centroid.Kind, m, r.Labels, l); err != nil {
		err = errors.Wrap(err, "train: saving artifact failed")
		return
	}

	// Store hash
	if err = ioutil.WriteFile(hashPath(o.ModelDir), h, 0666); err != nil {
		err = errors.Wrapf(err, "train: storing hash in %s failed", hashPath(o.ModelDir))
		return
	}
	update(FittingStep, 100)
	return
}

func hashPath(dir string) string {
	return filepath.Join(dir, "hash")
}

func hash(files [][]string, l astiglove.Layout) (h []byte, err error) {
	// Add layout
	s := sha1.New()
	if err = json.NewEncoder(s).Encode(l); err != nil {
		err = errors.Wrap(err, "train: encoding layout failed")
		return
	}

	// Loop through files
	for label, ps := range files {
		for _, p := range ps {
			// Stat
			var fi os.FileInfo
			if fi, err = os.Stat(p); err != nil {
				err = errors.Wrapf(err, "train: stating %s failed", p)
				return
			}

			// Add
			fmt.Fprintf(s, "%d|%s|%d|%d\n", label, p, fi.Size(), fi.ModTime().UnixNano())
		}
	}
	h = s.Sum(nil)
	return
}

func sameHashes(h []byte, path string) (same bool, err error) {
	// Get previous hash
	var ph []byte
	if ph, err = ioutil.ReadFile(path); err != nil {
		if os.IsNotExist(err) {
			err = nil
			return
		}
		err = errors.Wrapf(err, "train: reading %s failed", path)
		return
	}
	same = bytes.Equal(ph, h)
	return
}

func load(ctx context.Context, files [][]string, l astiglove.Layout, progressFunc func(float64)) (ss []sample, skipped int, err error) {
	// Count
	var total, done int
	for _, ps := range files {
		total += len(ps)
	}

	// Loop through labels
	for label, ps := range files {
		// Loop through files
		for _, p := range ps {
			// Check context
			if ctx.Err() != nil {
				err = ctx.Err()
				return
			}

			// Update progress
			done++
			progressFunc(float64(done) / float64(total) * 100)

			// Read
			var fs []astiglove.Frame
			if fs, err = dataset.ReadFile(p); err != nil {
				astilog.Error(errors.Wrapf(err, "train: skipping %s", p))
				err = nil
				skipped++
				continue
			}

			// Build vector
			var v []float64
			if v, err = l.Vector(fs); err != nil {
				astilog.Error(errors.Wrapf(err, "train: skipping %s", p))
				err = nil
				skipped++
				continue
			}

			// Append
			ss = append(ss, sample{
				label: label,
				path:  p,
				v:     v,
			})
		}
	}
	return
}

// split spreads the hold out samples evenly among the samples of each label
func split(ss []sample, ratio float64) (train, holdout []sample) {
	seen := make(map[int]int)
	for _, s := range ss {
		i := seen[s.label]
		seen[s.label]++
		if int(float64(i+1)*ratio) > int(float64(i)*ratio) {
			holdout = append(holdout, s)
		} else {
			train = append(train, s)
		}
	}
	return
}

func fit(ss []sample, numLabels int) (m *centroid.Model, err error) {
	vs := make([][]float64, 0, len(ss))
	ys := make([]int, 0, len(ss))
	for _, s := range ss {
		vs = append(vs, s.v)
		ys = append(ys, s.label)
	}
	if m, err = centroid.Train(vs, ys, numLabels); err != nil {
		err = errors.Wrap(err, "train: training centroid model failed")
		return
	}
	return
}

func evaluate(ss []sample, labels []string, ratio float64) (accuracy float64, scores []LabelScore, n int, err error) {
	// Split
	train, holdout := split(ss, ratio)
	if len(train) == 0 || len(holdout) == 0 {
		astilog.Infof("train: not enough samples to evaluate")
		return
	}

	// Fit
	var m *centroid.Model
	if m, err = fit(train, len(labels)); err != nil {
		err = errors.Wrap(err, "train: fitting failed")
		return
	}

	// Loop through hold out samples
	ys := make([]int, 0, len(holdout))
	ps := make([]int, 0, len(holdout))
	for _, s := range holdout {
		// Predict
		var y int
		if y, err = m.Predict(s.v); err != nil {
			err = errors.Wrapf(err, "train: predicting %s failed", s.path)
			return
		}
		ys = append(ys, s.label)
		ps = append(ps, y)
	}

	// Score
	n = len(holdout)
	accuracy, scores = score(ys, ps, labels)
	return
}

// score compares expected labels with predicted labels
func score(ys, ps []int, labels []string) (accuracy float64, scores []LabelScore) {
	// Count
	var ok int
	hits := make([]int, len(labels))
	predicted := make([]int, len(labels))
	scores = make([]LabelScore, len(labels))
	for i, y := range ys {
		scores[y].Support++
		predicted[ps[i]]++
		if ps[i] == y {
			hits[y]++
			ok++
		}
	}

	// Compute
	for y, l := range labels {
		scores[y].Label = l
		if scores[y].Support > 0 {
			scores[y].Recall = float64(hits[y]) / float64(scores[y].Support)
		}
		if predicted[y] > 0 {
			scores[y].Precision = float64(hits[y]) / float64(predicted[y])
		}
	}
	if len(ys) > 0 {
		accuracy = float64(ok) / float64(len(ys))
	}
	return
}
