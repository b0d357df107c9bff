package astiglove

import (
	"math"

	"github.com/pkg/errors"
)

// Layout describes how a recording is turned into a classifier input vector.
// Training and inference must share the same layout, which is why it is
// persisted next to the model.
type Layout struct {
	Features       bool `json:"features" toml:"features"`
	TargetFrames   int  `json:"target_frames" toml:"target_frames"`
	TrimZeroFrames bool `json:"trim_zero_frames" toml:"trim_zero_frames"`
}

// DefaultLayout is the layout used when nothing is configured
var DefaultLayout = Layout{
	Features:       true,
	TargetFrames:   50,
	TrimZeroFrames: true,
}

// Policy returns the layout trim policy
func (l Layout) Policy() TrimPolicy {
	if l.TrimZeroFrames {
		return TrimZeroFrames
	}
	return KeepAll
}

// VectorLength returns the exact number of entries of a vector
func (l Layout) VectorLength() int {
	n := l.TargetFrames * NumChannels
	if l.Features {
		n += NumChannels * NumFeatureGroups
	}
	return n
}

// Validate checks the layout
func (l Layout) Validate() error {
	if l.TargetFrames < 1 {
		return errors.Wrapf(ErrInvalidTarget, "astiglove: layout target frames is %d", l.TargetFrames)
	}
	return nil
}

// Vector builds the classifier input vector out of raw frames. This is the
// only way vectors are built, both when training and when classifying.
func (l Layout) Vector(fs []Frame) (v []float64, err error) {
	// Resample
	var seq []Frame
	if seq, err = l.Sequence(fs); err != nil {
		err = errors.Wrap(err, "astiglove: building sequence failed")
		return
	}

	// Build vector
	v = l.SequenceVector(seq)
	return
}

// Sequence resamples raw frames to the layout target frame count
func (l Layout) Sequence(fs []Frame) (seq []Frame, err error) {
	if seq, err = Resample(fs, l.TargetFrames, l.Policy()); err != nil {
		err = errors.Wrap(err, "astiglove: resampling failed")
		return
	}
	return
}

// SequenceVector builds the vector of an already resampled sequence
func (l Layout) SequenceVector(seq []Frame) []float64 {
	if l.Features {
		return ExtractFeatures(seq)
	}
	return Flatten(seq)
}

// Flatten concatenates frames in order
func Flatten(seq []Frame) (v []float64) {
	v = make([]float64, 0, len(seq)*NumChannels)
	for _, f := range seq {
		v = append(v, f[:]...)
	}
	return
}

// ExtractFeatures returns the flattened sequence followed by, per channel,
// the velocity mean, the velocity standard deviation, the value mean, the
// value standard deviation and the value range. Standard deviations are
// population ones.
func ExtractFeatures(seq []Frame) (v []float64) {
	// Velocity
	var vel []Frame
	for i := 1; i < len(seq); i++ {
		var d Frame
		for c := 0; c < NumChannels; c++ {
			d[c] = seq[i][c] - seq[i-1][c]
		}
		vel = append(vel, d)
	}

	// Compute stats
	velMean, velStd := meanStd(vel)
	valMean, valStd := meanStd(seq)
	valRange := peakToPeak(seq)

	// Concatenate
	v = make([]float64, 0, len(seq)*NumChannels+NumChannels*NumFeatureGroups)
	v = append(v, Flatten(seq)...)
	v = append(v, velMean[:]...)
	v = append(v, velStd[:]...)
	v = append(v, valMean[:]...)
	v = append(v, valStd[:]...)
	v = append(v, valRange[:]...)
	return
}

func meanStd(fs []Frame) (mean, std Frame) {
	// No frames
	if len(fs) == 0 {
		return
	}

	// Mean
	n := float64(len(fs))
	for _, f := range fs {
		for c := 0; c < NumChannels; c++ {
			mean[c] += f[c]
		}
	}
	for c := 0; c < NumChannels; c++ {
		mean[c] /= n
	}

	// Std
	for _, f := range fs {
		for c := 0; c < NumChannels; c++ {
			d := f[c] - mean[c]
			std[c] += d * d
		}
	}
	for c := 0; c < NumChannels; c++ {
		std[c] = math.Sqrt(std[c] / n)
	}
	return
}

func peakToPeak(fs []Frame) (r Frame) {
	// No frames
	if len(fs) == 0 {
		return
	}

	// Loop through frames
	min, max := fs[0], fs[0]
	for _, f := range fs[1:] {
		for c := 0; c < NumChannels; c++ {
			min[c] = math.Min(min[c], f[c])
			max[c] = math.Max(max[c], f[c])
		}
	}
	for c := 0; c < NumChannels; c++ {
		r[c] = max[c] - min[c]
	}
	return
}
