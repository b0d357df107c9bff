package astiglove

import (
	"github.com/pkg/errors"
)

// TrimPolicy decides which frames take part in resampling
type TrimPolicy int

// Trim policies
const (
	KeepAll TrimPolicy = iota
	TrimZeroFrames
)

func (p TrimPolicy) String() string {
	if p == TrimZeroFrames {
		return "trim_zero_frames"
	}
	return "keep_all"
}

// Usable returns the frames that take part in resampling under the policy.
func (p TrimPolicy) Usable(fs []Frame) []Frame {
	if p != TrimZeroFrames {
		return fs
	}
	o := make([]Frame, 0, len(fs))
	for _, f := range fs {
		if !f.IsZero() {
			o = append(o, f)
		}
	}
	return o
}

// Resample normalizes a variable length recording to exactly target frames.
//
// Source samples sit at indexes 0..n-1 and target points are evenly spaced on
// the same range. Each channel is linearly interpolated between its two
// surrounding samples; points falling outside the source range follow the
// slope of the nearest boundary segment.
func Resample(fs []Frame, target int, p TrimPolicy) (o []Frame, err error) {
	// Invalid target
	if target < 1 {
		err = errors.Wrapf(ErrInvalidTarget, "astiglove: target is %d", target)
		return
	}

	// Apply policy
	us := p.Usable(fs)
	n := len(us)

	// Not enough frames
	if n < 2 {
		err = errors.Wrapf(ErrInsufficientData, "astiglove: %d usable frames out of %d", n, len(fs))
		return
	}

	// Loop through target points
	o = make([]Frame, target)
	for j := 0; j < target; j++ {
		// Get position on the source axis
		var x float64
		if target > 1 {
			x = float64(j) * float64(n-1) / float64(target-1)
		}

		// Get segment, clamped so that out of range points extrapolate
		i := int(x)
		if i < 0 {
			i = 0
		} else if i > n-2 {
			i = n - 2
		}
		t := x - float64(i)

		// Interpolate every channel
		for c := 0; c < NumChannels; c++ {
			o[j][c] = lerp(us[i][c], us[i+1][c], t)
		}
	}
	return
}

func lerp(a, b, t float64) float64 {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return a + (b-a)*t
}
