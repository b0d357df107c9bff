package astiglove

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ramp(n int) (fs []Frame) {
	for i := 0; i < n; i++ {
		var f Frame
		for c := range f {
			f[c] = float64(i*(c+1)) + 0.5
		}
		fs = append(fs, f)
	}
	return
}

func TestResampleLength(t *testing.T) {
	for _, n := range []int{2, 3, 7, 50, 130} {
		for _, target := range []int{1, 2, 50, 100} {
			o, err := Resample(ramp(n), target, TrimZeroFrames)
			assert.NoError(t, err)
			assert.Len(t, o, target)
		}
	}
}

func TestResampleConstant(t *testing.T) {
	var f Frame
	for c := range f {
		f[c] = 0.1 * float64(c+1)
	}
	var fs []Frame
	for i := 0; i < 8; i++ {
		fs = append(fs, f)
	}
	o, err := Resample(fs, 8, KeepAll)
	assert.NoError(t, err)
	for _, g := range o {
		assert.Equal(t, f, g)
	}
	o, err = Resample(fs, 31, TrimZeroFrames)
	assert.NoError(t, err)
	for _, g := range o {
		assert.Equal(t, f, g)
	}
}

func TestResampleIdentity(t *testing.T) {
	fs := ramp(10)
	o, err := Resample(fs, 10, KeepAll)
	assert.NoError(t, err)
	assert.Equal(t, fs, o)
}

func TestResampleInterpolates(t *testing.T) {
	var a, b Frame
	for c := range b {
		b[c] = 10
	}
	o, err := Resample([]Frame{a, b}, 3, TrimZeroFrames)
	assert.Error(t, err)
	assert.True(t, Is(err, ErrInsufficientData))

	a[0] = 2
	o, err = Resample([]Frame{a, b}, 3, KeepAll)
	assert.NoError(t, err)
	assert.Equal(t, float64(2), o[0][0])
	assert.Equal(t, float64(6), o[1][0])
	assert.Equal(t, float64(10), o[2][0])
	assert.Equal(t, float64(5), o[1][1])
}

func TestResampleInsufficientData(t *testing.T) {
	var z Frame
	for _, fs := range [][]Frame{nil, ramp(1), {z, z, z}, append(ramp(2)[1:], z)} {
		o, err := Resample(fs, 50, TrimZeroFrames)
		assert.Nil(t, o)
		assert.True(t, Is(err, ErrInsufficientData))
	}
	_, err := Resample(ramp(4), 0, TrimZeroFrames)
	assert.True(t, Is(err, ErrInvalidTarget))
}

func TestResampleTrimPolicies(t *testing.T) {
	var z Frame
	fs := append([]Frame{z}, ramp(4)[1:]...)
	fs = append(fs, z)

	o, err := Resample(fs, 3, TrimZeroFrames)
	assert.NoError(t, err)
	assert.Equal(t, fs[1], o[0])
	assert.Equal(t, fs[3], o[2])

	o, err = Resample(fs, 5, KeepAll)
	assert.NoError(t, err)
	assert.Equal(t, z, o[0])
	assert.Equal(t, z, o[4])
}
