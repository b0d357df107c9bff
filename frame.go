package astiglove

import (
	"strconv"
)

// Channel layout
const (
	NumFlexChannels  = 5
	NumHandChannels  = NumFlexChannels + 6
	NumChannels      = 2 * NumHandChannels
	NumFeatureGroups = 5
)

// Frame is one 22 channels sensor reading: 5 flex sensors, a 3-axis
// accelerometer and a 3-axis gyroscope for the left hand, then the same for
// the right hand.
type Frame [NumChannels]float64

// ChannelNames returns the canonical column names in frame order.
func ChannelNames() []string {
	return []string{
		"L_F1", "L_F2", "L_F3", "L_F4", "L_F5",
		"L_Ax", "L_Ay", "L_Az", "L_Gx", "L_Gy", "L_Gz",
		"R_F1", "R_F2", "R_F3", "R_F4", "R_F5",
		"R_Ax", "R_Ay", "R_Az", "R_Gx", "R_Gy", "R_Gz",
	}
}

// IsZero returns whether every channel equals 0.
func (f Frame) IsZero() bool {
	for _, v := range f {
		if v != 0 {
			return false
		}
	}
	return true
}

// Left returns the left hand channels.
func (f Frame) Left() []float64 { return f[:NumHandChannels] }

// Right returns the right hand channels.
func (f Frame) Right() []float64 { return f[NumHandChannels:] }

// Strings formats the frame using the shortest representation that parses
// back to the exact same float64 values.
func (f Frame) Strings() (ss []string) {
	ss = make([]string, NumChannels)
	for i, v := range f {
		ss[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return
}

// FlexPeaks holds the per finger maximum of a recording.
type FlexPeaks struct {
	Left  [NumFlexChannels]float64 `json:"left"`
	Right [NumFlexChannels]float64 `json:"right"`
}

// NewFlexPeaks computes per finger maximums over frames.
func NewFlexPeaks(fs []Frame) (p FlexPeaks) {
	for idx, f := range fs {
		for i := 0; i < NumFlexChannels; i++ {
			l, r := f[i], f[NumHandChannels+i]
			if idx == 0 || l > p.Left[i] {
				p.Left[i] = l
			}
			if idx == 0 || r > p.Right[i] {
				p.Right[i] = r
			}
		}
	}
	return
}
