package astiportaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToInt32(t *testing.T) {
	assert.Equal(t, []int32{1 << 16, -1 << 16, 32767 << 16}, ToInt32([]int{1, -1, 32767}, 16))
	assert.Equal(t, []int32{5}, ToInt32([]int{5}, 0))
	assert.Equal(t, []int32{-128 << 24}, ToInt32([]int{-128}, 8))
}
