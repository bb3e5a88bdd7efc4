package pnrandom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMaskInvolution(t *testing.T) {
	t.Parallel()
	frame := []byte("the quick brown fox jumps over a lazy CCSDS dog")
	masked := make([]byte, len(frame))
	Mask(masked, frame, DefaultSeed)
	require.NotEqual(t, frame, masked, "masking should alter the bytes")

	restored := make([]byte, len(frame))
	Mask(restored, masked, DefaultSeed)
	assert.Equal(t, frame, restored)
}

func TestMaskInvolutionProperty(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		frame := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(rt, "frame")
		seed := uint16(rapid.IntRange(0, 0x7FFF).Draw(rt, "seed"))

		masked := make([]byte, len(frame))
		Mask(masked, frame, seed)
		restored := make([]byte, len(frame))
		Mask(restored, masked, seed)

		if !equalBytes(frame, restored) {
			rt.Fatalf("mask is not involutive for seed 0x%04X", seed)
		}
	})
}

func TestNextByteIsDeterministic(t *testing.T) {
	t.Parallel()
	l1 := newLFSR(DefaultSeed)
	l2 := newLFSR(DefaultSeed)
	for i := 0; i < 32; i++ {
		assert.Equal(t, l1.nextByte(), l2.nextByte())
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
