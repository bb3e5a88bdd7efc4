// Package viterbi implements the soft-decision Viterbi decoder (spec
// §4.7) matching internal/conv's K=7, rate-1/2, 171/133 encoder: a
// 64-state trellis precomputed once at package init (spec §9: "avoid
// per-symbol allocation"), pm1/llr branch metrics, and per-frame
// traceback with deterministic tie-breaking.
package viterbi

import (
	"math/bits"

	"github.com/zsiec/ccsds-pipeline/internal/conv"
)

const numStates = 1 << (conv.ConstraintLength - 1) // 64

// trellis holds, for every state s and input bit u, the next state and
// the two expected output bits -- precomputed once and never mutated,
// mirroring the teacher's init()-time CRC table builds
// (crcs.crc16Table/crc32cTable) applied to a state-machine instead of a
// byte table.
type trellisEntry struct {
	nextState [2]byte
	// expected[u] is (bit for Gen1, bit for Gen2).
	expected [2][2]byte
}

var trellis [numStates]trellisEntry

func init() {
	for s := 0; s < numStates; s++ {
		for u := 0; u < 2; u++ {
			window := uint32(s<<1) | uint32(u)
			trellis[s].nextState[u] = byte(window & (numStates - 1))
			trellis[s].expected[u][0] = parity(window & conv.Gen1)
			trellis[s].expected[u][1] = parity(window & conv.Gen2)
		}
	}
}

func parity(w uint32) byte {
	return byte(bits.OnesCount32(w) & 1)
}
