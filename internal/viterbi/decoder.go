package viterbi

import (
	"fmt"
	"math"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
)

// Metric selects the branch-metric convention (spec §4.7).
type Metric int

const (
	// PM1 treats received values as ambipolar +-1 soft samples.
	PM1 Metric = iota
	// LLR treats received values as log-likelihood ratios.
	LLR
)

// Decoder runs the soft-input Viterbi algorithm against the trellis
// conv/viterbi share. It holds no per-frame state between calls: the
// path-metric array and traceback matrix are allocated fresh for each
// Decode call and released on return (spec §5's "scoped to the decode
// call" resource policy), since decode happens once per CADU
// and a persistent nsym x 64 matrix would only outlive its single use.
type Decoder struct {
	metric Metric
}

// NewDecoder returns a Decoder using the given branch-metric convention.
func NewDecoder(metric Metric) *Decoder {
	return &Decoder{metric: metric}
}

// Decode runs the Viterbi algorithm over received, which must hold
// exactly two soft values per message bit, one for each of its two coded
// output bits (spec §4.7). It returns the
// nsym decoded bits packed MSB-first into bytes; nsym must be a
// multiple of 8 for the result to represent whole bytes, which every
// transmit-side frame produced by conv.Encoder satisfies.
func (d *Decoder) Decode(received []float64) ([]byte, error) {
	if len(received)%2 != 0 {
		return nil, errs.Malformed("viterbi", fmt.Sprintf("odd soft-value count %d", len(received)))
	}
	nsym := len(received) / 2
	if nsym == 0 {
		return nil, nil
	}
	if nsym%8 != 0 {
		return nil, errs.ContractViolation("viterbi", fmt.Sprintf("%d message bits is not a whole number of bytes", nsym))
	}

	var pm [numStates]float64
	for s := 1; s < numStates; s++ {
		pm[s] = math.Inf(1)
	}

	prevState := make([][numStates]byte, nsym)
	decidedBit := make([][numStates]byte, nsym)

	for t := 0; t < nsym; t++ {
		r0, r1 := received[2*t], received[2*t+1]
		var pmNew [numStates]float64
		for s := range pmNew {
			pmNew[s] = math.Inf(1)
		}
		for s := 0; s < numStates; s++ {
			if math.IsInf(pm[s], 1) {
				continue
			}
			for u := 0; u < 2; u++ {
				ns := trellis[s].nextState[u]
				bm := d.branchMetric(r0, r1, trellis[s].expected[u])
				cand := pm[s] + bm
				// Strict less-than: the first candidate reaching a
				// given next_state at the lowest predecessor state s
				// (and lowest u) is kept on a tie, giving the
				// deterministic tie-break spec §4.7 requires.
				if cand < pmNew[ns] {
					pmNew[ns] = cand
					prevState[t][ns] = byte(s)
					decidedBit[t][ns] = byte(u)
				}
			}
		}
		pm = pmNew
	}

	finalState := 0
	best := pm[0]
	for s := 1; s < numStates; s++ {
		if pm[s] < best {
			best = pm[s]
			finalState = s
		}
	}

	bitsOut := make([]byte, nsym)
	state := byte(finalState)
	for t := nsym - 1; t >= 0; t-- {
		bitsOut[t] = decidedBit[t][state]
		state = prevState[t][state]
	}

	return packBits(bitsOut), nil
}

func (d *Decoder) branchMetric(r0, r1 float64, expected [2]byte) float64 {
	switch d.metric {
	case LLR:
		return llrTerm(r0, expected[0]) + llrTerm(r1, expected[1])
	default: // PM1
		t0 := 1 - 2*float64(expected[0])
		t1 := 1 - 2*float64(expected[1])
		d0 := r0 - t0
		d1 := r1 - t1
		return d0*d0 + d1*d1
	}
}

func llrTerm(r float64, e byte) float64 {
	if e == 0 {
		return -r
	}
	return r
}

func packBits(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		out[i/8] |= b << uint(7-i%8)
	}
	return out
}
