package pktstatus

import "sync"

// seqWrap is the modulus Space Packet sequence counts wrap at (spec §3:
// "sequence count wraps at 2^14").
const seqWrap = 1 << 14

// SeqOutcome classifies one observed sequence count against a per-APID
// tracker's expectation.
type SeqOutcome int

const (
	// SeqInOrder means the count equals the expected one (last seen plus
	// one, mod 2^14), or is the first count observed.
	SeqInOrder SeqOutcome = iota
	// SeqDuplicate means the count matches the last one seen.
	SeqDuplicate
	// SeqGap means the count skipped ahead of what was expected; Gap
	// reports how many packets were presumed lost.
	SeqGap
)

// SeqTracker tracks expected-vs-observed sequence counts for a single
// APID, classifying each arrival as in-order, duplicate, or a gap of N
// (SPEC_FULL.md §C, mirroring l7_receiver.py's continuity check from
// original_source/).
type SeqTracker struct {
	mu      sync.Mutex
	hasSeen bool
	last    uint16
}

// NewSeqTracker returns a tracker with no prior observations.
func NewSeqTracker() *SeqTracker { return &SeqTracker{} }

// Observe records one packet's sequence count and classifies it. Gap is
// the number of packets the tracker believes were skipped (0 unless
// outcome is SeqGap).
func (t *SeqTracker) Observe(seq uint16) (outcome SeqOutcome, gap int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasSeen {
		t.hasSeen = true
		t.last = seq
		return SeqInOrder, 0
	}

	expected := (t.last + 1) % seqWrap
	switch {
	case seq == t.last:
		return SeqDuplicate, 0
	case seq == expected:
		t.last = seq
		return SeqInOrder, 0
	default:
		gap = int(seq) - int(expected)
		if gap < 0 {
			gap += seqWrap
		}
		t.last = seq
		return SeqGap, gap
	}
}
