package pnrandom

import "github.com/zsiec/ccsds-pipeline/internal/tagstream"

// Stage is the Randomizer/De-randomizer tagstream.Stage (spec §4.3). It is
// symmetric: the same Stage type runs on both the transmit and receive
// sides, since XOR-masking with an identically re-seeded LFSR is its own
// inverse. Bypass disables the transform while still forwarding length
// tags untouched, matching the "pass-through is configurable" contract.
type Stage struct {
	name   string
	seed   uint16
	bypass bool
}

// Opt configures a Stage, mirroring the functional-option pattern the
// teacher uses for mpegts.NewDemuxer.
type Opt func(*Stage)

// WithSeed overrides the default LFSR seed (0x7FFF).
func WithSeed(seed uint16) Opt {
	return func(s *Stage) { s.seed = seed }
}

// WithBypass disables randomization: input is forwarded verbatim.
func WithBypass(bypass bool) Opt {
	return func(s *Stage) { s.bypass = bypass }
}

// NewRandomizer builds the transmit-side masking stage.
func NewRandomizer(opts ...Opt) *Stage {
	return newStage("pnrandom.randomizer", opts)
}

// NewDerandomizer builds the receive-side inverse stage. It is the exact
// same transform as NewRandomizer; the distinct constructor exists only
// for readability at the call site (spec §4.3: "Contract: symmetric").
func NewDerandomizer(opts ...Opt) *Stage {
	return newStage("pnrandom.derandomizer", opts)
}

func newStage(name string, opts []Opt) *Stage {
	s := &Stage{name: name, seed: DefaultSeed}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Stage) Name() string { return s.name }

// Process consumes exactly one tagged frame per call: it requires a
// LengthTag at offset 0 of in's queue to know the frame length, per the
// tagstream.Stage suspension contract (return 0,0,nil if not yet available).
func (s *Stage) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	frameLen, ok := peekLength(inTags)
	if !ok {
		return 0, 0, nil
	}
	if in.Len() < frameLen {
		return 0, 0, nil
	}

	frame := in.Bytes()[:frameLen]
	masked := make([]byte, frameLen)
	if s.bypass {
		copy(masked, frame)
	} else {
		Mask(masked, frame, s.seed)
	}

	base := out.Len()
	out.Write(masked)
	outTags.Push(base, tagstream.LengthTag, frameLen)

	inTags.Pop()
	return frameLen, frameLen, nil
}

// peekLength returns the frame length tagged at offset 0 without
// consuming it, so Process can check availability before committing.
func peekLength(q *tagstream.TagQueue) (int, bool) {
	t, ok := q.Peek()
	if !ok || t.Key != tagstream.LengthTag || t.Offset != 0 {
		return 0, false
	}
	return t.Value, true
}
