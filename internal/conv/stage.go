package conv

import "github.com/zsiec/ccsds-pipeline/internal/tagstream"

// Stage wraps Encoder as the transmit-chain's final tagstream.Stage
// (spec §2 step 6): one CADU frame in, twice-as-long coded frame out.
type Stage struct {
	enc *Encoder
}

func NewStage() *Stage { return &Stage{enc: NewEncoder()} }

func (*Stage) Name() string { return "conv.encoder" }

func (s *Stage) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	t, ok := inTags.Peek()
	if !ok || t.Key != tagstream.LengthTag || t.Offset != 0 {
		return 0, 0, nil
	}
	frameLen := t.Value
	if in.Len() < frameLen {
		return 0, 0, nil
	}

	coded := s.enc.EncodeFrame(in.Bytes()[:frameLen])
	base := out.Len()
	out.Write(coded)
	outTags.Push(base, tagstream.LengthTag, len(coded))

	inTags.Pop()
	return frameLen, len(coded), nil
}
