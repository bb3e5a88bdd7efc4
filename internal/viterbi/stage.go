package viterbi

import (
	"encoding/binary"
	"math"

	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
)

// bytesPerSoft is the wire width of one soft sample on the tagged byte
// stream feeding this stage: a big-endian IEEE-754 float64, the same
// width encoding/binary.BigEndian.PutUint64 already knows how to frame.
const bytesPerSoft = 8

// Stage wraps Decoder as the receive-chain's soft-decision tagstream.Stage
// (spec §2 step B). Its input LengthTag carries nsym, the number of
// *message* bits this CADU encodes (spec §4.7), not a byte count: two
// soft samples arrive per message bit (one per rate-1/2 coded output),
// so the byte count it actually waits for is nsym*2*bytesPerSoft.
type Stage struct {
	dec *Decoder
}

func NewStage(metric Metric) *Stage {
	return &Stage{dec: NewDecoder(metric)}
}

func (*Stage) Name() string { return "viterbi.decoder" }

func (s *Stage) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	t, ok := inTags.Peek()
	if !ok || t.Key != tagstream.LengthTag || t.Offset != 0 {
		return 0, 0, nil
	}
	nsym := t.Value
	byteLen := nsym * 2 * bytesPerSoft
	if in.Len() < byteLen {
		return 0, 0, nil
	}

	raw := in.Bytes()[:byteLen]
	received := make([]float64, nsym*2)
	for i := range received {
		bits := binary.BigEndian.Uint64(raw[i*bytesPerSoft:])
		received[i] = math.Float64frombits(bits)
	}

	decoded, err := s.dec.Decode(received)
	if err != nil {
		inTags.Pop()
		return byteLen, 0, err
	}

	base := out.Len()
	out.Write(decoded)
	outTags.Push(base, tagstream.LengthTag, len(decoded))

	inTags.Pop()
	return byteLen, len(decoded), nil
}

// EncodeSofts serializes soft values into the wire format Stage.Process
// expects: big-endian float64 per sample. Used by callers feeding
// symbols from an external demodulator/test harness into the Pipeline.
func EncodeSofts(values []float64) []byte {
	out := make([]byte, len(values)*bytesPerSoft)
	for i, v := range values {
		binary.BigEndian.PutUint64(out[i*bytesPerSoft:], math.Float64bits(v))
	}
	return out
}
