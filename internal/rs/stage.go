package rs

import (
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
)

// EncodeStage is the transmit-chain interleaver-encoder (spec §4.4,
// stage 4): each K*depth-byte Transfer Frame becomes an N*depth-byte
// codeblock.
type EncodeStage struct {
	depth int
}

func NewEncodeStage(depth int) *EncodeStage { return &EncodeStage{depth: depth} }

func (*EncodeStage) Name() string { return "rs.encoder" }

func (s *EncodeStage) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	t, ok := inTags.Peek()
	if !ok || t.Key != tagstream.LengthTag || t.Offset != 0 {
		return 0, 0, nil
	}
	frameLen := t.Value
	if in.Len() < frameLen {
		return 0, 0, nil
	}
	if frameLen != K*s.depth {
		inTags.Pop()
		return frameLen, 0, errs.ContractViolation("rs", fmt.Sprintf("frame of %d bytes does not match depth %d (want %d)", frameLen, s.depth, K*s.depth))
	}

	codeblock, err := EncodeInterleaved(in.Bytes()[:frameLen], s.depth)
	if err != nil {
		inTags.Pop()
		return frameLen, 0, err
	}

	base := out.Len()
	out.Write(codeblock)
	outTags.Push(base, tagstream.LengthTag, len(codeblock))

	inTags.Pop()
	return frameLen, len(codeblock), nil
}

// DecodeStage is the receive-side inverse: de-interleave an N*depth-byte
// codeblock into depth codewords, error-correct each, and re-multiplex
// into a K*depth-byte Transfer Frame.
type DecodeStage struct {
	depth int
}

func NewDecodeStage(depth int) *DecodeStage { return &DecodeStage{depth: depth} }

func (*DecodeStage) Name() string { return "rs.decoder" }

func (s *DecodeStage) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	t, ok := inTags.Peek()
	if !ok || t.Key != tagstream.LengthTag || t.Offset != 0 {
		return 0, 0, nil
	}
	blockLen := t.Value
	if in.Len() < blockLen {
		return 0, 0, nil
	}
	if blockLen != N*s.depth {
		inTags.Pop()
		return blockLen, 0, errs.ContractViolation("rs", fmt.Sprintf("codeblock of %d bytes does not match depth %d (want %d)", blockLen, s.depth, N*s.depth))
	}

	frame, _, err := DecodeInterleaved(in.Bytes()[:blockLen], s.depth)
	if err != nil {
		inTags.Pop()
		return blockLen, 0, err
	}

	base := out.Len()
	out.Write(frame)
	outTags.Push(base, tagstream.LengthTag, len(frame))

	inTags.Pop()
	return blockLen, len(frame), nil
}
