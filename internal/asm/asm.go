// Package asm implements the Attached Sync Marker insertion and stripping
// stages (spec §4.5): prepend/remove the fixed 4-byte CCSDS marker
// 0x1ACFFC1D that delimits CADUs on the wire. The marker's byte values and
// ordering are a wire contract and must never change.
package asm

import "github.com/zsiec/ccsds-pipeline/internal/tagstream"

// Marker is the literal 4-byte Attached Sync Marker, spec §6.
var Marker = [4]byte{0x1A, 0xCF, 0xFC, 0x1D}

// Inserter prepends Marker to every frame it sees.
type Inserter struct{}

func NewInserter() *Inserter { return &Inserter{} }

func (*Inserter) Name() string { return "asm.inserter" }

func (*Inserter) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	t, ok := inTags.Peek()
	if !ok || t.Key != tagstream.LengthTag || t.Offset != 0 {
		return 0, 0, nil
	}
	frameLen := t.Value
	if in.Len() < frameLen {
		return 0, 0, nil
	}

	base := out.Len()
	out.Write(Marker[:])
	out.Write(in.Bytes()[:frameLen])
	outTags.Push(base, tagstream.LengthTag, frameLen+len(Marker))

	inTags.Pop()
	return frameLen, frameLen + len(Marker), nil
}

// Stripper removes and verifies the leading Marker from every frame.
type Stripper struct {
	// RequireSync, when true, makes Process return an
	// errs.ErrMalformedHeader if the leading bytes don't match Marker
	// exactly instead of silently stripping whatever is there. Real
	// sync acquisition against a noisy stream is a physical-layer
	// concern this core hands off, per spec §1; this flag only guards
	// against feeding the stage already-misaligned test data.
	RequireSync bool
}

func NewStripper(requireSync bool) *Stripper { return &Stripper{RequireSync: requireSync} }

func (*Stripper) Name() string { return "asm.stripper" }

func (s *Stripper) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	t, ok := inTags.Peek()
	if !ok || t.Key != tagstream.LengthTag || t.Offset != 0 {
		return 0, 0, nil
	}
	caduLen := t.Value
	if in.Len() < caduLen {
		return 0, 0, nil
	}
	if caduLen < len(Marker) {
		inTags.Pop()
		return caduLen, 0, errShortCADU(caduLen)
	}

	cadu := in.Bytes()[:caduLen]
	if s.RequireSync {
		for i, b := range Marker {
			if cadu[i] != b {
				inTags.Pop()
				return caduLen, 0, errBadSync(cadu[:len(Marker)])
			}
		}
	}

	payload := cadu[len(Marker):]
	base := out.Len()
	out.Write(payload)
	outTags.Push(base, tagstream.LengthTag, len(payload))

	inTags.Pop()
	return caduLen, len(payload), nil
}
