package spp

import (
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
	"github.com/zsiec/ccsds-pipeline/internal/pktstatus"
	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
)

// Tagger is transmit stage 1 (spec §2 "reads raw concatenated CCSDS
// Space Packets; at each packet boundary, parses the primary header,
// computes the total packet length, and emits a length tag"). Its input
// has no tags of its own; it discovers frame boundaries by reading each
// packet's own header.
type Tagger struct{}

// NewTagger builds the SPP Tagger stage.
func NewTagger() *Tagger { return &Tagger{} }

func (t *Tagger) Name() string { return "spp.tagger" }

// Process parses as many complete, back-to-back packets as the buffered
// input holds, copying each through with a freshly computed length tag.
func (t *Tagger) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	data := in.Bytes()
	consumed, produced := 0, 0

	for {
		remaining := data[consumed:]
		if len(remaining) < HeaderLen {
			break
		}
		hdr, err := ParseHeader(remaining)
		if err != nil {
			return consumed, produced, err
		}
		total := hdr.TotalLen()
		if len(remaining) < total {
			break
		}

		base := out.Len()
		out.Write(remaining[:total])
		outTags.Push(base, tagstream.LengthTag, total)

		consumed += total
		produced += total
	}
	return consumed, produced, nil
}

// APIDConfig is the per-APID knowledge the Reconstructor needs to split
// the secondary header from the user payload and decide how to treat a
// trailing MIC, supplied by a ConfigLookup so this package never imports
// internal/profile.
type APIDConfig struct {
	SecHdrLen int
	MICPolicy MICPolicy
}

// ConfigLookup resolves an APID to its profile's secondary-header length
// and MIC policy. Unknown APIDs should return ok=false.
type ConfigLookup func(apid uint16) (cfg APIDConfig, ok bool)

// Reconstructor is receive stage D (spec §2 "recovers individual Space
// Packets; if expected, verifies trailing CRC-32C over the user
// portion"). It passes each packet's bytes through unchanged; MIC and
// sequence-continuity outcomes are recorded as a side effect into the
// supplied pktstatus.Registry, not carried on the wire.
type Reconstructor struct {
	lookup   ConfigLookup
	registry *pktstatus.Registry
}

// NewReconstructor builds a Reconstructor. registry may be nil to skip
// statistics entirely.
func NewReconstructor(lookup ConfigLookup, registry *pktstatus.Registry) *Reconstructor {
	return &Reconstructor{lookup: lookup, registry: registry}
}

func (r *Reconstructor) Name() string { return "spp.reconstructor" }

func (r *Reconstructor) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	frameLen, ok := peekLength(inTags)
	if !ok {
		return 0, 0, nil
	}
	if in.Len() < frameLen {
		return 0, 0, nil
	}
	frame := in.Bytes()[:frameLen]

	hdr, err := ParseHeader(frame)
	if err != nil {
		return frameLen, 0, err
	}

	cfg, ok := r.lookup(hdr.APID)
	if !ok {
		return frameLen, 0, errs.Configuration("spp", fmt.Sprintf("no profile registered for APID 0x%04X", hdr.APID))
	}

	parsed, err := Parse(frame, cfg.SecHdrLen, cfg.MICPolicy)
	if err != nil {
		return frameLen, 0, err
	}

	if r.registry != nil {
		r.registry.RecordReceived(hdr.APID, hdr.SeqCount, parsed.MICStatus)
	}

	inTags.Pop()
	base := out.Len()
	out.Write(frame)
	outTags.Push(base, tagstream.LengthTag, frameLen)

	return frameLen, frameLen, nil
}

// peekLength returns the frame length tagged at offset 0 without
// consuming it, mirroring internal/pnrandom's suspension discipline.
func peekLength(q *tagstream.TagQueue) (int, bool) {
	t, ok := q.Peek()
	if !ok || t.Key != tagstream.LengthTag || t.Offset != 0 {
		return 0, false
	}
	return t.Value, true
}
