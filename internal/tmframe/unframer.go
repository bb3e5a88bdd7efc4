package tmframe

import (
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/crcs"
	"github.com/zsiec/ccsds-pipeline/internal/errs"
	"github.com/zsiec/ccsds-pipeline/internal/pktstatus"
	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
)

// Unframer is the receive-side inverse of Framer (spec §2 stage C,
// "TM unframe"): it consumes whole, length-tagged Transfer Frames and
// emits the raw concatenated Space Packet byte stream they carry,
// dropping Only-Idle-Data frames and validating the FECF when present.
// Its output carries no length tags of its own; a spp.Tagger downstream
// rediscovers packet boundaries from the reconstructed stream exactly as
// it does on the transmit side, since the TM layer has no notion of a
// Space Packet's own length field.
type Unframer struct {
	cfg   Config
	stats *FrameStats
}

// NewUnframer builds an Unframer for cfg. stats may be nil to skip
// FECF-status bookkeeping.
func NewUnframer(cfg Config, stats *FrameStats) (*Unframer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Unframer{cfg: cfg, stats: stats}, nil
}

func (u *Unframer) Name() string { return "tmframe.unframer" }

func (u *Unframer) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	frameLen, ok := peekLength(inTags)
	if !ok {
		return 0, 0, nil
	}
	if in.Len() < frameLen {
		return 0, 0, nil
	}
	frame := in.Bytes()[:frameLen]

	// A tag claiming a length other than this Unframer's own configured
	// frame length means the upstream stage and this one were wired with
	// different pipeline configs; the frameLen bytes already tagged are
	// still the only sound unit to skip past, so this frame is dropped
	// like any other contract violation rather than treated specially.
	if frameLen != u.cfg.FrameLen {
		inTags.Pop()
		return frameLen, 0, errs.ContractViolation("tmframe", fmt.Sprintf("frame tag claims %d bytes, configured frame length is %d", frameLen, u.cfg.FrameLen))
	}

	hdr, err := ParseHeader(frame)
	if err != nil {
		inTags.Pop()
		return frameLen, 0, err
	}

	status := u.checkFECF(frame)
	if u.stats != nil {
		u.stats.Record(status)
	}
	if status == pktstatus.CRCBad {
		inTags.Pop()
		return frameLen, 0, errs.Integrity("tmframe", fmt.Sprintf("FECF mismatch on VCID %d frame", hdr.VCID))
	}

	tfdf := frame[HeaderLen : frameLen-u.fecfTrailerLen()]

	produced := 0
	if hdr.FirstHeaderPointer != OnlyIdleData {
		out.Write(tfdf)
		produced = len(tfdf)
	}

	inTags.Pop()
	return frameLen, produced, nil
}

func (u *Unframer) fecfTrailerLen() int {
	if u.cfg.FECF {
		return FECFLen
	}
	return 0
}

func (u *Unframer) checkFECF(frame []byte) pktstatus.CRCStatus {
	if !u.cfg.FECF {
		return pktstatus.CRCOff
	}
	if len(frame) < FECFLen {
		return pktstatus.CRCShort
	}
	if crcs.VerifyCRC16(frame) {
		return pktstatus.CRCOK
	}
	return pktstatus.CRCBad
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
