package tmframe

import (
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/crcs"
	"github.com/zsiec/ccsds-pipeline/internal/errs"
	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
)

// Config fixes the parameters one Framer/Unframer pair agrees on for a
// single virtual channel (spec §3/§4.2).
type Config struct {
	FrameLen    int // F, the total Transfer Frame length including FECF
	SCID        uint16
	VCID        byte
	FECF        bool
	IdleEnabled bool
	IdleByte    byte
}

// DataFieldLen returns the TFDF length: F - 6 - (2 if FECF else 0).
func (c Config) DataFieldLen() int {
	n := c.FrameLen - HeaderLen
	if c.FECF {
		n -= FECFLen
	}
	return n
}

// Validate rejects a Config whose TFDF would be non-positive.
func (c Config) Validate() error {
	if c.DataFieldLen() <= 0 {
		return errs.Configuration("tmframe", fmt.Sprintf("frame length %d leaves no room for a data field", c.FrameLen))
	}
	if c.SCID > 0x3FF {
		return errs.Configuration("tmframe", fmt.Sprintf("SCID 0x%04X exceeds 10-bit range", c.SCID))
	}
	if c.VCID > 0x7 {
		return errs.Configuration("tmframe", fmt.Sprintf("VCID %d exceeds 3-bit range", c.VCID))
	}
	return nil
}

// Framer is transmit stage 2 (spec §2/§4.2): consumes length-tagged
// Space Packets and emits fixed-length Transfer Frames with correct FHP
// and mod-256 counters, segmenting packets across frames as needed.
type Framer struct {
	cfg Config

	mcCounter byte
	vcCounter byte

	pending      [][]byte // complete packets not yet started into a frame
	continuation []byte   // remaining bytes of a packet split across frames
}

// NewFramer builds a Framer for cfg, validating it first.
func NewFramer(cfg Config) (*Framer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Framer{cfg: cfg}, nil
}

func (f *Framer) Name() string { return "tmframe.framer" }

func (f *Framer) Process(in *tagstream.Buffer, inTags *tagstream.TagQueue, out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, int, error) {
	consumed := f.absorbPackets(in, inTags)

	produced := 0
	for {
		frame, onlyIdle, err := f.buildFrame(false)
		if err != nil {
			return consumed, produced, err
		}
		if frame == nil {
			break
		}
		base := out.Len()
		out.Write(frame)
		outTags.Push(base, tagstream.LengthTag, len(frame))
		produced += len(frame)
		if onlyIdle {
			// Idle fill is an inexhaustible source; emit one idle frame
			// per call and let the caller invoke Process again rather
			// than spinning here forever.
			break
		}
	}
	return consumed, produced, nil
}

// Flush emits one final Transfer Frame carrying whatever partial packet
// data is still buffered (spec §9's lab simplification: a batch job has
// no next frame to carry the remainder, so the tail is idle-padded out
// regardless of Config.IdleEnabled rather than held forever). It is a
// no-op once nothing is left to flush, so the Pipeline can call it
// exactly once per Close without special-casing an empty Framer.
func (f *Framer) Flush(out *tagstream.Buffer, outTags *tagstream.TagQueue) (int, error) {
	produced := 0
	for len(f.continuation) > 0 || len(f.pending) > 0 {
		frame, _, err := f.buildFrame(true)
		if err != nil {
			return produced, err
		}
		if frame == nil {
			break
		}
		base := out.Len()
		out.Write(frame)
		outTags.Push(base, tagstream.LengthTag, len(frame))
		produced += len(frame)
	}
	return produced, nil
}

// absorbPackets copies every complete tagged packet currently sitting at
// the front of in into f.pending, returning the number of bytes pulled.
func (f *Framer) absorbPackets(in *tagstream.Buffer, inTags *tagstream.TagQueue) int {
	consumed := 0
	for {
		t, ok := inTags.Peek()
		if !ok || t.Offset != consumed {
			break
		}
		if in.Len() < consumed+t.Value {
			break
		}
		pkt := append([]byte(nil), in.Bytes()[consumed:consumed+t.Value]...)
		f.pending = append(f.pending, pkt)
		consumed += t.Value
		inTags.Pop()
	}
	return consumed
}

// buildFrame assembles one Transfer Frame from f.continuation and
// f.pending, or returns (nil, false, nil) if no frame can be completed
// yet (spec §4.2 suspension: withhold output when no packet is available
// and idle emission is disabled). onlyIdle reports whether the built
// frame carries no real packet bytes at all. force bypasses the
// IdleEnabled suspension, used by Flush to pad out a final partial
// frame that has nowhere else to go.
func (f *Framer) buildFrame(force bool) (frame []byte, onlyIdle bool, err error) {
	dataLen := f.cfg.DataFieldLen()
	idle := f.cfg.IdleEnabled || force

	avail := len(f.continuation)
	for _, p := range f.pending {
		avail += len(p)
	}
	if avail == 0 && !idle {
		return nil, false, nil
	}
	if avail < dataLen && !idle {
		return nil, false, nil
	}

	tfdf := make([]byte, dataLen)
	cursor := 0
	firstHeaderStart := -1

	if len(f.continuation) > 0 {
		n := copy(tfdf, f.continuation)
		cursor = n
		if n == len(f.continuation) {
			f.continuation = nil
		} else {
			f.continuation = f.continuation[n:]
		}
	}

	for cursor < dataLen && len(f.pending) > 0 {
		pkt := f.pending[0]
		if firstHeaderStart == -1 {
			firstHeaderStart = cursor
		}
		room := dataLen - cursor
		if len(pkt) <= room {
			copy(tfdf[cursor:], pkt)
			cursor += len(pkt)
			f.pending = f.pending[1:]
		} else {
			copy(tfdf[cursor:], pkt[:room])
			f.continuation = append([]byte(nil), pkt[room:]...)
			cursor = dataLen
			f.pending = f.pending[1:]
		}
	}

	realLen := cursor
	if realLen < dataLen {
		for i := realLen; i < dataLen; i++ {
			tfdf[i] = f.cfg.IdleByte
		}
	}

	var fhp uint16
	switch {
	case realLen == 0:
		fhp = OnlyIdleData
	case firstHeaderStart >= 0:
		fhp = uint16(firstHeaderStart)
	default:
		fhp = NoPacketStart
	}

	hdr := Header{
		SCID:               f.cfg.SCID,
		VCID:               f.cfg.VCID,
		MCCounter:          f.mcCounter,
		VCCounter:          f.vcCounter,
		SecHdrFlag:         false,
		FirstHeaderPointer: fhp,
	}

	frame = append(frame, hdr.Pack()...)
	frame = append(frame, tfdf...)
	if f.cfg.FECF {
		frame = crcs.AppendCRC16(frame, frame)
	}

	f.mcCounter++
	f.vcCounter++

	return frame, realLen == 0, nil
}
