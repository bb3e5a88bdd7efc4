// Package spp implements the Space Packet codec (spec §4.1): primary
// header encode/parse, the secondary-header tagged-union, MIC
// (CRC-32C) placement/detection, the transmit-side Tagger stage (spec
// §2 stage 1), and the receive-side Reconstructor (stage D). The
// parse-shape -- fixed header fields read with bit-shifts, an optional
// variable-length section gated by a flag, truncation errors on a
// too-short buffer -- is grounded on mpegts.parsePES in the teacher repo.
package spp

import (
	"encoding/binary"
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
)

// PacketType distinguishes telemetry from telecommand (spec §3).
type PacketType byte

const (
	TypeTM PacketType = 0
	TypeTC PacketType = 1
)

// HeaderLen is the fixed 6-byte Space Packet primary header length.
const HeaderLen = 6

// MaxAPID is the largest valid 11-bit APID (spec §3 invariant).
const MaxAPID = 0x7FF

// SeqWrap is the modulus Space Packet sequence counts wrap at.
const SeqWrap = 1 << 14

// Header is the parsed 6-byte Space Packet primary header (spec §3/§6).
type Header struct {
	Version      byte // 3 bits
	Type         PacketType
	SecHdrFlag   bool
	APID         uint16 // 11 bits, 0..2047
	SeqFlags     byte   // 2 bits
	SeqCount     uint16 // 14 bits
	DataFieldLen uint16 // raw field value D; actual data field length is D+1
}

// DataLen returns the actual data field length in bytes (spec §3: "D
// encodes payload length minus one").
func (h Header) DataLen() int { return int(h.DataFieldLen) + 1 }

// TotalLen returns the total packet length in bytes: 6 + DataLen().
func (h Header) TotalLen() int { return HeaderLen + h.DataLen() }

// Pack encodes h as the 6-byte big-endian primary header (spec §6).
func (h Header) Pack() []byte {
	buf := make([]byte, HeaderLen)
	w1 := uint16(h.Version&0x7)<<13 | uint16(h.Type&0x1)<<12 | boolBit(h.SecHdrFlag)<<11 | (h.APID & 0x7FF)
	w2 := uint16(h.SeqFlags&0x3)<<14 | (h.SeqCount & 0x3FFF)
	binary.BigEndian.PutUint16(buf[0:2], w1)
	binary.BigEndian.PutUint16(buf[2:4], w2)
	binary.BigEndian.PutUint16(buf[4:6], h.DataFieldLen)
	return buf
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// ParseHeader decodes the 6-byte primary header from the front of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, errs.Malformed("spp", fmt.Sprintf("header needs %d bytes, got %d", HeaderLen, len(buf)))
	}
	w1 := binary.BigEndian.Uint16(buf[0:2])
	w2 := binary.BigEndian.Uint16(buf[2:4])
	w3 := binary.BigEndian.Uint16(buf[4:6])

	h := Header{
		Version:      byte(w1 >> 13 & 0x7),
		Type:         PacketType(w1 >> 12 & 0x1),
		SecHdrFlag:   w1&0x0800 != 0,
		APID:         w1 & 0x7FF,
		SeqFlags:     byte(w2 >> 14 & 0x3),
		SeqCount:     w2 & 0x3FFF,
		DataFieldLen: w3,
	}
	if h.APID > MaxAPID {
		return Header{}, errs.Malformed("spp", fmt.Sprintf("APID 0x%04X exceeds %d-bit range", h.APID, 11))
	}
	return h, nil
}
