package spp

import (
	"encoding/binary"
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/crcs"
	"github.com/zsiec/ccsds-pipeline/internal/errs"
	"github.com/zsiec/ccsds-pipeline/internal/pktstatus"
)

// MICPolicy selects how the receive path treats the trailing 4 bytes of
// the data field (spec §4.1 "MIC detection policy").
type MICPolicy string

const (
	MICAuto MICPolicy = "auto"
	MICOn   MICPolicy = "on"
	MICOff  MICPolicy = "off"
)

// EncodeParams carries everything encode() needs for one packet, kept
// free of any dependency on internal/profile so profile can depend on
// spp without a cycle.
type EncodeParams struct {
	APID         uint16
	Type         PacketType
	SeqFlags     byte
	SeqCount     uint16
	SecHdrMode   SecHdrMode
	SecHdrBytes  []byte // pre-built secondary-header bytes (see EncodeSecondaryHeader)
	User         []byte
	PadByte      byte
	UseMIC       bool
	DataFieldLen int // total data-field length (spec §6 "data_field_len")
}

// Encode builds one complete Space Packet: primary header, optional
// secondary header, user bytes padded/truncated to fit, and an optional
// trailing CRC-32C MIC over the user-only slice (spec §4.1 encode()).
func Encode(p EncodeParams) ([]byte, error) {
	secLen := len(p.SecHdrBytes)
	micLen := 0
	if p.UseMIC {
		micLen = 4
	}
	if p.DataFieldLen < secLen+micLen {
		return nil, errs.Configuration("spp", fmt.Sprintf(
			"data_field_len %d smaller than sec_hdr_len %d + mic %d", p.DataFieldLen, secLen, micLen))
	}
	userCap := p.DataFieldLen - secLen - micLen

	user := make([]byte, userCap)
	n := copy(user, p.User)
	for i := n; i < userCap; i++ {
		user[i] = p.PadByte
	}

	hdr := Header{
		Type:         p.Type,
		SecHdrFlag:   secLen > 0,
		APID:         p.APID,
		SeqFlags:     p.SeqFlags,
		SeqCount:     p.SeqCount,
		DataFieldLen: uint16(p.DataFieldLen - 1),
	}
	if hdr.APID > MaxAPID {
		return nil, errs.Configuration("spp", fmt.Sprintf("APID 0x%04X exceeds 11-bit range", hdr.APID))
	}

	out := make([]byte, 0, HeaderLen+p.DataFieldLen)
	out = append(out, hdr.Pack()...)
	out = append(out, p.SecHdrBytes...)
	out = append(out, user...)
	if p.UseMIC {
		out = crcs.AppendCRC32C(out, user)
	}
	return out, nil
}

// Parsed is the result of Parse: the primary header plus the slices
// carved out of the data field.
type Parsed struct {
	Header    Header
	SecHdr    []byte
	User      []byte // excludes secondary header and any detected MIC
	MIC       uint32
	MICStatus pktstatus.MICStatus
}

// Parse decodes a complete Space Packet: the 6-byte primary header,
// secLen bytes of secondary header (caller supplies secLen from the
// profile matching this APID), and the remaining user bytes. policy
// governs whether/how the trailing 4 bytes are treated as a MIC.
func Parse(buf []byte, secLen int, policy MICPolicy) (Parsed, error) {
	hdr, err := ParseHeader(buf)
	if err != nil {
		return Parsed{}, err
	}
	total := hdr.TotalLen()
	if len(buf) < total {
		return Parsed{}, errs.Truncated("spp", fmt.Sprintf("packet claims %d bytes, have %d", total, len(buf)))
	}
	dataField := buf[HeaderLen:total]
	if secLen > len(dataField) {
		return Parsed{}, errs.Malformed("spp", fmt.Sprintf("secondary header %d exceeds data field %d", secLen, len(dataField)))
	}
	secHdr := dataField[:secLen]
	rest := dataField[secLen:]

	out := Parsed{Header: hdr, SecHdr: secHdr, User: rest}

	switch policy {
	case MICOff:
		out.MICStatus = pktstatus.MICOff
	case MICOn, MICAuto:
		if len(rest) < 4 {
			out.MICStatus = pktstatus.MICShort
			return out, nil
		}
		userOnly := rest[:len(rest)-4]
		trailing := rest[len(rest)-4:]
		candidate := crcs.CRC32C(userOnly)
		got := binary.BigEndian.Uint32(trailing)
		out.MIC = got
		if candidate == got {
			out.MICStatus = pktstatus.MICOK
			out.User = userOnly
		} else if policy == MICOn {
			out.MICStatus = pktstatus.MICBad
			out.User = userOnly
		} else {
			// auto mode: no match means these 4 bytes are not a MIC at all.
			out.MICStatus = pktstatus.MICNone
		}
	default:
		return Parsed{}, errs.Configuration("spp", fmt.Sprintf("unknown MIC policy %q", policy))
	}
	return out, nil
}
