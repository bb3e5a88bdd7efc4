package spp

import (
	"encoding/binary"
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
)

// SecHdrMode is the tagged-union discriminator for secondary-header
// layout (spec §6 profile table, spec §9 "tagged unions represent the
// sec-hdr mode and body mode").
type SecHdrMode string

const (
	SecHdrNone    SecHdrMode = "none"
	SecHdrNS8     SecHdrMode = "ns8"
	SecHdrSecUS32 SecHdrMode = "sec_us32"
	SecHdrFixed   SecHdrMode = "fixed"
)

// SecondaryHeaderLen returns the byte length of the secondary header for
// mode, given the fixed opaque payload for SecHdrFixed.
func SecondaryHeaderLen(mode SecHdrMode, fixed []byte) (int, error) {
	switch mode {
	case SecHdrNone:
		return 0, nil
	case SecHdrNS8:
		return 8, nil
	case SecHdrSecUS32:
		return 8, nil
	case SecHdrFixed:
		return len(fixed), nil
	default:
		return 0, errs.Configuration("spp", fmt.Sprintf("unknown secondary-header mode %q", mode))
	}
}

// EncodeSecondaryHeader builds the secondary-header bytes for mode.
// nanos is used by SecHdrNS8 (nanoseconds since epoch); secs/micros by
// SecHdrSecUS32; fixed supplies the literal opaque payload for
// SecHdrFixed. SecHdrNone returns an empty, non-nil slice.
func EncodeSecondaryHeader(mode SecHdrMode, nanos uint64, secs, micros uint32, fixed []byte) ([]byte, error) {
	switch mode {
	case SecHdrNone:
		return []byte{}, nil
	case SecHdrNS8:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, nanos)
		return buf, nil
	case SecHdrSecUS32:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint32(buf[0:4], secs)
		binary.BigEndian.PutUint32(buf[4:8], micros)
		return buf, nil
	case SecHdrFixed:
		out := make([]byte, len(fixed))
		copy(out, fixed)
		return out, nil
	default:
		return nil, errs.Configuration("spp", fmt.Sprintf("unknown secondary-header mode %q", mode))
	}
}
