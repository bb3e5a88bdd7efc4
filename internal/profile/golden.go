package profile

import (
	"encoding/hex"
	"fmt"

	"github.com/zsiec/ccsds-pipeline/internal/crcs"
)

// GoldenVector is a persisted golden artifact for one profile/sequence
// pair (spec §6 "Persisted artifacts"), mirroring the original Python
// tooling's tools/hex_dump.py fixture output.
type GoldenVector struct {
	ProfileName string
	Seq         uint16
	Packet      []byte
	HexDump     string // hex of the first 64 bytes (or fewer, if shorter)
	MICHex      string // empty when the profile doesn't use a MIC
}

// GoldenFirstPacket builds the golden vector for this profile's first
// packet (seq 0), using the supplied timestamp fields for any secondary
// header that needs them.
func (p Profile) GoldenFirstPacket(nanos uint64, secs, micros uint32) (GoldenVector, error) {
	return p.GoldenPacket(0, nanos, secs, micros)
}

// GoldenPacket builds the golden vector for one specific sequence count.
func (p Profile) GoldenPacket(seq uint16, nanos uint64, secs, micros uint32) (GoldenVector, error) {
	packet, err := p.Encode(seq, nanos, secs, micros)
	if err != nil {
		return GoldenVector{}, err
	}

	dumpLen := len(packet)
	if dumpLen > 64 {
		dumpLen = 64
	}

	var micHex string
	if p.UseMIC {
		user, err := p.userBytes()
		if err != nil {
			return GoldenVector{}, err
		}
		pad, err := p.padByte()
		if err != nil {
			return GoldenVector{}, err
		}
		secLen, err := secHdrLenFor(p)
		if err != nil {
			return GoldenVector{}, err
		}
		userCap := p.DataFieldLen - secLen - 4
		padded := make([]byte, userCap)
		n := copy(padded, user)
		for i := n; i < userCap; i++ {
			padded[i] = pad
		}
		mic := crcs.CRC32C(padded)
		micHex = fmt.Sprintf("%08X", mic)
	}

	return GoldenVector{
		ProfileName: p.Name,
		Seq:         seq,
		Packet:      packet,
		HexDump:     hex.EncodeToString(packet[:dumpLen]),
		MICHex:      micHex,
	}, nil
}

func secHdrLenFor(p Profile) (int, error) {
	cfg, err := p.ReceiveConfig()
	if err != nil {
		return 0, err
	}
	return cfg.SecHdrLen, nil
}
