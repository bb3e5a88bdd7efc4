package profile

import (
	"github.com/zsiec/ccsds-pipeline/internal/spp"
)

// EncodeParams builds the complete spp.EncodeParams for one packet from
// this profile: primary header fields, secondary-header bytes (using nanos
// for ns8 and secs/micros for sec_us32), resolved body content, and
// padding/MIC configuration.
func (p Profile) EncodeParams(seq uint16, nanos uint64, secs, micros uint32) (spp.EncodeParams, error) {
	if err := p.Validate(); err != nil {
		return spp.EncodeParams{}, err
	}

	ptype, err := p.packetType()
	if err != nil {
		return spp.EncodeParams{}, err
	}
	mode, err := p.secHdrMode()
	if err != nil {
		return spp.EncodeParams{}, err
	}
	fixed, _ := parseHex(p.SecHdr.Hex)
	secBytes, err := spp.EncodeSecondaryHeader(mode, nanos, secs, micros, fixed)
	if err != nil {
		return spp.EncodeParams{}, err
	}
	user, err := p.userBytes()
	if err != nil {
		return spp.EncodeParams{}, err
	}
	pad, err := p.padByte()
	if err != nil {
		return spp.EncodeParams{}, err
	}

	return spp.EncodeParams{
		APID:         uint16(p.APID),
		Type:         ptype,
		SeqCount:     seq % spp.SeqWrap,
		SecHdrMode:   mode,
		SecHdrBytes:  secBytes,
		User:         user,
		PadByte:      pad,
		UseMIC:       p.UseMIC,
		DataFieldLen: p.DataFieldLen,
	}, nil
}

// Encode builds the complete packet bytes for this profile and sequence
// count.
func (p Profile) Encode(seq uint16, nanos uint64, secs, micros uint32) ([]byte, error) {
	params, err := p.EncodeParams(seq, nanos, secs, micros)
	if err != nil {
		return nil, err
	}
	return spp.Encode(params)
}

// ReceiveConfig resolves this profile's secondary-header length and MIC
// policy for spp.Reconstructor's APIDConfig lookup. An explicit
// MICPolicy field overrides the default ("auto" when use_mic is set,
// "off" otherwise).
func (p Profile) ReceiveConfig() (spp.APIDConfig, error) {
	mode, err := p.secHdrMode()
	if err != nil {
		return spp.APIDConfig{}, err
	}
	fixed, _ := parseHex(p.SecHdr.Hex)
	secLen, err := spp.SecondaryHeaderLen(mode, fixed)
	if err != nil {
		return spp.APIDConfig{}, err
	}

	policy := spp.MICOff
	if p.UseMIC {
		policy = spp.MICAuto
	}
	if p.MICPolicy != "" {
		policy = spp.MICPolicy(p.MICPolicy)
	}
	return spp.APIDConfig{SecHdrLen: secLen, MICPolicy: policy}, nil
}
