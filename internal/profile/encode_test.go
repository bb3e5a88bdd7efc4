package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/ccsds-pipeline/internal/pktstatus"
	"github.com/zsiec/ccsds-pipeline/internal/spp"
)

func TestEncodeProducesParseableRoundTrip(t *testing.T) {
	t.Parallel()
	p := validProfile()

	packet, err := p.Encode(7, 0, 0, 0)
	require.NoError(t, err)

	recvCfg, err := p.ReceiveConfig()
	require.NoError(t, err)
	assert.Equal(t, spp.MICAuto, recvCfg.MICPolicy)

	parsed, err := spp.Parse(packet, recvCfg.SecHdrLen, recvCfg.MICPolicy)
	require.NoError(t, err)
	assert.Equal(t, pktstatus.MICOK, parsed.MICStatus)
	assert.EqualValues(t, uint16(p.APID), parsed.Header.APID)
	assert.Equal(t, uint16(7), parsed.Header.SeqCount)
}

func TestReceiveConfigDefaultsToMICOffWithoutUseMIC(t *testing.T) {
	t.Parallel()
	p := validProfile()
	p.UseMIC = false
	cfg, err := p.ReceiveConfig()
	require.NoError(t, err)
	assert.Equal(t, spp.MICOff, cfg.MICPolicy)
}

func TestReceiveConfigHonorsExplicitMICPolicyOverride(t *testing.T) {
	t.Parallel()
	p := validProfile()
	p.MICPolicy = "on"
	cfg, err := p.ReceiveConfig()
	require.NoError(t, err)
	assert.Equal(t, spp.MICOn, cfg.MICPolicy)
}

func TestEncodeFixedSecondaryHeaderUsesConfiguredBytes(t *testing.T) {
	t.Parallel()
	p := validProfile()
	p.SecHdr.Mode = "fixed"
	p.SecHdr.Hex = "CAFEBABE"
	p.DataFieldLen = 4 + 16 + 4 // fixed sec hdr + pattern body + mic

	packet, err := p.Encode(0, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCA, 0xFE, 0xBA, 0xBE}, packet[spp.HeaderLen:spp.HeaderLen+4])
}
