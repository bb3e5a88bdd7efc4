package spp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zsiec/ccsds-pipeline/internal/crcs"
	"github.com/zsiec/ccsds-pipeline/internal/pktstatus"
)

// TestMICOKScenario reproduces spec §8 scenario 1: APID 0x0B3, TC, ns8
// secondary header, ASCII body "0.21/data/", MIC on, data_field_len 138.
func TestMICOKScenario(t *testing.T) {
	t.Parallel()
	sec, err := EncodeSecondaryHeader(SecHdrNS8, 0, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, sec, 8)

	pkt, err := Encode(EncodeParams{
		APID:         0x0B3,
		Type:         TypeTC,
		SeqCount:     0,
		SecHdrMode:   SecHdrNS8,
		SecHdrBytes:  sec,
		User:         []byte("0.21/data/"),
		PadByte:      0x00,
		UseMIC:       true,
		DataFieldLen: 138,
	})
	require.NoError(t, err)
	require.Len(t, pkt, 144)

	hdr, err := ParseHeader(pkt)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0B3), hdr.APID)
	assert.Equal(t, TypeTC, hdr.Type)
	assert.True(t, hdr.SecHdrFlag)
	assert.Equal(t, uint16(0x0089), hdr.DataFieldLen)

	parsed, err := Parse(pkt, 8, MICAuto)
	require.NoError(t, err)
	assert.Equal(t, pktstatus.MICOK, parsed.MICStatus)

	user := parsed.User
	require.Len(t, user, 126)
	assert.Equal(t, []byte("0.21/data/"), user[:10])
	for _, b := range user[10:] {
		assert.Equal(t, byte(0), b)
	}
	assert.Equal(t, crcs.CRC32C(user), parsed.MIC)
}

// TestNoSecondaryHeaderScenario reproduces spec §8 scenario 2.
func TestNoSecondaryHeaderScenario(t *testing.T) {
	t.Parallel()
	pattern := make([]byte, 16)
	for i := range pattern {
		pattern[i] = byte(i)
	}

	pkt, err := Encode(EncodeParams{
		APID:         0x1FE,
		Type:         TypeTM,
		SecHdrMode:   SecHdrNone,
		User:         pattern,
		DataFieldLen: 16,
	})
	require.NoError(t, err)
	require.Len(t, pkt, 22)

	hdr, err := ParseHeader(pkt)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x000F), hdr.DataFieldLen)
	assert.Equal(t, pattern, pkt[HeaderLen:])
}

// TestFixedSecondaryHeaderMICScenario reproduces spec §8 scenario 3.
func TestFixedSecondaryHeaderMICScenario(t *testing.T) {
	t.Parallel()
	fixed := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	sec, err := EncodeSecondaryHeader(SecHdrFixed, 0, 0, 0, fixed)
	require.NoError(t, err)

	pkt, err := Encode(EncodeParams{
		APID:         0x042,
		Type:         TypeTM,
		SecHdrMode:   SecHdrFixed,
		SecHdrBytes:  sec,
		User:         []byte("some telemetry bytes..."),
		UseMIC:       true,
		DataFieldLen: 32,
	})
	require.NoError(t, err)

	hdr, err := ParseHeader(pkt)
	require.NoError(t, err)
	assert.Equal(t, uint16(31), hdr.DataFieldLen)

	dataField := pkt[HeaderLen:]
	require.Len(t, dataField, 32)
	user := dataField[4 : len(dataField)-4]
	require.Len(t, user, 24)
	assert.Equal(t, crcs.AppendCRC32C(nil, user), []byte(dataField[len(dataField)-4:]))

	parsed, err := Parse(pkt, 4, MICAuto)
	require.NoError(t, err)
	assert.Equal(t, pktstatus.MICOK, parsed.MICStatus)
	assert.Equal(t, fixed, parsed.SecHdr)
}

func TestEncodeRejectsTooSmallDataFieldLen(t *testing.T) {
	t.Parallel()
	_, err := Encode(EncodeParams{
		APID:         1,
		SecHdrBytes:  make([]byte, 8),
		UseMIC:       true,
		DataFieldLen: 10,
	})
	require.Error(t, err)
}

func TestParseRejectsOutOfRangeAPID(t *testing.T) {
	t.Parallel()
	buf := make([]byte, HeaderLen)
	buf[0] = 0xFF // version 7, type 1, shf 1, top APID bits all set
	buf[1] = 0xFF
	_, err := ParseHeader(buf)
	require.Error(t, err)
}

func TestParseRejectsTruncatedPacket(t *testing.T) {
	t.Parallel()
	pkt, err := Encode(EncodeParams{APID: 5, User: []byte("hello"), DataFieldLen: 5})
	require.NoError(t, err)

	_, err = Parse(pkt[:len(pkt)-1], 0, MICOff)
	require.Error(t, err)
}

func TestMICOffNeverInspectsTrailingBytes(t *testing.T) {
	t.Parallel()
	pkt, err := Encode(EncodeParams{APID: 5, User: []byte("deadbeef"), DataFieldLen: 8})
	require.NoError(t, err)

	parsed, err := Parse(pkt, 0, MICOff)
	require.NoError(t, err)
	assert.Equal(t, pktstatus.MICOff, parsed.MICStatus)
	assert.Equal(t, 8, len(parsed.User))
}

func TestMICOnModeReportsBadOnMismatch(t *testing.T) {
	t.Parallel()
	pkt, err := Encode(EncodeParams{APID: 5, User: []byte("hello world"), UseMIC: true, DataFieldLen: 15})
	require.NoError(t, err)
	pkt[len(pkt)-1] ^= 0xFF // corrupt the MIC

	parsed, err := Parse(pkt, 0, MICOn)
	require.NoError(t, err)
	assert.Equal(t, pktstatus.MICBad, parsed.MICStatus)
}

// TestRoundTripProperty checks spec §8's "parse(encode(p)) == p" for
// varied user-content lengths and MIC settings.
func TestRoundTripProperty(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		useMIC := rapid.Bool().Draw(rt, "useMIC")
		userLen := rapid.IntRange(0, 64).Draw(rt, "userLen")
		user := rapid.SliceOfN(rapid.Byte(), userLen, userLen).Draw(rt, "user")
		apid := uint16(rapid.IntRange(0, MaxAPID).Draw(rt, "apid"))
		seq := uint16(rapid.IntRange(0, SeqWrap-1).Draw(rt, "seq"))

		micLen := 0
		if useMIC {
			micLen = 4
		}
		dataFieldLen := userLen + micLen
		if dataFieldLen == 0 {
			dataFieldLen = 1 // DataLen() invariant requires at least 1 byte
		}

		pkt, err := Encode(EncodeParams{
			APID:         apid,
			SeqCount:     seq,
			User:         user,
			UseMIC:       useMIC,
			DataFieldLen: dataFieldLen,
		})
		require.NoError(rt, err)

		policy := MICOff
		if useMIC {
			policy = MICOn
		}
		parsed, err := Parse(pkt, 0, policy)
		require.NoError(rt, err)
		assert.Equal(rt, apid, parsed.Header.APID)
		assert.Equal(rt, seq, parsed.Header.SeqCount)
		if useMIC {
			assert.Equal(rt, pktstatus.MICOK, parsed.MICStatus)
		}
		assert.Equal(rt, user, parsed.User[:userLen])
	})
}

// TestMICClosureProperty checks spec §8's MIC closure invariant: flipping
// any one bit in U changes the CRC.
func TestMICClosureProperty(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 32).Draw(rt, "n")
		user := rapid.SliceOfN(rapid.Byte(), n, n).Draw(rt, "user")
		bitIdx := rapid.IntRange(0, n*8-1).Draw(rt, "bitIdx")

		original := crcs.CRC32C(user)
		flipped := append([]byte(nil), user...)
		flipped[bitIdx/8] ^= 1 << uint(bitIdx%8)

		assert.NotEqual(rt, original, crcs.CRC32C(flipped))
	})
}
