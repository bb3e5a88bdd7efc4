package tmframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/ccsds-pipeline/internal/pktstatus"
	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
)

func feedPackets(t *testing.T, f *Framer, packets ...[]byte) (*tagstream.Buffer, *tagstream.TagQueue) {
	t.Helper()
	var in tagstream.Buffer
	var inTags tagstream.TagQueue
	for _, p := range packets {
		off := in.Len()
		in.Write(p)
		inTags.Push(off, tagstream.LengthTag, len(p))
	}
	return &in, &inTags
}

// TestSegmentationScenario reproduces spec §8 scenario 4: three packets
// of 500/700/600 bytes into a 1103-byte TFDF.
func TestSegmentationScenario(t *testing.T) {
	t.Parallel()
	f, err := NewFramer(Config{FrameLen: 1103 + HeaderLen, SCID: 0x123, VCID: 1, IdleEnabled: true})
	require.NoError(t, err)

	p1 := make([]byte, 500)
	p2 := make([]byte, 700)
	p3 := make([]byte, 600)
	for i := range p1 {
		p1[i] = 0xAA
	}
	for i := range p2 {
		p2[i] = 0xBB
	}
	for i := range p3 {
		p3[i] = 0xCC
	}

	in, inTags := feedPackets(t, f, p1, p2, p3)
	var out tagstream.Buffer
	var outTags tagstream.TagQueue

	consumed, produced, err := f.Process(in, inTags, &out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, 1800, consumed)

	require.GreaterOrEqual(t, outTags.Len(), 2)
	frame1 := out.Bytes()[outTags.At(0).Offset : outTags.At(0).Offset+outTags.At(0).Value]
	frame2 := out.Bytes()[outTags.At(1).Offset : outTags.At(1).Offset+outTags.At(1).Value]

	hdr1, err := ParseHeader(frame1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), hdr1.FirstHeaderPointer) // packet 1 starts at offset 0

	tfdf1 := frame1[HeaderLen:]
	assert.Equal(t, p1, tfdf1[:500])
	assert.Equal(t, p2[:len(tfdf1)-500], tfdf1[500:])

	hdr2, err := ParseHeader(frame2)
	require.NoError(t, err)
	// packet 2's continuation occupies the start of frame 2; packet 3
	// begins wherever packet 2's remainder ends.
	p2Remainder := len(p2) - (len(tfdf1) - 500)
	assert.Equal(t, uint16(p2Remainder), hdr2.FirstHeaderPointer)

	tfdf2 := frame2[HeaderLen:]
	assert.Equal(t, p2[len(p2)-p2Remainder:], tfdf2[:p2Remainder])
	// packet 3 fits entirely after packet 2's remainder; idle fill pads
	// out whatever is left of the TFDF.
	assert.Equal(t, p3, tfdf2[p2Remainder:p2Remainder+len(p3)])

	_ = produced
}

func TestCounterMonotonicity(t *testing.T) {
	t.Parallel()
	f, err := NewFramer(Config{FrameLen: 50 + HeaderLen, VCID: 2})
	require.NoError(t, err)

	pkt := make([]byte, 500)
	in, inTags := feedPackets(t, f, pkt)
	var out tagstream.Buffer
	var outTags tagstream.TagQueue
	_, _, err = f.Process(in, inTags, &out, &outTags)
	require.NoError(t, err)

	require.GreaterOrEqual(t, outTags.Len(), 3)
	var prev byte
	for i := 0; i < outTags.Len(); i++ {
		tag := outTags.At(i)
		frame := out.Bytes()[tag.Offset : tag.Offset+tag.Value]
		hdr, err := ParseHeader(frame)
		require.NoError(t, err)
		if i > 0 {
			assert.Equal(t, byte(prev+1), hdr.VCCounter)
		}
		prev = hdr.VCCounter
	}
}

func TestFHPNoPacketStartWhenOnlyContinuation(t *testing.T) {
	t.Parallel()
	f, err := NewFramer(Config{FrameLen: 40 + HeaderLen})
	require.NoError(t, err)

	pkt := make([]byte, 120) // spans exactly 3 frames of 40-byte TFDF
	in, inTags := feedPackets(t, f, pkt)
	var out tagstream.Buffer
	var outTags tagstream.TagQueue
	_, _, err = f.Process(in, inTags, &out, &outTags)
	require.NoError(t, err)
	require.Equal(t, 3, outTags.Len())

	tag := outTags.At(1)
	frame := out.Bytes()[tag.Offset : tag.Offset+tag.Value]
	hdr, err := ParseHeader(frame)
	require.NoError(t, err)
	assert.Equal(t, uint16(NoPacketStart), hdr.FirstHeaderPointer)
}

func TestOnlyIdleDataWhenNoPacketAvailable(t *testing.T) {
	t.Parallel()
	f, err := NewFramer(Config{FrameLen: 20 + HeaderLen, IdleEnabled: true, IdleByte: 0x55})
	require.NoError(t, err)

	var in tagstream.Buffer
	var inTags tagstream.TagQueue
	var out tagstream.Buffer
	var outTags tagstream.TagQueue

	_, produced, err := f.Process(&in, &inTags, &out, &outTags)
	require.NoError(t, err)
	require.Equal(t, 1, outTags.Len())
	assert.Equal(t, 20+HeaderLen, produced)

	hdr, err := ParseHeader(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(OnlyIdleData), hdr.FirstHeaderPointer)
	for _, b := range out.Bytes()[HeaderLen:] {
		assert.Equal(t, byte(0x55), b)
	}
}

func TestSuspendsWithoutPacketsAndIdleDisabled(t *testing.T) {
	t.Parallel()
	f, err := NewFramer(Config{FrameLen: 20 + HeaderLen})
	require.NoError(t, err)

	var in tagstream.Buffer
	var inTags tagstream.TagQueue
	var out tagstream.Buffer
	var outTags tagstream.TagQueue

	consumed, produced, err := f.Process(&in, &inTags, &out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
	assert.Equal(t, 0, produced)
}

func TestFlushPadsOutPartialFrameEvenWithIdleDisabled(t *testing.T) {
	t.Parallel()
	f, err := NewFramer(Config{FrameLen: 20 + HeaderLen})
	require.NoError(t, err)

	pkt := make([]byte, 8)
	in, inTags := feedPackets(t, f, pkt)
	var out tagstream.Buffer
	var outTags tagstream.TagQueue

	consumed, produced, err := f.Process(in, inTags, &out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, len(pkt), consumed)
	assert.Equal(t, 0, produced) // withheld: short of a full 20-byte TFDF

	flushed, err := f.Flush(&out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, 20+HeaderLen, flushed)
	require.Equal(t, 20+HeaderLen, out.Len())

	hdr, err := ParseHeader(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(0), hdr.FirstHeaderPointer)
	assert.Equal(t, pkt, out.Bytes()[HeaderLen:HeaderLen+len(pkt)])

	// A second Flush with nothing left buffered is a no-op.
	flushed, err = f.Flush(&out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, 0, flushed)
}

func TestFlushIsNoopWhenNothingBuffered(t *testing.T) {
	t.Parallel()
	f, err := NewFramer(Config{FrameLen: 20 + HeaderLen})
	require.NoError(t, err)

	var out tagstream.Buffer
	var outTags tagstream.TagQueue
	flushed, err := f.Flush(&out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, 0, flushed)
	assert.Equal(t, 0, out.Len())
}

func TestFECFAppendedAndVerifiable(t *testing.T) {
	t.Parallel()
	f, err := NewFramer(Config{FrameLen: 30 + HeaderLen + FECFLen, FECF: true, IdleEnabled: true})
	require.NoError(t, err)

	var in tagstream.Buffer
	var inTags tagstream.TagQueue
	var out tagstream.Buffer
	var outTags tagstream.TagQueue
	_, _, err = f.Process(&in, &inTags, &out, &outTags)
	require.NoError(t, err)

	frame := out.Bytes()
	require.Len(t, frame, 30+HeaderLen+FECFLen)

	unf, err := NewUnframer(Config{FrameLen: 30 + HeaderLen + FECFLen, FECF: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, pktstatus.CRCOK, unf.checkFECF(frame))
}
