package pnrandom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
)

func TestStageRoundTrip(t *testing.T) {
	t.Parallel()
	frame := make([]byte, 1115)
	for i := range frame {
		frame[i] = byte(i)
	}

	enc := NewRandomizer()
	var in, out tagstream.Buffer
	var inTags, outTags tagstream.TagQueue
	in.Write(frame)
	inTags.Push(0, tagstream.LengthTag, len(frame))

	consumed, produced, err := enc.Process(&in, &inTags, &out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, len(frame), consumed)
	assert.Equal(t, len(frame), produced)

	tag, ok := outTags.Peek()
	require.True(t, ok)
	assert.Equal(t, len(frame), tag.Value)

	dec := NewDerandomizer()
	var out2 tagstream.Buffer
	var outTags2 tagstream.TagQueue
	_, _, err = dec.Process(&out, &outTags, &out2, &outTags2)
	require.NoError(t, err)
	assert.Equal(t, frame, out2.Bytes())
}

func TestStageWaitsForFullFrame(t *testing.T) {
	t.Parallel()
	s := NewRandomizer()
	var in, out tagstream.Buffer
	var inTags, outTags tagstream.TagQueue
	in.Write(make([]byte, 10))
	inTags.Push(0, tagstream.LengthTag, 20)

	consumed, produced, err := s.Process(&in, &inTags, &out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
	assert.Equal(t, 0, produced)
}

func TestStageBypass(t *testing.T) {
	t.Parallel()
	frame := []byte{0x01, 0x02, 0x03, 0x04}
	s := NewRandomizer(WithBypass(true))
	var in, out tagstream.Buffer
	var inTags, outTags tagstream.TagQueue
	in.Write(frame)
	inTags.Push(0, tagstream.LengthTag, len(frame))

	_, _, err := s.Process(&in, &inTags, &out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, frame, out.Bytes())
}
