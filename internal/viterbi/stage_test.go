package viterbi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/ccsds-pipeline/internal/conv"
	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
)

func TestStageDecodesFullFrame(t *testing.T) {
	t.Parallel()
	data := []byte("hello CCSDS")
	coded := conv.NewEncoder().EncodeFrame(data)
	softs := toPM1Softs(coded)
	nsym := len(softs) / 2

	var in, out tagstream.Buffer
	var inTags, outTags tagstream.TagQueue
	in.Write(EncodeSofts(softs))
	inTags.Push(0, tagstream.LengthTag, nsym)

	s := NewStage(PM1)
	consumed, produced, err := s.Process(&in, &inTags, &out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, len(softs)*bytesPerSoft, consumed)
	assert.Equal(t, len(data), produced)
	assert.Equal(t, data, out.Bytes())

	tag, ok := outTags.Peek()
	require.True(t, ok)
	assert.Equal(t, len(data), tag.Value)
}

func TestStageWaitsForFullFrame(t *testing.T) {
	t.Parallel()
	s := NewStage(PM1)
	var in, out tagstream.Buffer
	var inTags, outTags tagstream.TagQueue
	in.Write(make([]byte, 8))
	inTags.Push(0, tagstream.LengthTag, 16) // claims 16 message bits, needs 16*2*8 bytes

	consumed, produced, err := s.Process(&in, &inTags, &out, &outTags)
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
	assert.Equal(t, 0, produced)
}
