package tagstream

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
)

// upperStage uppercases ASCII bytes one whole tagged frame at a time,
// exercising the Pipeline's generic consumed/produced/tag bookkeeping
// without pulling in any real codec package.
type upperStage struct{}

func (upperStage) Name() string { return "test.upper" }

func (upperStage) Process(in *Buffer, inTags *TagQueue, out *Buffer, outTags *TagQueue) (int, int, error) {
	length, ok := inTags.PopLength()
	if !ok {
		return 0, 0, nil
	}
	if in.Len() < length {
		return 0, 0, nil
	}
	frame := append([]byte(nil), in.Bytes()[:length]...)
	for i, b := range frame {
		if b >= 'a' && b <= 'z' {
			frame[i] = b - 'a' + 'A'
		}
	}
	base := out.Len()
	out.Write(frame)
	outTags.Push(base, LengthTag, length)
	return length, length, nil
}

func TestPipelineRunDrainsSingleStage(t *testing.T) {
	t.Parallel()
	p := New(nil, upperStage{})
	p.Feed([]byte("hello"), 5)
	p.Close()

	require.NoError(t, p.Run(context.Background()))
	out, tags := p.Drain()
	assert.Equal(t, []byte("HELLO"), out)
	require.Len(t, tags, 1)
	assert.Equal(t, Tag{Offset: 0, Key: LengthTag, Value: 5}, tags[0])
}

func TestPipelineRunChainsMultipleStages(t *testing.T) {
	t.Parallel()
	p := New(nil, upperStage{}, upperStage{})
	p.Feed([]byte("ab"), 2)
	p.Feed([]byte("cd"), 2)
	p.Close()

	require.NoError(t, p.Run(context.Background()))
	out, tags := p.Drain()
	assert.Equal(t, []byte("ABCD"), out)
	require.Len(t, tags, 2)
}

// flushStage buffers every byte it sees without ever producing, until
// Flush forces out whatever remains, proving the Pipeline invokes the
// Flusher hook exactly once on close rather than dropping buffered
// state silently.
type flushStage struct {
	held []byte
}

func (*flushStage) Name() string { return "test.flush" }

func (s *flushStage) Process(in *Buffer, inTags *TagQueue, out *Buffer, outTags *TagQueue) (int, int, error) {
	n := in.Len()
	if n == 0 {
		return 0, 0, nil
	}
	s.held = append(s.held, in.Bytes()...)
	return n, 0, nil
}

func (s *flushStage) Flush(out *Buffer, outTags *TagQueue) (int, error) {
	if len(s.held) == 0 {
		return 0, nil
	}
	base := out.Len()
	out.Write(s.held)
	n := len(s.held)
	outTags.Push(base, LengthTag, n)
	s.held = nil
	return n, nil
}

func TestPipelineRunCallsFlusherOnClose(t *testing.T) {
	t.Parallel()
	fs := &flushStage{}
	p := New(nil, fs)
	p.Feed([]byte("pending"), 7)
	p.Close()

	require.NoError(t, p.Run(context.Background()))
	out, _ := p.Drain()
	assert.Equal(t, []byte("pending"), out)
}

// rejectingStage drops any frame equal to badFrame with the given
// sentinel error, consuming it like any other frame, and passes every
// other frame through untouched. Used to prove the Pipeline survives a
// bad frame buried in an otherwise good multi-frame stream (spec §7).
type rejectingStage struct {
	badFrame []byte
	sentinel error
}

func (s rejectingStage) Name() string { return "test.rejecting" }

func (s rejectingStage) Process(in *Buffer, inTags *TagQueue, out *Buffer, outTags *TagQueue) (int, int, error) {
	length, ok := inTags.PopLength()
	if !ok {
		return 0, 0, nil
	}
	if in.Len() < length {
		return 0, 0, nil
	}
	frame := in.Bytes()[:length]
	if bytes.Equal(frame, s.badFrame) {
		return length, 0, s.sentinel
	}
	base := out.Len()
	out.Write(frame)
	outTags.Push(base, LengthTag, length)
	return length, length, nil
}

func TestPipelineRunSkipsFrameOnRecoverableError(t *testing.T) {
	t.Parallel()
	p := New(nil, rejectingStage{badFrame: []byte("bad!!"), sentinel: errs.Integrity("test", "simulated uncorrectable frame")})
	p.Feed([]byte("good1"), 5)
	p.Feed([]byte("bad!!"), 5)
	p.Feed([]byte("good2"), 5)
	p.Close()

	require.NoError(t, p.Run(context.Background()))
	out, tags := p.Drain()
	assert.Equal(t, []byte("good1good2"), out)
	require.Len(t, tags, 2)

	counts := p.RecoveredErrors()
	assert.EqualValues(t, 1, counts["test.rejecting"])
}

func TestPipelineRunAbortsOnUnclassifiedError(t *testing.T) {
	t.Parallel()
	p := New(nil, rejectingStage{badFrame: []byte("bad!!"), sentinel: errors.New("boom")})
	p.Feed([]byte("good1"), 5)
	p.Feed([]byte("bad!!"), 5)
	p.Close()

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
}
