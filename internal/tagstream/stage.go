package tagstream

// Stage is a single cooperative, single-threaded transformer over a
// tagged byte stream (spec §5). A Stage owns no buffers itself beyond
// whatever partial state it retains between calls (a continuation
// packet, a trellis, a counter); the Buffers passed to Process belong to
// the Pipeline wiring it to its neighbors.
//
// Process consumes as many complete frames as it can from in/inTags and
// appends the corresponding output frames (each preceded by exactly one
// LengthTag) to out/outTags. It returns the number of bytes consumed
// from in and the number of bytes produced into out. Process must never
// consume a partial frame: if in does not yet hold a full frame per the
// next queued length tag, it returns (0, 0, nil) so the Pipeline can
// retry once more input arrives (the suspension behavior spec §5
// requires of every stage).
//
// A Stage reporting one of internal/errs's non-configuration sentinels
// (ErrMalformedHeader, ErrContractViolation, ErrIntegrityFailure,
// ErrTruncation — spec §7's "abort the current frame... and surface a
// counted event" policy) must still report consumed as the number of
// input bytes the bad frame occupied, so the Pipeline can skip past it
// and resume with the next frame rather than reprocessing the same
// bytes forever. Any other error (or ErrConfigurationError) is treated
// as fatal and stops the whole Pipeline.
type Stage interface {
	Name() string
	Process(in *Buffer, inTags *TagQueue, out *Buffer, outTags *TagQueue) (consumed, produced int, err error)
}

// Flusher is an optional Stage extension for stages that can hold
// buffered state with no complete frame to show for it (a Framer's
// partially filled Transfer Frame once no further packets will ever
// arrive). The Pipeline calls Flush exactly once, after the upstream
// link closes and Process has stopped making progress, giving the stage
// a last chance to emit whatever it is still holding before its own
// output closes in turn.
type Flusher interface {
	Flush(out *Buffer, outTags *TagQueue) (produced int, err error)
}

// StageFunc adapts a plain function to the Stage interface for stages
// with no state of their own (e.g. ASM insertion).
type StageFunc struct {
	StageName string
	Fn        func(in *Buffer, inTags *TagQueue, out *Buffer, outTags *TagQueue) (int, int, error)
}

func (f StageFunc) Name() string { return f.StageName }

func (f StageFunc) Process(in *Buffer, inTags *TagQueue, out *Buffer, outTags *TagQueue) (int, int, error) {
	return f.Fn(in, inTags, out, outTags)
}
