package tagstream

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/ccsds-pipeline/internal/errs"
)

// link is the shared hand-off point between two adjacent stages: one
// stage's output Buffer/TagQueue is the next stage's input. Both sides
// may run on separate goroutines when a Pipeline is driven with Run, so
// the link guards them with a mutex, the same way the teacher protects
// internal/stream.Manager's map with a sync.RWMutex rather than leaving
// stage-internal state (which needs none) locked too.
type link struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    Buffer
	tags   TagQueue
	closed bool // true once the upstream side will never write again
}

func newLink() *link {
	l := &link{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *link) write(p []byte, tagOffset int, tagValue int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	off := l.buf.Len()
	l.buf.Write(p)
	if tagValue > 0 {
		l.tags.Push(off+tagOffset, LengthTag, tagValue)
	}
	l.cond.Broadcast()
}

func (l *link) close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Pipeline chains Stages leaf-to-root exactly as spec §2 lists a
// transmit or receive chain: Feed writes raw bytes into the first
// stage's input, Run drives every stage until the input is closed and
// fully drained, and Drain reads whatever the last stage has produced.
type Pipeline struct {
	log    *slog.Logger
	stages []Stage
	links  []*link // len(stages)+1; links[i] feeds stages[i], links[i+1] receives its output

	recoveredMu sync.Mutex
	recovered   map[string]int64 // stage name -> count of frames dropped to a recoverable error
}

// New builds a Pipeline running stages in order. If log is nil,
// slog.Default() is used, matching internal/stream.NewManager's
// nil-logger convention.
func New(log *slog.Logger, stages ...Stage) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{log: log.With("component", "pipeline"), stages: stages, recovered: make(map[string]int64)}
	p.links = make([]*link, len(stages)+1)
	for i := range p.links {
		p.links[i] = newLink()
	}
	return p
}

// RecoveredErrors reports, per stage name, how many frames that stage
// dropped to a recoverable error (spec §7: MalformedHeader/
// ContractViolation/IntegrityFailure/Truncation abort only the current
// frame, not the run). Safe to call at any point; typically read after
// Run returns.
func (p *Pipeline) RecoveredErrors() map[string]int64 {
	p.recoveredMu.Lock()
	defer p.recoveredMu.Unlock()
	out := make(map[string]int64, len(p.recovered))
	for k, v := range p.recovered {
		out[k] = v
	}
	return out
}

func (p *Pipeline) countRecovered(stage string) {
	p.recoveredMu.Lock()
	p.recovered[stage]++
	p.recoveredMu.Unlock()
}

// recoverable reports whether err is one of the frame-scoped sentinels
// spec §7 requires the Pipeline to survive, as opposed to a
// ConfigurationError (detected only at construction, never here, but
// defensively treated as fatal if a Stage somehow returns one at
// runtime) or any unclassified error.
func recoverable(err error) bool {
	return errors.Is(err, errs.ErrMalformedHeader) ||
		errors.Is(err, errs.ErrContractViolation) ||
		errors.Is(err, errs.ErrIntegrityFailure) ||
		errors.Is(err, errs.ErrTruncation)
}

// Feed writes data into the Pipeline's input, tagging a frame boundary
// of the given length at the start of the appended bytes. Pass length 0
// to append without starting a new frame (continuing a partial write).
func (p *Pipeline) Feed(data []byte, length int) {
	p.links[0].write(data, 0, length)
}

// Close marks the Pipeline's input as exhausted; once every stage has
// drained what it can, Run returns.
func (p *Pipeline) Close() {
	p.links[0].close()
}

// Drain reads and removes everything the last stage has produced so
// far, along with its length tags (offsets relative to the returned
// slice).
func (p *Pipeline) Drain() ([]byte, []Tag) {
	last := p.links[len(p.links)-1]
	last.mu.Lock()
	defer last.mu.Unlock()
	out := append([]byte(nil), last.buf.Bytes()...)
	tags := make([]Tag, last.tags.Len())
	for i := 0; i < last.tags.Len(); i++ {
		tags[i] = last.tags.At(i)
	}
	last.buf.Reset()
	last.tags = TagQueue{}
	return out, tags
}

// Run drives every stage concurrently (the "host scheduler may run
// stages in parallel threads" model of spec §5) until the Pipeline's
// input is closed and every stage has suspended with no more progress
// possible. It returns the first non-recoverable error any stage
// returns, via errgroup.Group, and respects ctx cancellation;
// recoverable stage errors are counted in RecoveredErrors, not returned.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, st := range p.stages {
		i, st := i, st
		in, out := p.links[i], p.links[i+1]
		g.Go(func() error {
			return p.driveStage(ctx, st, in, out)
		})
	}
	return g.Wait()
}

func (p *Pipeline) driveStage(ctx context.Context, st Stage, in, out *link) error {
	log := p.log.With("stage", st.Name())
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		in.mu.Lock()
		for in.buf.Len() == 0 && !in.closed {
			in.cond.Wait()
		}
		inClosed := in.closed
		inData := in.buf.Bytes()
		inTags := in.tags
		in.mu.Unlock()

		var scratchOut Buffer
		var scratchTags TagQueue
		consumed, produced, err := st.Process(&Buffer{data: inData}, &inTags, &scratchOut, &scratchTags)
		if err != nil {
			if !recoverable(err) {
				log.Error("stage failed", "error", err)
				return err
			}
			log.Warn("stage dropped a frame", "error", err)
			p.countRecovered(st.Name())
			produced = 0
		}

		if consumed > 0 {
			in.mu.Lock()
			in.buf.Advance(consumed)
			in.tags.Advance(consumed)
			in.mu.Unlock()
		}

		if produced > 0 {
			out.mu.Lock()
			base := out.buf.Len()
			out.buf.Write(scratchOut.Bytes())
			for i := 0; i < scratchTags.Len(); i++ {
				t := scratchTags.At(i)
				out.tags.Push(base+t.Offset, t.Key, t.Value)
			}
			out.cond.Broadcast()
			out.mu.Unlock()
		}

		if consumed == 0 && produced == 0 {
			if inClosed {
				if flusher, ok := st.(Flusher); ok {
					var scratchOut Buffer
					var scratchTags TagQueue
					flushed, err := flusher.Flush(&scratchOut, &scratchTags)
					if err != nil {
						log.Error("stage flush failed", "error", err)
						return err
					}
					if flushed > 0 {
						out.mu.Lock()
						base := out.buf.Len()
						out.buf.Write(scratchOut.Bytes())
						for i := 0; i < scratchTags.Len(); i++ {
							t := scratchTags.At(i)
							out.tags.Push(base+t.Offset, t.Key, t.Value)
						}
						out.cond.Broadcast()
						out.mu.Unlock()
					}
				}
				out.close()
				return nil
			}
			// No progress possible with what's buffered (a partial
			// frame); block until more input arrives rather than
			// busy-spinning. Cancellation is observed on the next
			// Feed/Close wakeup or loop re-entry, matching the
			// upstream-closure-driven cancellation model of spec §5.
			in.mu.Lock()
			if in.buf.Len() > 0 && !in.closed {
				in.cond.Wait()
			}
			in.mu.Unlock()
		}
	}
}
