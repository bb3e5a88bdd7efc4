package pktstatus

import (
	"sync"
	"sync/atomic"
)

// apidCounters accumulates telemetry for one APID using atomic counters,
// the same lock-free accumulator shape as distribution.DemuxStats in the
// teacher repo.
type apidCounters struct {
	sent       atomic.Int64
	received   atomic.Int64
	duplicates atomic.Int64
	gapTotal   atomic.Int64

	micOK    atomic.Int64
	micBad   atomic.Int64
	micNone  atomic.Int64
	micShort atomic.Int64
	micOff   atomic.Int64

	seq *SeqTracker
}

func newAPIDCounters() *apidCounters {
	return &apidCounters{seq: NewSeqTracker()}
}

// Snapshot is a point-in-time view of one APID's accumulated statistics
// (SPEC_FULL.md §C): sent count is tracked by the transmit-side caller
// via RecordSent; loss is derived as sent-minus-uniquely-received.
type Snapshot struct {
	APID       uint16
	Sent       int64
	Received   int64
	Duplicates int64
	GapTotal   int64
	MICOK      int64
	MICBad     int64
	MICNone    int64
	MICShort   int64
	MICOff     int64
}

// Loss reports sent minus uniquely received packets (never negative).
// Received counts every arrival including duplicates, so uniquely
// received is Received-Duplicates.
func (s Snapshot) Loss() int64 {
	loss := s.Sent - (s.Received - s.Duplicates)
	if loss < 0 {
		return 0
	}
	return loss
}

// Registry is the process-wide per-APID statistics table plus its
// Prometheus metric vectors (spec §7 "metrics aggregators compute
// per-APID loss... duplicate counts, and MIC statistics").
type Registry struct {
	mu      sync.RWMutex
	byAPID  map[uint16]*apidCounters
	metrics *Metrics
}

// NewRegistry builds a Registry. metrics may be nil to skip Prometheus
// wiring entirely (e.g. in unit tests).
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{byAPID: make(map[uint16]*apidCounters), metrics: metrics}
}

func (r *Registry) counters(apid uint16) *apidCounters {
	r.mu.RLock()
	c, ok := r.byAPID[apid]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byAPID[apid]; ok {
		return c
	}
	c = newAPIDCounters()
	r.byAPID[apid] = c
	return c
}

// RecordSent increments the sent counter for apid (transmit-side instrumentation).
func (r *Registry) RecordSent(apid uint16) {
	r.counters(apid).sent.Add(1)
	if r.metrics != nil {
		r.metrics.sentTotal.WithLabelValues(apidLabel(apid)).Inc()
	}
}

// RecordReceived classifies a received packet's sequence count and MIC
// status, updating received/duplicate/gap and MIC counters. MIC counters
// are tallied once per sequence count: a duplicate arrival updates only
// the received and duplicate counters.
func (r *Registry) RecordReceived(apid uint16, seq uint16, mic MICStatus) {
	c := r.counters(apid)
	c.received.Add(1)

	outcome, gap := c.seq.Observe(seq)
	if outcome == SeqDuplicate {
		c.duplicates.Add(1)
	} else if outcome == SeqGap {
		c.gapTotal.Add(int64(gap))
	}

	if outcome != SeqDuplicate {
		switch mic {
		case MICOK:
			c.micOK.Add(1)
		case MICBad:
			c.micBad.Add(1)
		case MICNone:
			c.micNone.Add(1)
		case MICShort:
			c.micShort.Add(1)
		case MICOff:
			c.micOff.Add(1)
		}
	}

	if r.metrics != nil {
		label := apidLabel(apid)
		r.metrics.receivedTotal.WithLabelValues(label).Inc()
		if outcome == SeqDuplicate {
			r.metrics.duplicateTotal.WithLabelValues(label).Inc()
		} else {
			r.metrics.micStatusTotal.WithLabelValues(label, mic.String()).Inc()
		}
	}
}

// Snapshot returns a consistent point-in-time view for one APID. The
// zero value is returned (with APID set) if nothing has been recorded.
func (r *Registry) Snapshot(apid uint16) Snapshot {
	c := r.counters(apid)
	return Snapshot{
		APID:       apid,
		Sent:       c.sent.Load(),
		Received:   c.received.Load(),
		Duplicates: c.duplicates.Load(),
		GapTotal:   c.gapTotal.Load(),
		MICOK:      c.micOK.Load(),
		MICBad:     c.micBad.Load(),
		MICNone:    c.micNone.Load(),
		MICShort:   c.micShort.Load(),
		MICOff:     c.micOff.Load(),
	}
}

// Snapshots returns a Snapshot for every APID observed so far.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	apids := make([]uint16, 0, len(r.byAPID))
	for apid := range r.byAPID {
		apids = append(apids, apid)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, len(apids))
	for i, apid := range apids {
		out[i] = r.Snapshot(apid)
	}
	return out
}
