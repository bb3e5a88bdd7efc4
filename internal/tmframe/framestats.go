package tmframe

import (
	"sync/atomic"

	"github.com/zsiec/ccsds-pipeline/internal/pktstatus"
)

// FrameStats accumulates per-virtual-channel Transfer Frame statistics
// the way internal/pktstatus.Registry does for Space Packets: FECF
// outcomes are a frame-level concern (spec §7 "analogous for CRC-16"),
// not per-APID, so they get their own small atomic-counter accumulator
// instead of extending the packet registry.
type FrameStats struct {
	received atomic.Int64
	crcOK    atomic.Int64
	crcBad   atomic.Int64
	crcOff   atomic.Int64
}

// NewFrameStats returns a zeroed FrameStats.
func NewFrameStats() *FrameStats { return &FrameStats{} }

// Record increments the received counter and classifies status.
func (s *FrameStats) Record(status pktstatus.CRCStatus) {
	s.received.Add(1)
	switch status {
	case pktstatus.CRCOK:
		s.crcOK.Add(1)
	case pktstatus.CRCBad:
		s.crcBad.Add(1)
	case pktstatus.CRCOff:
		s.crcOff.Add(1)
	}
}

// FrameSnapshot is a point-in-time view of FrameStats.
type FrameSnapshot struct {
	Received int64
	CRCOK    int64
	CRCBad   int64
	CRCOff   int64
}

// Snapshot returns a consistent point-in-time view.
func (s *FrameStats) Snapshot() FrameSnapshot {
	return FrameSnapshot{
		Received: s.received.Load(),
		CRCOK:    s.crcOK.Load(),
		CRCBad:   s.crcBad.Load(),
		CRCOff:   s.crcOff.Load(),
	}
}
