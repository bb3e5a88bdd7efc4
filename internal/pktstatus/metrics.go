package pktstatus

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// apidLabel formats an APID as a fixed-width hex string for Prometheus
// label values, grounded on the same label-vector pattern DMRHub's
// metrics.Metrics uses for its CounterVecs.
func apidLabel(apid uint16) string {
	return fmt.Sprintf("0x%03X", apid)
}

// Metrics holds the Prometheus CounterVecs this package exposes, built
// with prometheus.NewCounterVec and registered through registerOrReuse,
// which adopts an already-registered collector of the same name.
type Metrics struct {
	sentTotal      *prometheus.CounterVec
	receivedTotal  *prometheus.CounterVec
	duplicateTotal *prometheus.CounterVec
	micStatusTotal *prometheus.CounterVec
}

// NewMetrics builds and registers the per-APID counter vectors against
// the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		sentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccsds_packets_sent_total",
			Help: "Total Space Packets sent, by APID.",
		}, []string{"apid"}),
		receivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccsds_packets_received_total",
			Help: "Total Space Packets received, by APID.",
		}, []string{"apid"}),
		duplicateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccsds_packets_duplicate_total",
			Help: "Total duplicate Space Packet sequence counts observed, by APID.",
		}, []string{"apid"}),
		micStatusTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccsds_mic_status_total",
			Help: "Total MIC check outcomes, by APID and status.",
		}, []string{"apid", "status"}),
	}
	m.register()
	return m
}

// register installs each CounterVec against the default registry. A
// second Metrics built in the same process (every run of the decode CLI
// as a library call, or a test invoking it more than once) would
// otherwise panic on prometheus.MustRegister's duplicate-collector
// check; registerOrReuse instead adopts the collector already holding
// that name, the standard client_golang idiom for a constructor that
// may run more than once per process.
func (m *Metrics) register() {
	m.sentTotal = registerOrReuse(m.sentTotal)
	m.receivedTotal = registerOrReuse(m.receivedTotal)
	m.duplicateTotal = registerOrReuse(m.duplicateTotal)
	m.micStatusTotal = registerOrReuse(m.micStatusTotal)
}

func registerOrReuse(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}
