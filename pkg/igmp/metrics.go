package igmp

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterMetrics exposes the engine's counters on a Prometheus registerer.
// The collectors load the counters atomically, so scrapes may run at any
// time, concurrently with the processing context.
func RegisterMetrics(reg prometheus.Registerer, e *Engine) error {
	counters := []struct {
		name string
		help string
		read func() uint64
	}{
		{"queries_received_total", "Membership queries received.", func() uint64 { return atomic.LoadUint64(&e.stats.QueriesReceived) }},
		{"reports_received_total", "Membership reports received from other hosts.", func() uint64 { return atomic.LoadUint64(&e.stats.ReportsReceived) }},
		{"reports_sent_total", "Membership reports transmitted.", func() uint64 { return atomic.LoadUint64(&e.stats.ReportsSent) }},
		{"sends_skipped_total", "Report cycles skipped due to buffer exhaustion.", func() uint64 { return atomic.LoadUint64(&e.stats.SendsSkipped) }},
		{"frames_discarded_total", "Inbound frames discarded as short or malformed.", func() uint64 { return atomic.LoadUint64(&e.stats.FramesDiscarded) }},
		{"groups_joined_total", "Socket join operations applied.", func() uint64 { return atomic.LoadUint64(&e.stats.GroupsJoined) }},
		{"groups_left_total", "Socket leave operations applied.", func() uint64 { return atomic.LoadUint64(&e.stats.GroupsLeft) }},
	}

	for _, c := range counters {
		read := c.read
		collector := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "stack",
			Subsystem: "igmp",
			Name:      c.name,
			Help:      c.help,
		}, func() float64 { return float64(read()) })
		if err := reg.Register(collector); err != nil {
			return err
		}
	}

	return nil
}
