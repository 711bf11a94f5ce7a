package igmp

import (
	"sync/atomic"
	"time"
)

// TickInterval is the protocol tick period. Countdowns are measured in these
// ticks, matching the 100ms units of the max-response-time field in queries.
// The period is a deployment constant, not runtime-negotiable.
const TickInterval = 100 * time.Millisecond

// Tick advances every scheduled report by one tick and transmits the ones
// that come due. Invoked by the stack's timer at TickInterval; the sweep is
// linear in the number of joined groups, which on an embedded target is
// small.
func (e *Engine) Tick() {
	e.registry.forEach(func(d *ReportDescriptor) {
		if d.Countdown == 0 {
			// Not scheduled.
			return
		}
		d.Countdown--
		if d.Countdown == 0 {
			e.sendReport(d)
		}
	})
}

// sendReport emits one IGMPv2 membership report for the descriptor's group,
// addressed to that same group. A buffer-pool miss skips this report cycle;
// the countdown has already reached 0 and is not rescheduled, which is fine
// for a best-effort protocol: the next query will ask again.
func (e *Engine) sendReport(d *ReportDescriptor) {
	frame, err := e.builder.BuildReport(d.Group, 0, TypeV2MembershipReport)
	if err != nil {
		atomic.AddUint64(&e.stats.SendsSkipped, 1)
		e.log.WithField("group", d.Group.String()).Warn("igmp: report skipped, no frame buffer")
		return
	}

	e.output.SendFrame(frame, true)
	atomic.AddUint64(&e.stats.ReportsSent, 1)
	e.log.WithField("group", d.Group.String()).Debug("igmp: membership report sent")
}
