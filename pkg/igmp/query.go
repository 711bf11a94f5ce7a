package igmp

import (
	"sync/atomic"

	"github.com/embeddednet/stack/pkg/common"
	"github.com/embeddednet/stack/pkg/ethernet"
	"github.com/embeddednet/stack/pkg/ip"
)

// MinFrameLength is the smallest frame that can carry an IGMP message:
// Ethernet header + minimal IPv4 header + IGMP message.
const MinFrameLength = ethernet.HeaderSize + ip.MinHeaderLength + MessageLength

// ProcessFrame inspects one inbound Ethernet frame. IGMP never answers a
// frame synchronously, so the caller always gets its buffer back: the engine
// keeps no reference to data once ProcessFrame returns.
//
// Malformed or short frames are discarded without touching header fields;
// hostile input must never crash the stack.
func (e *Engine) ProcessFrame(data []byte) {
	if len(data) < MinFrameLength {
		atomic.AddUint64(&e.stats.FramesDiscarded, 1)
		return
	}

	frame, err := ethernet.Parse(data)
	if err != nil || frame.EtherType != common.EtherTypeIPv4 {
		atomic.AddUint64(&e.stats.FramesDiscarded, 1)
		return
	}

	pkt, err := ip.Parse(frame.Payload)
	if err != nil || pkt.Protocol != common.ProtocolIGMP {
		atomic.AddUint64(&e.stats.FramesDiscarded, 1)
		return
	}

	msg, err := ParseMessage(pkt.Payload)
	if err != nil {
		atomic.AddUint64(&e.stats.FramesDiscarded, 1)
		return
	}

	switch msg.Type {
	case TypeMembershipQuery:
		atomic.AddUint64(&e.stats.QueriesReceived, 1)
		if msg.Group.IsUnspecified() {
			e.log.WithField("maxRespTime", msg.MaxRespTime).Debug("igmp: general query")
			e.rescheduleAll(msg.MaxRespTime)
		}
		// Group-specific queries are classified and counted but trigger no
		// per-group rescheduling: pending reports answer general queries
		// only.

	case TypeV1MembershipReport, TypeV2MembershipReport, TypeV3MembershipReport:
		// Another host answered; counted for observability, nothing to do.
		atomic.AddUint64(&e.stats.ReportsReceived, 1)

	default:
		// Unknown types (including leave-group, which only routers act on)
		// are ignored.
	}
}

// rescheduleAll re-randomizes pending report countdowns for a general query.
//
// An entry whose countdown is 0 is unscheduled and gets a fresh delay. An
// entry scheduled at or past the query's max response time also gets a fresh
// delay, pulled inside the new deadline. An entry already due to fire sooner
// is left alone: a host must not postpone an earlier report just because
// another query arrived.
func (e *Engine) rescheduleAll(maxRespTime uint8) {
	chooser := newDelayChooser(e.random)
	e.registry.forEach(func(d *ReportDescriptor) {
		if d.Countdown == 0 || d.Countdown >= maxRespTime {
			d.Countdown = chooser.Choose(maxRespTime)
		}
	})
}
