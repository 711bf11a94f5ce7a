package igmp

import (
	"github.com/embeddednet/stack/pkg/common"
)

// ReportDescriptor tracks the report scheduling state of one joined
// multicast group. Exactly one descriptor exists per distinct group address;
// SocketCount records how many sockets are joined to it.
//
// A descriptor is created by the membership path and handed to the registry
// with InsertOrBump. From then on ownership follows the insert result: the
// registry owns a consumed descriptor until the last leave destroys it, while
// a rejected descriptor stays with the caller, who must drop it.
type ReportDescriptor struct {
	Group       common.IPv4Address // multicast group address, the dedup key
	Interface   common.IPv4Address // local interface address
	SocketCount int                // sockets currently joined to this group
	Countdown   uint8              // ticks until the report fires; 0 = not scheduled
}

// InsertResult tells the caller of InsertOrBump who owns the descriptor
// afterwards.
type InsertResult int

const (
	// ReportNotConsumed means the registry already tracked the group and
	// only bumped its socket count. The caller keeps ownership of the
	// descriptor it passed in and must discard it.
	ReportNotConsumed InsertResult = iota

	// ReportConsumed means the registry appended the descriptor and now
	// owns it. The caller must not touch it again.
	ReportConsumed
)

// Registry is the stack-wide collection of report descriptors, one per
// joined multicast group. Entries keep insertion order; the order carries no
// scheduling meaning but traversal must be stable.
//
// The registry is not safe for concurrent use: like the rest of the engine it
// lives in the stack's single processing context.
type Registry struct {
	entries []*ReportDescriptor
	chooser *delayChooser
}

// NewRegistry creates an empty registry drawing unsolicited-report delays
// from the given random source.
func NewRegistry(random RandomSource) *Registry {
	if random == nil {
		random = defaultRandomSource
	}
	return &Registry{chooser: newDelayChooser(random)}
}

// InsertOrBump records one more socket membership for the descriptor's group.
//
// If the group is already present, its socket count is incremented and
// ReportNotConsumed is returned: the registry never holds two entries for one
// group, and the caller still owns (and must discard) the descriptor.
//
// Otherwise the descriptor is appended with a socket count of 1 and a
// countdown in the unsolicited window, so the first report goes out shortly
// after the join instead of waiting for the next general query. The registry
// takes ownership and returns ReportConsumed.
func (r *Registry) InsertOrBump(d *ReportDescriptor) InsertResult {
	for _, e := range r.entries {
		if e.Group == d.Group {
			e.SocketCount++
			return ReportNotConsumed
		}
	}

	d.SocketCount = 1
	d.Countdown = r.chooser.ChooseUnsolicited()
	r.entries = append(r.entries, d)
	return ReportConsumed
}

// RemoveOrDecrement records one socket leaving the group. When the last
// socket leaves, the entry is detached and destroyed and true is returned.
// A lookup miss is the expected case for a group that was never joined (or
// already fully left) and is a no-op; the call is idempotent.
func (r *Registry) RemoveOrDecrement(group common.IPv4Address) bool {
	for i, e := range r.entries {
		if e.Group != group {
			continue
		}
		if e.SocketCount > 0 {
			e.SocketCount--
		}
		if e.SocketCount == 0 {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
		return false
	}
	return false
}

// contains reports whether the group has a registry entry.
func (r *Registry) contains(group common.IPv4Address) bool {
	for _, e := range r.entries {
		if e.Group == group {
			return true
		}
	}
	return false
}

// lookup returns the entry for the group, or nil.
func (r *Registry) lookup(group common.IPv4Address) *ReportDescriptor {
	for _, e := range r.entries {
		if e.Group == group {
			return e
		}
	}
	return nil
}

// forEach visits every entry in insertion order. The callback may mutate the
// descriptor's scheduling state in place but must not insert or remove
// entries.
func (r *Registry) forEach(fn func(*ReportDescriptor)) {
	for _, e := range r.entries {
		fn(e)
	}
}

// Len returns the number of joined groups.
func (r *Registry) Len() int {
	return len(r.entries)
}
