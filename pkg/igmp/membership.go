package igmp

import (
	"sync"
	"sync/atomic"

	"github.com/embeddednet/stack/pkg/common"
)

// Action selects what ModifyMembership does, mirroring the
// ADD_MEMBERSHIP/DROP_MEMBERSHIP socket options.
type Action uint8

const (
	// AddMembership joins the socket to the group.
	AddMembership Action = iota + 1
	// DropMembership removes the socket from the group.
	DropMembership
)

// GroupMembership is one socket's subscription to one multicast group. It
// lives in the socket's SocketGroups list and is created on join, destroyed
// on leave or socket close.
type GroupMembership struct {
	Group     common.IPv4Address
	Interface common.IPv4Address

	// report is the candidate descriptor carried through the join
	// transaction. Once the registry has settled ownership it is cleared;
	// a membership never keeps a descriptor reference afterwards.
	report *ReportDescriptor
}

// SocketGroups is a socket's list of joined multicast groups. Embed one in
// any socket type that supports multicast. Mutations happen only in the
// engine's processing context, but sockets read snapshots from their own
// goroutines, so the list guards itself.
type SocketGroups struct {
	mu          sync.Mutex
	memberships []*GroupMembership
}

// Groups returns a snapshot of the joined group addresses. Safe to call from
// any goroutine; socket close paths use it to drop every membership.
func (s *SocketGroups) Groups() []common.IPv4Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := make([]common.IPv4Address, 0, len(s.memberships))
	for _, m := range s.memberships {
		groups = append(groups, m.Group)
	}
	return groups
}

// Len returns the number of groups the socket is joined to.
func (s *SocketGroups) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memberships)
}

func (s *SocketGroups) find(group common.IPv4Address) (int, *GroupMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.memberships {
		if m.Group == group {
			return i, m
		}
	}
	return -1, nil
}

func (s *SocketGroups) add(m *GroupMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, m)
}

func (s *SocketGroups) remove(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships[:i], s.memberships[i+1:]...)
}

// MembershipRequest is one join or leave request for a socket.
type MembershipRequest struct {
	// Socket is the per-socket group list the request applies to.
	Socket *SocketGroups

	// Group is the multicast group address.
	Group common.IPv4Address

	// Interface is the local interface address for the membership.
	Interface common.IPv4Address

	// Report optionally carries a pre-allocated descriptor for a join. When
	// nil the engine allocates one. Either way the descriptor's fate is
	// decided by the registry: consumed on first join of the group,
	// discarded when the group was already tracked.
	Report *ReportDescriptor
}

// Membership accepts join/leave requests. Engine implements it for callers
// already inside the processing context; Runner implements it by marshaling
// the request into that context.
type Membership interface {
	ModifyMembership(req MembershipRequest, action Action)
}

// ModifyMembership joins or leaves a multicast group on behalf of a socket.
//
// Join: a socket joining a group twice is a no-op (the candidate descriptor,
// if any, is simply dropped). A genuinely new membership goes on the socket's
// list; if no other socket anywhere is joined to the group, the link filter
// learns the group's MAC and the registry schedules an unsolicited report.
// The registry's insert result then settles descriptor ownership: exactly one
// of {registry, this function} keeps the candidate, never both.
//
// Leave: removing a membership the socket doesn't hold is a no-op. Otherwise
// the membership comes off the socket's list and the registry entry loses one
// reference; when the last socket leaves, the entry dies and the link filter
// drops the group's MAC.
func (e *Engine) ModifyMembership(req MembershipRequest, action Action) {
	if action != AddMembership && action != DropMembership {
		return
	}
	if req.Socket == nil || !req.Group.IsMulticast() {
		return
	}

	idx, existing := req.Socket.find(req.Group)

	if action == DropMembership {
		if existing == nil {
			return
		}
		req.Socket.remove(idx)

		if e.registry.RemoveOrDecrement(req.Group) {
			// Last socket on this group anywhere in the stack.
			e.filter.RemoveMulticastMAC(common.MulticastMAC(req.Group))
		}
		atomic.AddUint64(&e.stats.GroupsLeft, 1)
		e.log.WithField("group", req.Group.String()).Debug("igmp: membership dropped")
		return
	}

	if existing != nil {
		// Already joined; the caller's candidate descriptor is dropped.
		return
	}

	m := &GroupMembership{
		Group:     req.Group,
		Interface: req.Interface,
		report:    req.Report,
	}
	if m.report == nil {
		m.report = &ReportDescriptor{}
	}
	m.report.Group = req.Group
	m.report.Interface = req.Interface
	req.Socket.add(m)

	if !e.registry.contains(req.Group) {
		// First join of this group stack-wide.
		e.filter.AddMulticastMAC(common.MulticastMAC(req.Group))
	}

	// The insert result is the single source of truth for descriptor
	// ownership. Consumed: the registry has it. Not consumed: the registry
	// bumped its existing entry and our candidate is garbage. Dropping the
	// reference is correct in both cases.
	e.registry.InsertOrBump(m.report)
	m.report = nil

	atomic.AddUint64(&e.stats.GroupsJoined, 1)
	e.log.WithField("group", req.Group.String()).Debug("igmp: membership added")
}

// DropAll removes every membership held by the socket, as on socket close.
func (e *Engine) DropAll(sock *SocketGroups) {
	if sock == nil {
		return
	}
	for _, group := range sock.Groups() {
		e.ModifyMembership(MembershipRequest{Socket: sock, Group: group}, DropMembership)
	}
}
