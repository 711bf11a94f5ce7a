// Package udp provides the socket surface of the stack. Datagram delivery
// itself lives elsewhere; what this package owns is socket identity, binding
// and the multicast membership calls that mirror the classic
// ADD_MEMBERSHIP/DROP_MEMBERSHIP socket options.
package udp

import (
	"fmt"
	"sync"

	"github.com/embeddednet/stack/pkg/common"
	"github.com/embeddednet/stack/pkg/igmp"
)

// Address represents a UDP endpoint (IP address and port).
type Address struct {
	IP   common.IPv4Address
	Port uint16
}

// String returns a human-readable representation of the address.
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// Socket represents a UDP socket. The mutex guards the socket's own state;
// the multicast group list is mutated by the membership engine inside its
// processing context and guards its own snapshot reads.
type Socket struct {
	localAddr Address
	bound     bool
	closed    bool
	mu        sync.Mutex

	// groups is this socket's multicast membership list.
	groups igmp.SocketGroups

	// membership is where join/leave requests go. Remembered from the
	// first join so Close can drop everything.
	membership igmp.Membership
}

// NewSocket creates a new UDP socket.
func NewSocket() *Socket {
	return &Socket{}
}

// Bind binds the socket to a local address and port.
func (s *Socket) Bind(addr Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bound {
		return fmt.Errorf("socket already bound to %s", s.localAddr)
	}
	if s.closed {
		return fmt.Errorf("socket is closed")
	}

	s.localAddr = addr
	s.bound = true
	return nil
}

// LocalAddr returns the local address this socket is bound to.
func (s *Socket) LocalAddr() (Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bound {
		return Address{}, fmt.Errorf("socket not bound")
	}
	return s.localAddr, nil
}

// JoinGroup subscribes the socket to an IPv4 multicast group via the given
// membership engine (an igmp.Engine when the caller is already on the stack
// task, an igmp.Runner from anywhere else). Joining a group twice is a no-op.
func (s *Socket) JoinGroup(m igmp.Membership, group, ifaceIP common.IPv4Address) error {
	if !group.IsMulticast() {
		return fmt.Errorf("not a multicast address: %s", group)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("socket is closed")
	}
	s.membership = m
	s.mu.Unlock()

	m.ModifyMembership(igmp.MembershipRequest{
		Socket:    &s.groups,
		Group:     group,
		Interface: ifaceIP,
	}, igmp.AddMembership)
	return nil
}

// LeaveGroup unsubscribes the socket from a multicast group. Leaving a group
// the socket never joined is a no-op.
func (s *Socket) LeaveGroup(m igmp.Membership, group common.IPv4Address) error {
	if !group.IsMulticast() {
		return fmt.Errorf("not a multicast address: %s", group)
	}

	m.ModifyMembership(igmp.MembershipRequest{
		Socket: &s.groups,
		Group:  group,
	}, igmp.DropMembership)
	return nil
}

// Groups returns the multicast groups the socket is joined to.
func (s *Socket) Groups() []common.IPv4Address {
	return s.groups.Groups()
}

// Close closes the socket, dropping every multicast membership it holds.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("socket already closed")
	}
	s.closed = true
	m := s.membership
	s.mu.Unlock()

	if m != nil {
		for _, group := range s.groups.Groups() {
			m.ModifyMembership(igmp.MembershipRequest{
				Socket: &s.groups,
				Group:  group,
			}, igmp.DropMembership)
		}
	}
	return nil
}

// IsClosed returns true if the socket is closed.
func (s *Socket) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
