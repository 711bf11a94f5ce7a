// Package igmp implements IGMPv2 (RFC 2236) group membership tracking and
// report scheduling for the stack: sockets join and leave IPv4 multicast
// groups, membership queries from routers are answered with randomly delayed
// reports, and the link-layer multicast filter is kept in sync.
//
// Everything in this package runs in the stack's single processing context;
// see Engine for the threading rules.
package igmp

import (
	"encoding/binary"
	"fmt"

	"github.com/embeddednet/stack/pkg/common"
)

// IGMP message types.
const (
	TypeMembershipQuery    uint8 = 0x11 // Membership query (general or group-specific)
	TypeV1MembershipReport uint8 = 0x12 // IGMPv1 membership report
	TypeV2MembershipReport uint8 = 0x16 // IGMPv2 membership report
	TypeLeaveGroup         uint8 = 0x17 // IGMPv2 leave group
	TypeV3MembershipReport uint8 = 0x22 // IGMPv3 membership report
)

// MessageLength is the length of an IGMPv2 message (8 bytes).
const MessageLength = 8

// Message represents an IGMPv2 message.
type Message struct {
	Type        uint8              // Message type
	MaxRespTime uint8              // Max response time, in 100ms ticks
	Checksum    uint16             // Checksum over the 8-byte message
	Group       common.IPv4Address // Multicast group address (0 = general query)
}

// ParseMessage parses an IGMP message from bytes. IGMPv3 messages carry
// additional data past the fixed header; it is ignored here.
func ParseMessage(data []byte) (*Message, error) {
	if len(data) < MessageLength {
		return nil, fmt.Errorf("igmp message too short: %d bytes", len(data))
	}

	msg := &Message{
		Type:        data[0],
		MaxRespTime: data[1],
		Checksum:    binary.BigEndian.Uint16(data[2:4]),
	}
	copy(msg.Group[:], data[4:8])

	return msg, nil
}

// Serialize serializes the message to bytes, computing the checksum.
func (m *Message) Serialize() []byte {
	buf := make([]byte, MessageLength)
	m.SerializeInto(buf)
	return buf
}

// SerializeInto writes the message into buf, which must be at least
// MessageLength bytes, and computes the checksum over the message.
func (m *Message) SerializeInto(buf []byte) int {
	buf[0] = m.Type
	buf[1] = m.MaxRespTime
	buf[2] = 0
	buf[3] = 0
	copy(buf[4:8], m.Group[:])

	m.Checksum = common.CalculateChecksum(buf[:MessageLength])
	binary.BigEndian.PutUint16(buf[2:4], m.Checksum)

	return MessageLength
}

// String returns a string representation of the message.
func (m *Message) String() string {
	typeStr := "Unknown"
	switch m.Type {
	case TypeMembershipQuery:
		typeStr = "Query"
	case TypeV1MembershipReport:
		typeStr = "Report(v1)"
	case TypeV2MembershipReport:
		typeStr = "Report(v2)"
	case TypeLeaveGroup:
		typeStr = "Leave"
	case TypeV3MembershipReport:
		typeStr = "Report(v3)"
	}

	return fmt.Sprintf("IGMP{Type=%s, Group=%s, MaxRespTime=%d}",
		typeStr, m.Group, m.MaxRespTime)
}
