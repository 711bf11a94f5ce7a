// Package ip implements the IPv4 header handling needed by the stack's
// link-local protocols, as defined in RFC 791.
package ip

import (
	"encoding/binary"
	"fmt"

	"github.com/embeddednet/stack/pkg/common"
)

const (
	// IPv4Version is the version number for IPv4.
	IPv4Version = 4

	// MinHeaderLength is the minimum IPv4 header length (20 bytes).
	MinHeaderLength = 20

	// MaxPacketSize is the maximum IPv4 packet size (64KB).
	MaxPacketSize = 65535

	// DefaultTTL is the default Time To Live value.
	DefaultTTL = 64
)

// IPv4Flags represents the flags in the IPv4 header.
type IPv4Flags uint8

const (
	// FlagDontFragment indicates that the packet should not be fragmented.
	FlagDontFragment IPv4Flags = 1 << 1

	// FlagMoreFragments indicates that more fragments follow.
	FlagMoreFragments IPv4Flags = 1 << 0
)

// Packet represents an IPv4 packet. This stack only ever emits option-less
// headers; on the parse side options are tolerated and skipped via the IHL.
type Packet struct {
	Version        uint8              // 4 bits: IP version (should be 4)
	IHL            uint8              // 4 bits: Internet Header Length (in 32-bit words)
	DSCP           uint8              // 6 bits: Differentiated Services Code Point
	ECN            uint8              // 2 bits: Explicit Congestion Notification
	TotalLength    uint16             // Total packet length (header + data)
	Identification uint16             // Fragment identification
	Flags          IPv4Flags          // Flags (DF, MF)
	FragmentOffset uint16             // Fragment offset (in 8-byte blocks)
	TTL            uint8              // Time To Live
	Protocol       common.Protocol    // Protocol (IGMP, UDP, etc.)
	Checksum       uint16             // Header checksum
	Source         common.IPv4Address // Source IP address
	Destination    common.IPv4Address // Destination IP address

	// Payload
	Payload []byte
}

// Parse parses an IPv4 packet from raw bytes. The payload slice aliases the
// input. Trailing bytes beyond TotalLength (Ethernet padding) are ignored.
func Parse(data []byte) (*Packet, error) {
	if len(data) < MinHeaderLength {
		return nil, fmt.Errorf("packet too short: %d bytes (minimum %d)", len(data), MinHeaderLength)
	}

	pkt := &Packet{}

	versionIHL := data[0]
	pkt.Version = versionIHL >> 4
	pkt.IHL = versionIHL & 0x0F

	if pkt.Version != IPv4Version {
		return nil, fmt.Errorf("invalid IP version: %d (expected %d)", pkt.Version, IPv4Version)
	}
	if pkt.IHL < 5 {
		return nil, fmt.Errorf("invalid IHL: %d (minimum 5)", pkt.IHL)
	}

	headerLength := int(pkt.IHL) * 4
	if len(data) < headerLength {
		return nil, fmt.Errorf("packet too short for header: %d bytes (expected %d)", len(data), headerLength)
	}

	dscpECN := data[1]
	pkt.DSCP = dscpECN >> 2
	pkt.ECN = dscpECN & 0x03

	pkt.TotalLength = binary.BigEndian.Uint16(data[2:4])
	if int(pkt.TotalLength) > len(data) {
		return nil, fmt.Errorf("total length mismatch: header says %d, got %d bytes", pkt.TotalLength, len(data))
	}
	if int(pkt.TotalLength) < headerLength {
		return nil, fmt.Errorf("total length %d shorter than header %d", pkt.TotalLength, headerLength)
	}

	pkt.Identification = binary.BigEndian.Uint16(data[4:6])

	flagsFragOffset := binary.BigEndian.Uint16(data[6:8])
	pkt.Flags = IPv4Flags(flagsFragOffset >> 13)
	pkt.FragmentOffset = flagsFragOffset & 0x1FFF

	pkt.TTL = data[8]
	pkt.Protocol = common.Protocol(data[9])
	pkt.Checksum = binary.BigEndian.Uint16(data[10:12])
	copy(pkt.Source[:], data[12:16])
	copy(pkt.Destination[:], data[16:20])

	// Options (IHL > 5) are skipped, not interpreted.
	pkt.Payload = data[headerLength:pkt.TotalLength]

	return pkt, nil
}

// Serialize converts the packet to bytes, computing the header checksum.
func (p *Packet) Serialize() ([]byte, error) {
	buf := make([]byte, MinHeaderLength+len(p.Payload))
	if _, err := p.SerializeInto(buf, true); err != nil {
		return nil, err
	}
	return buf, nil
}

// SerializeInto writes the packet into buf, which must hold the 20-byte
// header plus the payload. When withChecksum is false the header checksum is
// left zero for link layers that offload it. It returns the packet length.
func (p *Packet) SerializeInto(buf []byte, withChecksum bool) (int, error) {
	p.IHL = 5
	totalLength := MinHeaderLength + len(p.Payload)
	if totalLength > MaxPacketSize {
		return 0, fmt.Errorf("packet too large: %d bytes (maximum %d)", totalLength, MaxPacketSize)
	}
	if len(buf) < totalLength {
		return 0, fmt.Errorf("buffer too small: %d bytes (need %d)", len(buf), totalLength)
	}
	p.TotalLength = uint16(totalLength)

	buf[0] = (p.Version << 4) | p.IHL
	buf[1] = (p.DSCP << 2) | p.ECN
	binary.BigEndian.PutUint16(buf[2:4], p.TotalLength)
	binary.BigEndian.PutUint16(buf[4:6], p.Identification)

	flagsFragOffset := (uint16(p.Flags) << 13) | (p.FragmentOffset & 0x1FFF)
	binary.BigEndian.PutUint16(buf[6:8], flagsFragOffset)

	buf[8] = p.TTL
	buf[9] = uint8(p.Protocol)

	// Checksum field must be zero while summing
	buf[10] = 0
	buf[11] = 0

	copy(buf[12:16], p.Source[:])
	copy(buf[16:20], p.Destination[:])

	if withChecksum {
		p.Checksum = common.CalculateChecksum(buf[:MinHeaderLength])
		binary.BigEndian.PutUint16(buf[10:12], p.Checksum)
	} else {
		p.Checksum = 0
	}

	copy(buf[MinHeaderLength:], p.Payload)

	return totalLength, nil
}

// VerifyChecksum verifies the IP header checksum of a raw header slice.
func VerifyChecksum(header []byte) bool {
	return common.VerifyChecksum(header)
}

// IsFragment returns true if this packet is a fragment.
func (p *Packet) IsFragment() bool {
	return p.FragmentOffset != 0 || (p.Flags&FlagMoreFragments) != 0
}

// String returns a human-readable representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("IPv4{%s -> %s, Proto=%s, TTL=%d, ID=%d, Len=%d}",
		p.Source, p.Destination, p.Protocol, p.TTL, p.Identification, p.TotalLength)
}

// NewPacket creates a new IPv4 packet with default values.
func NewPacket(src, dst common.IPv4Address, protocol common.Protocol, payload []byte) *Packet {
	return &Packet{
		Version:     IPv4Version,
		IHL:         5,
		TTL:         DefaultTTL,
		Protocol:    protocol,
		Source:      src,
		Destination: dst,
		Payload:     payload,
	}
}
