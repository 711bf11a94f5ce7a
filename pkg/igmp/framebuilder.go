package igmp

import (
	"encoding/binary"
	"errors"

	"github.com/embeddednet/stack/pkg/common"
	"github.com/embeddednet/stack/pkg/ethernet"
	"github.com/embeddednet/stack/pkg/ip"
)

// ErrNoBuffer is returned when the frame buffer pool is exhausted. The caller
// skips the frame; nothing is retried.
var ErrNoBuffer = errors.New("igmp: no network buffer available")

const (
	// reportTTL is the TTL of every outbound IGMP packet. Reports must never
	// leave the local subnet.
	reportTTL = 1

	// reportIPID is the fixed IPv4 identification stamped on reports. The
	// stack never fragments IGMP frames, so the field carries no meaning.
	reportIPID = 0x1234
)

// FrameBuilder constructs outbound IGMP frames: Ethernet header, option-less
// IPv4 header and the 8-byte IGMP message, checksummed and padded to the
// minimum Ethernet frame size. Output is deterministic given the inputs.
type FrameBuilder struct {
	LocalIP  common.IPv4Address
	LocalMAC common.MACAddress

	// ChecksumOffload leaves the IPv4 header checksum zero for hardware
	// that fills it in on transmit. The IGMP checksum is always computed;
	// no common MAC offloads it.
	ChecksumOffload bool

	Buffers FrameBuffers
}

// BuildReport builds a report (or query, for diagnostic senders) frame for
// the group. Destination addressing follows IGMPv2: the packet goes to the
// group itself, with the derived multicast MAC. The returned buffer comes
// from the builder's pool and is owned by the caller.
func (b *FrameBuilder) BuildReport(group common.IPv4Address, respTime uint8, msgType uint8) ([]byte, error) {
	buf := b.Buffers.Acquire(ethernet.MinFrameSize)
	if buf == nil {
		return nil, ErrNoBuffer
	}

	// IGMP message, checksummed over its own 8 bytes.
	var msgBuf [MessageLength]byte
	msg := Message{Type: msgType, MaxRespTime: respTime, Group: group}
	msg.SerializeInto(msgBuf[:])

	pkt := ip.Packet{
		Version:        ip.IPv4Version,
		IHL:            5,
		Identification: reportIPID,
		Flags:          ip.FlagDontFragment,
		TTL:            reportTTL,
		Protocol:       common.ProtocolIGMP,
		Source:         b.LocalIP,
		Destination:    group,
		Payload:        msgBuf[:],
	}
	if _, err := pkt.SerializeInto(buf[ethernet.HeaderSize:], !b.ChecksumOffload); err != nil {
		b.Buffers.Release(buf)
		return nil, err
	}

	dst := common.MulticastMAC(group)
	copy(buf[0:6], dst[:])
	copy(buf[6:12], b.LocalMAC[:])
	binary.BigEndian.PutUint16(buf[12:14], uint16(common.EtherTypeIPv4))

	// Padding up to the minimum frame size is already zero: pool buffers
	// are handed out cleared.
	return buf, nil
}
