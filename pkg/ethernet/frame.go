// Package ethernet implements Ethernet frame handling for Layer 2 communication.
package ethernet

import (
	"encoding/binary"
	"fmt"

	"github.com/embeddednet/stack/pkg/common"
)

// Ethernet frame format (IEEE 802.3):
// +-------------------+-------------------+----------+---------+-----+
// | Destination (6B)  | Source (6B)       | Type (2B)| Payload | FCS |
// +-------------------+-------------------+----------+---------+-----+
//
// The FCS is handled by the network hardware and never appears here.

const (
	// HeaderSize is the size of an Ethernet header (14 bytes).
	HeaderSize = 14

	// MinFrameSize is the minimum Ethernet frame size excluding FCS (60 bytes).
	MinFrameSize = 60

	// MaxFrameSize is the maximum Ethernet frame size excluding FCS (1514 bytes).
	MaxFrameSize = 1514

	// MinPayloadSize is the minimum payload size (46 bytes).
	MinPayloadSize = 46

	// MaxPayloadSize is the maximum payload size (1500 bytes, MTU).
	MaxPayloadSize = 1500
)

// Frame represents an Ethernet II frame.
type Frame struct {
	Destination common.MACAddress
	Source      common.MACAddress
	EtherType   common.EtherType
	Payload     []byte
}

// Parse parses an Ethernet frame from raw bytes. The payload slice aliases
// the input; callers that release the underlying buffer must not hold on to
// the frame afterwards.
func Parse(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("ethernet frame too short: %d bytes", len(data))
	}

	frame := &Frame{}
	copy(frame.Destination[:], data[0:6])
	copy(frame.Source[:], data[6:12])
	frame.EtherType = common.EtherType(binary.BigEndian.Uint16(data[12:14]))
	frame.Payload = data[HeaderSize:]

	return frame, nil
}

// Serialize converts the frame to bytes for transmission, padding the payload
// with zeros up to the minimum frame size if necessary.
func (f *Frame) Serialize() []byte {
	frame := make([]byte, f.Size())
	f.SerializeInto(frame)
	return frame
}

// SerializeInto writes the frame into buf, which must be at least Size()
// bytes long. Padding bytes are assumed already zero (pool buffers are handed
// out zeroed). It returns the number of bytes that make up the frame.
func (f *Frame) SerializeInto(buf []byte) int {
	copy(buf[0:6], f.Destination[:])
	copy(buf[6:12], f.Source[:])
	binary.BigEndian.PutUint16(buf[12:14], uint16(f.EtherType))
	copy(buf[HeaderSize:], f.Payload)
	return f.Size()
}

// Size returns the total size of the serialized frame in bytes.
func (f *Frame) Size() int {
	size := HeaderSize + len(f.Payload)
	if len(f.Payload) < MinPayloadSize {
		size = HeaderSize + MinPayloadSize
	}
	return size
}

// String returns a human-readable representation of the frame.
func (f *Frame) String() string {
	return fmt.Sprintf("Ethernet{Dst=%s, Src=%s, Type=%s, PayloadLen=%d}",
		f.Destination, f.Source, f.EtherType, len(f.Payload))
}

// IsBroadcast returns true if this is a broadcast frame.
func (f *Frame) IsBroadcast() bool {
	return f.Destination.IsBroadcast()
}

// IsMulticast returns true if this is a multicast frame.
func (f *Frame) IsMulticast() bool {
	return f.Destination.IsMulticast()
}

// NewFrame creates a new Ethernet frame.
func NewFrame(dst, src common.MACAddress, etherType common.EtherType, payload []byte) *Frame {
	return &Frame{
		Destination: dst,
		Source:      src,
		EtherType:   etherType,
		Payload:     payload,
	}
}
