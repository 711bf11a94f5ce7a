package ip

import (
	"bytes"
	"testing"

	"github.com/embeddednet/stack/pkg/common"
)

var (
	testSrc = common.IPv4Address{192, 168, 1, 10}
	testDst = common.IPv4Address{239, 1, 2, 3}
)

func TestSerializeParseRoundtrip(t *testing.T) {
	payload := []byte{0x16, 0x00, 0x00, 0x00, 0xEF, 0x01, 0x02, 0x03}
	pkt := NewPacket(testSrc, testDst, common.ProtocolIGMP, payload)
	pkt.TTL = 1
	pkt.Identification = 0x1234
	pkt.Flags = FlagDontFragment

	data, err := pkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Version != IPv4Version {
		t.Errorf("Version = %d, want %d", parsed.Version, IPv4Version)
	}
	if parsed.IHL != 5 {
		t.Errorf("IHL = %d, want 5", parsed.IHL)
	}
	if parsed.TTL != 1 {
		t.Errorf("TTL = %d, want 1", parsed.TTL)
	}
	if parsed.Identification != 0x1234 {
		t.Errorf("Identification = 0x%04x, want 0x1234", parsed.Identification)
	}
	if parsed.Flags&FlagDontFragment == 0 {
		t.Error("FlagDontFragment not set")
	}
	if parsed.Protocol != common.ProtocolIGMP {
		t.Errorf("Protocol = %v, want %v", parsed.Protocol, common.ProtocolIGMP)
	}
	if parsed.Source != testSrc {
		t.Errorf("Source = %v, want %v", parsed.Source, testSrc)
	}
	if parsed.Destination != testDst {
		t.Errorf("Destination = %v, want %v", parsed.Destination, testDst)
	}
	if !bytes.Equal(parsed.Payload, payload) {
		t.Errorf("Payload = %v, want %v", parsed.Payload, payload)
	}
}

func TestSerializeComputesChecksum(t *testing.T) {
	pkt := NewPacket(testSrc, testDst, common.ProtocolIGMP, []byte{0x01, 0x02})
	data, err := pkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if !VerifyChecksum(data[:MinHeaderLength]) {
		t.Error("VerifyChecksum(header) = false, want true")
	}
	if pkt.Checksum == 0 {
		t.Error("Checksum = 0 after Serialize, want computed value")
	}
}

func TestSerializeIntoWithoutChecksum(t *testing.T) {
	pkt := NewPacket(testSrc, testDst, common.ProtocolIGMP, []byte{0x01, 0x02})
	buf := make([]byte, MinHeaderLength+2)
	if _, err := pkt.SerializeInto(buf, false); err != nil {
		t.Fatalf("SerializeInto() error = %v", err)
	}
	if buf[10] != 0 || buf[11] != 0 {
		t.Errorf("checksum field = %02x%02x, want 0000 for offload", buf[10], buf[11])
	}
}

func TestParseToleratesEthernetPadding(t *testing.T) {
	payload := []byte{0x16, 0x00, 0x00, 0x00, 0xEF, 0x01, 0x02, 0x03}
	pkt := NewPacket(testSrc, testDst, common.ProtocolIGMP, payload)
	data, err := pkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	// A 28-byte packet arrives inside a 46-byte minimum Ethernet payload.
	padded := append(data, make([]byte, 18)...)

	parsed, err := Parse(padded)
	if err != nil {
		t.Fatalf("Parse(padded) error = %v", err)
	}
	if len(parsed.Payload) != len(payload) {
		t.Errorf("len(Payload) = %d, want %d (padding must not leak in)", len(parsed.Payload), len(payload))
	}
}

func TestParseSkipsOptions(t *testing.T) {
	// Hand-built header with IHL=6 (one 4-byte option word).
	payload := []byte{0xAA, 0xBB}
	data := make([]byte, 24+len(payload))
	data[0] = (IPv4Version << 4) | 6
	data[2] = 0
	data[3] = byte(len(data))
	data[8] = 64
	data[9] = uint8(common.ProtocolIGMP)
	copy(data[12:16], testSrc[:])
	copy(data[16:20], testDst[:])
	copy(data[24:], payload)

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !bytes.Equal(parsed.Payload, payload) {
		t.Errorf("Payload = %v, want %v", parsed.Payload, payload)
	}
}

func TestParseErrors(t *testing.T) {
	valid, err := NewPacket(testSrc, testDst, common.ProtocolIGMP, []byte{0x01, 0x02}).Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"too short", func(d []byte) []byte { return d[:MinHeaderLength-1] }},
		{"bad version", func(d []byte) []byte { d[0] = (6 << 4) | 5; return d }},
		{"bad IHL", func(d []byte) []byte { d[0] = (IPv4Version << 4) | 4; return d }},
		{"total length past data", func(d []byte) []byte { d[2] = 0xFF; d[3] = 0xFF; return d }},
		{"total length inside header", func(d []byte) []byte { d[2] = 0; d[3] = 10; return d }},
	}
	for _, tt := range tests {
		data := append([]byte{}, valid...)
		if _, err := Parse(tt.mutate(data)); err == nil {
			t.Errorf("Parse(%s) error = nil, want error", tt.name)
		}
	}
}

func TestIsFragment(t *testing.T) {
	pkt := NewPacket(testSrc, testDst, common.ProtocolIGMP, nil)
	if pkt.IsFragment() {
		t.Error("IsFragment() = true for whole packet, want false")
	}
	pkt.Flags = FlagMoreFragments
	if !pkt.IsFragment() {
		t.Error("IsFragment() = false with MF set, want true")
	}
	pkt.Flags = 0
	pkt.FragmentOffset = 8
	if !pkt.IsFragment() {
		t.Error("IsFragment() = false with nonzero offset, want true")
	}
}
