package igmp

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/embeddednet/stack/pkg/common"
	"github.com/embeddednet/stack/pkg/ethernet"
	"github.com/embeddednet/stack/pkg/ip"
)

var (
	testLocalIP  = common.IPv4Address{192, 168, 1, 50}
	testLocalMAC = common.MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	testGroup    = common.IPv4Address{239, 1, 2, 3}
	testGroup2   = common.IPv4Address{239, 1, 2, 4}
)

// captureFilter records link filter calls. Safe for concurrent use so runner
// tests can poll it from the test goroutine.
type captureFilter struct {
	mu      sync.Mutex
	added   []common.MACAddress
	removed []common.MACAddress
}

func (f *captureFilter) AddMulticastMAC(mac common.MACAddress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, mac)
}

func (f *captureFilter) RemoveMulticastMAC(mac common.MACAddress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, mac)
}

func (f *captureFilter) addCount(mac common.MACAddress) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.added {
		if m == mac {
			n++
		}
	}
	return n
}

func (f *captureFilter) removeCount(mac common.MACAddress) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.removed {
		if m == mac {
			n++
		}
	}
	return n
}

// captureOutput records transmitted frames. Safe for concurrent use.
type captureOutput struct {
	mu       sync.Mutex
	frames   [][]byte
	allPorts []bool
}

func (o *captureOutput) SendFrame(frame []byte, allPorts bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames = append(o.frames, frame)
	o.allPorts = append(o.allPorts, allPorts)
}

func (o *captureOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.frames)
}

func (o *captureOutput) frame(i int) []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames[i]
}

// emptyBuffers simulates an exhausted frame buffer pool.
type emptyBuffers struct{}

func (emptyBuffers) Acquire(int) []byte { return nil }
func (emptyBuffers) Release([]byte)     {}

// fixedRandom always returns v.
func fixedRandom(v uint32) RandomSource {
	return func() (uint32, bool) { return v, true }
}

// noRandom simulates a failed entropy source.
func noRandom() (uint32, bool) { return 0, false }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestEngine builds an engine wired to capture mocks.
func newTestEngine(random RandomSource) (*Engine, *captureFilter, *captureOutput) {
	filter := &captureFilter{}
	output := &captureOutput{}
	e := New(Config{
		LocalIP:  testLocalIP,
		LocalMAC: testLocalMAC,
		Filter:   filter,
		Output:   output,
		Random:   random,
		Logger:   quietLogger(),
	})
	return e, filter, output
}

func join(e *Engine, sock *SocketGroups, group common.IPv4Address) {
	e.ModifyMembership(MembershipRequest{
		Socket:    sock,
		Group:     group,
		Interface: testLocalIP,
	}, AddMembership)
}

func leave(e *Engine, sock *SocketGroups, group common.IPv4Address) {
	e.ModifyMembership(MembershipRequest{
		Socket: sock,
		Group:  group,
	}, DropMembership)
}

// buildIGMPFrame assembles a complete Ethernet frame carrying one IGMP
// message, the way a router or another host would put it on the wire.
func buildIGMPFrame(msgType uint8, group common.IPv4Address, maxResp uint8) []byte {
	msg := Message{Type: msgType, MaxRespTime: maxResp, Group: group}

	dst := group
	if dst.IsUnspecified() {
		dst = common.AllSystemsGroup
	}

	pkt := ip.NewPacket(common.IPv4Address{192, 168, 1, 1}, dst, common.ProtocolIGMP, msg.Serialize())
	pkt.TTL = 1
	payload, err := pkt.Serialize()
	if err != nil {
		panic(err)
	}

	frame := ethernet.NewFrame(
		common.MulticastMAC(dst),
		common.MACAddress{0x00, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE},
		common.EtherTypeIPv4,
		payload,
	)
	return frame.Serialize()
}

func generalQuery(maxResp uint8) []byte {
	return buildIGMPFrame(TypeMembershipQuery, common.IPv4Address{}, maxResp)
}
