//go:build linux

package ethernet

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/embeddednet/stack/pkg/common"
)

// Interface represents a network interface for sending and receiving Ethernet
// frames. It implements the transmit and link-layer multicast filter
// boundaries used by the IGMP engine.
type Interface struct {
	name       string
	fd         int               // Raw socket file descriptor
	macAddress common.MACAddress // Hardware address of this interface
	index      int               // Interface index
}

// OpenInterface opens a network interface for raw packet capture and
// transmission. This requires root/sudo privileges on Linux.
//
// The ifname parameter is the name of the network interface (e.g., "eth0").
func OpenInterface(ifname string) (*Interface, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("failed to get interface %s: %w", ifname, err)
	}

	if len(iface.HardwareAddr) != 6 {
		return nil, fmt.Errorf("invalid MAC address length: %d", len(iface.HardwareAddr))
	}
	var mac common.MACAddress
	copy(mac[:], iface.HardwareAddr)

	// AF_PACKET + SOCK_RAW gives device-level access to whole frames.
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("failed to create raw socket: %w (you may need root/sudo)", err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind socket to interface: %w", err)
	}

	return &Interface{
		name:       ifname,
		fd:         fd,
		macAddress: mac,
		index:      iface.Index,
	}, nil
}

// Close closes the network interface.
func (i *Interface) Close() error {
	if i.fd >= 0 {
		return unix.Close(i.fd)
	}
	return nil
}

// Name returns the interface name.
func (i *Interface) Name() string {
	return i.name
}

// MACAddress returns the hardware address of this interface.
func (i *Interface) MACAddress() common.MACAddress {
	return i.macAddress
}

// Index returns the interface index.
func (i *Interface) Index() int {
	return i.index
}

// ReadFrame reads one raw Ethernet frame from the interface. This is a
// blocking call that waits for incoming packets.
func (i *Interface) ReadFrame(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(i.fd, buf, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to receive packet: %w", err)
	}
	return n, nil
}

// SendFrame transmits a serialized Ethernet frame. The allPorts flag is
// accepted for parity with multi-port MACs; a single-port interface has
// nothing to fan out to, so it is ignored here. Transmission is fire and
// forget: failures are not reported to the protocol layer.
func (i *Interface) SendFrame(frame []byte, allPorts bool) {
	_ = allPorts

	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  i.index,
		Halen:    6,
	}
	copy(addr.Addr[:], frame[0:6])

	_ = unix.Sendto(i.fd, frame, 0, &addr)
}

// AddMulticastMAC asks the hardware filter to accept frames sent to the given
// multicast MAC address. Best effort: errors are swallowed, matching the
// driver boundary of the embedded stack.
func (i *Interface) AddMulticastMAC(mac common.MACAddress) {
	_ = i.setMembership(unix.PACKET_ADD_MEMBERSHIP, mac)
}

// RemoveMulticastMAC asks the hardware filter to stop accepting frames sent
// to the given multicast MAC address. Best effort.
func (i *Interface) RemoveMulticastMAC(mac common.MACAddress) {
	_ = i.setMembership(unix.PACKET_DROP_MEMBERSHIP, mac)
}

func (i *Interface) setMembership(op int, mac common.MACAddress) error {
	mreq := unix.PacketMreq{
		Ifindex: int32(i.index),
		Type:    unix.PACKET_MR_MULTICAST,
		Alen:    6,
	}
	copy(mreq.Address[:], mac[:])
	return unix.SetsockoptPacketMreq(i.fd, unix.SOL_PACKET, op, &mreq)
}

// htons converts a 16-bit integer from host byte order to network byte order.
func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

// ListInterfaces returns the names of all usable network interfaces.
func ListInterfaces() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		// Skip loopback and down interfaces
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		names = append(names, iface.Name)
	}

	return names, nil
}
