package igmp

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/embeddednet/stack/pkg/common"
)

// LinkFilter is the link-layer multicast filter boundary. Both calls are best
// effort; the engine never consumes a result from the driver.
type LinkFilter interface {
	AddMulticastMAC(mac common.MACAddress)
	RemoveMulticastMAC(mac common.MACAddress)
}

// Transmitter is the outbound frame boundary. SendFrame takes ownership of
// the frame buffer and is fire and forget from the engine's perspective.
// allPorts asks a multi-port MAC to flood the frame out of every port.
type Transmitter interface {
	SendFrame(frame []byte, allPorts bool)
}

// FrameBuffers is the network buffer manager boundary. Acquire returns a
// zeroed buffer or nil when the pool is exhausted; a nil buffer means the
// frame is skipped for this cycle.
type FrameBuffers interface {
	Acquire(size int) []byte
	Release(buf []byte)
}

// Config carries the engine's collaborators and local addressing. Zero-value
// fields get working defaults from New.
type Config struct {
	// LocalIP is the source address stamped on outbound reports.
	LocalIP common.IPv4Address

	// LocalMAC is the source hardware address for outbound frames.
	LocalMAC common.MACAddress

	// Filter is the link-layer multicast filter. Optional; defaults to a
	// no-op filter (useful on interfaces running promiscuous).
	Filter LinkFilter

	// Output transmits built frames. Optional; defaults to a black hole.
	Output Transmitter

	// Buffers supplies outbound frame buffers. Optional; defaults to a
	// shared pool of MTU-sized buffers.
	Buffers FrameBuffers

	// Random is the platform entropy source for report jitter. Optional;
	// defaults to the Go CSPRNG.
	Random RandomSource

	// ChecksumOffload leaves the IPv4 header checksum zero for link layers
	// that compute it in hardware.
	ChecksumOffload bool

	// Logger overrides the default logrus standard logger.
	Logger *logrus.Logger
}

// Engine is the IGMP membership engine: the report registry, the query
// handler, the tick sweep and the membership bookkeeping behind one value.
//
// The engine is deliberately lock-free: the stack guarantees that packet
// input, the protocol tick and membership requests are serialized through a
// single processing context (see Runner). Callers on other goroutines must
// marshal their requests into that context instead of calling the engine
// directly.
type Engine struct {
	registry *Registry
	builder  *FrameBuilder
	filter   LinkFilter
	output   Transmitter
	random   RandomSource
	log      *logrus.Logger
	stats    Stats
}

// New creates an engine and registers the all-systems group (224.0.0.1) with
// the link filter so membership queries are received.
func New(cfg Config) *Engine {
	if cfg.Filter == nil {
		cfg.Filter = nopFilter{}
	}
	if cfg.Output == nil {
		cfg.Output = nopTransmitter{}
	}
	if cfg.Buffers == nil {
		cfg.Buffers = common.NewBufferPool(common.FrameBufferSize)
	}
	if cfg.Random == nil {
		cfg.Random = defaultRandomSource
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	e := &Engine{
		registry: NewRegistry(cfg.Random),
		builder: &FrameBuilder{
			LocalIP:         cfg.LocalIP,
			LocalMAC:        cfg.LocalMAC,
			ChecksumOffload: cfg.ChecksumOffload,
			Buffers:         cfg.Buffers,
		},
		filter: cfg.Filter,
		output: cfg.Output,
		random: cfg.Random,
		log:    cfg.Logger,
	}

	e.filter.AddMulticastMAC(common.MulticastMAC(common.AllSystemsGroup))

	return e
}

// Registry exposes the report registry, mainly for inspection.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Stats returns a snapshot of the engine's counters. The counters are
// updated atomically, so unlike the rest of the engine this is safe to call
// from any goroutine.
func (e *Engine) Stats() Stats {
	return Stats{
		QueriesReceived: atomic.LoadUint64(&e.stats.QueriesReceived),
		ReportsReceived: atomic.LoadUint64(&e.stats.ReportsReceived),
		ReportsSent:     atomic.LoadUint64(&e.stats.ReportsSent),
		SendsSkipped:    atomic.LoadUint64(&e.stats.SendsSkipped),
		FramesDiscarded: atomic.LoadUint64(&e.stats.FramesDiscarded),
		GroupsJoined:    atomic.LoadUint64(&e.stats.GroupsJoined),
		GroupsLeft:      atomic.LoadUint64(&e.stats.GroupsLeft),
	}
}

type nopFilter struct{}

func (nopFilter) AddMulticastMAC(common.MACAddress)    {}
func (nopFilter) RemoveMulticastMAC(common.MACAddress) {}

type nopTransmitter struct{}

func (nopTransmitter) SendFrame([]byte, bool) {}
