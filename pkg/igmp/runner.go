package igmp

import (
	"sync"

	"github.com/benbjohnson/clock"
)

// Runner owns the engine's processing context: a single goroutine consuming
// inbound frames, membership requests and the protocol tick from one event
// queue, the way the embedded stack serializes everything through its IP
// task. Other goroutines talk to the engine exclusively through a Runner.
type Runner struct {
	engine *Engine
	clk    clock.Clock

	frames   chan []byte
	requests chan membershipEvent
	quit     chan struct{}
	done     chan struct{}

	ticker *clock.Ticker

	mu      sync.Mutex
	started bool
	stopped bool
}

type membershipEvent struct {
	req    MembershipRequest
	action Action
}

const (
	frameQueueDepth   = 64
	requestQueueDepth = 16
)

// NewRunner wraps the engine in an event loop driven by clk (nil means the
// wall clock).
func NewRunner(e *Engine, clk clock.Clock) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	return &Runner{
		engine:   e,
		clk:      clk,
		frames:   make(chan []byte, frameQueueDepth),
		requests: make(chan membershipEvent, requestQueueDepth),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the processing goroutine. Calling it twice, or after Stop,
// is a no-op. The protocol ticker is created here, before the goroutine
// runs, so a mock clock advanced immediately after Start still hits it.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	r.ticker = r.clk.Ticker(TickInterval)
	go r.loop()
}

// Stop shuts the processing goroutine down and waits for it. Stop is
// idempotent and returns immediately when the runner was never started. The
// tick source simply stops; no other teardown is needed for the life of the
// stack.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.quit)
	}
	started := r.started
	r.mu.Unlock()

	if started {
		<-r.done
	}
}

func (r *Runner) loop() {
	defer close(r.done)
	defer r.ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case frame := <-r.frames:
			r.engine.ProcessFrame(frame)
		case ev := <-r.requests:
			r.engine.ModifyMembership(ev.req, ev.action)
		case <-r.ticker.C:
			r.engine.Tick()
		}
	}
}

// DeliverFrame posts an inbound frame to the processing context. Delivery is
// best effort: when the queue is full the frame is dropped and false is
// returned, which is acceptable for a protocol that tolerates loss.
func (r *Runner) DeliverFrame(frame []byte) bool {
	select {
	case r.frames <- frame:
		return true
	default:
		return false
	}
}

// ModifyMembership marshals a join/leave request into the processing
// context. It implements Membership, so sockets can be handed a Runner or an
// Engine interchangeably. Blocks if the request queue is full, but never past
// runner shutdown.
func (r *Runner) ModifyMembership(req MembershipRequest, action Action) {
	select {
	case r.requests <- membershipEvent{req: req, action: action}:
	case <-r.quit:
	}
}
