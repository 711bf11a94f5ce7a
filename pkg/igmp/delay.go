package igmp

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSource supplies 32-bit values from the platform entropy source. The
// second return is false when entropy is unavailable; the scheduler then
// falls back to a deterministic counter, so report liveness never depends on
// the random source working.
type RandomSource func() (uint32, bool)

// defaultRandomSource reads from the platform CSPRNG.
func defaultRandomSource() (uint32, bool) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[:]), true
}

// Unsolicited reports after a join are scheduled 2 to 9 ticks out. A delay of
// 1 would fire before the interface has settled its source address; a few
// hundred milliseconds lets snooping switches start forwarding almost
// immediately without waiting for the next general query.
const (
	unsolicitedMinDelay  = 2
	unsolicitedDelayMask = 0x07
)

// delayChooser picks report delays in response to a membership query. One
// chooser serves one scheduling pass: the deterministic fallback counter it
// carries rotates across the entries of that pass so reports still spread out
// when the random source fails.
type delayChooser struct {
	random RandomSource
	next   uint8 // next fallback value, 1-based
}

func newDelayChooser(random RandomSource) *delayChooser {
	return &delayChooser{random: random, next: 1}
}

// Choose returns a delay in ticks within [1, maxResponseTicks-1], never 0
// (a countdown of 0 means "not scheduled"). maxResponseTicks is clamped to
// at least 2 so the window is always at least one tick wide.
func (c *delayChooser) Choose(maxResponseTicks uint8) uint8 {
	if maxResponseTicks < 2 {
		maxResponseTicks = 2
	}
	window := maxResponseTicks - 1

	v, ok := c.random()
	if !ok {
		return c.nextFallback(window)
	}

	// Smear the window's bits down to build the smallest power-of-two-minus-
	// one mask covering it, then reduce the draw into [1, window]. Repeated
	// subtraction instead of modulo keeps 0 (= unscheduled) out of range.
	mask := uint32(window)
	mask |= mask >> 1
	mask |= mask >> 2
	mask |= mask >> 4

	v &= mask
	if v == 0 {
		v = 1
	}
	for v > uint32(window) {
		v -= uint32(window)
	}

	return uint8(v)
}

// ChooseUnsolicited returns the countdown for the unsolicited report sent
// after the first join of a group, in [2, 9] ticks.
func (c *delayChooser) ChooseUnsolicited() uint8 {
	v, ok := c.random()
	if !ok {
		v = uint32(c.next)
		c.next++
	}
	return unsolicitedMinDelay + uint8(v&unsolicitedDelayMask)
}

// nextFallback hands out 1, 2, ... window, 1, ... across successive calls.
func (c *delayChooser) nextFallback(window uint8) uint8 {
	if c.next > window || c.next == 0 {
		c.next = 1
	}
	d := c.next
	c.next++
	if c.next > window {
		c.next = 1
	}
	return d
}
