package common

import (
	"sync"
)

// BufferPool provides a pool of reusable, fixed-size byte buffers to reduce
// garbage collector pressure. It stands in for the network buffer manager of
// an embedded stack: acquisition is allowed to fail, and callers are expected
// to degrade gracefully (typically by dropping the frame) when it does.
type BufferPool struct {
	pool sync.Pool
	size int
}

// Standard buffer sizes.
const (
	// FrameBufferSize covers a full MTU-sized Ethernet frame.
	FrameBufferSize = 1514
)

// NewBufferPool creates a new buffer pool with the specified buffer size.
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
		size: size,
	}
}

// Acquire retrieves a zeroed buffer of the requested length from the pool.
// It returns nil if the request exceeds the pool's buffer size; a nil result
// means "no buffer available" and the caller must skip whatever it was about
// to build. The buffer should be handed back with Release when done.
func (bp *BufferPool) Acquire(size int) []byte {
	if size > bp.size {
		return nil
	}
	bufPtr := bp.pool.Get().(*[]byte)
	return (*bufPtr)[:size]
}

// Release returns a buffer to the pool. The buffer is cleared so the next
// Acquire hands out zeroed memory (frame builders rely on zeroed padding).
func (bp *BufferPool) Release(buf []byte) {
	if buf == nil || cap(buf) != bp.size {
		return
	}
	buf = buf[:cap(buf)]
	for i := range buf {
		buf[i] = 0
	}
	bp.pool.Put(&buf)
}

// Size returns the fixed buffer size this pool hands out.
func (bp *BufferPool) Size() int {
	return bp.size
}
