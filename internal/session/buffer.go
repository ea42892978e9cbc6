package session

import (
	"sync"

	"github.com/dealsignal/call-analysis/internal/analysis"
)

// ChunkBuffer is a thread-safe ring buffer for committed transcript chunks.
// When full, the oldest chunks are evicted so the buffer always holds the
// most recent speech.
type ChunkBuffer struct {
	mu    sync.RWMutex
	buf   []analysis.Chunk
	size  int
	start int
	count int
}

// NewChunkBuffer creates a buffer holding at most capacity chunks.
func NewChunkBuffer(capacity int) *ChunkBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &ChunkBuffer{
		buf:  make([]analysis.Chunk, capacity),
		size: capacity,
	}
}

// Append adds chunks, evicting the oldest when the buffer is full.
func (b *ChunkBuffer) Append(chunks ...analysis.Chunk) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range chunks {
		b.buf[(b.start+b.count)%b.size] = c
		if b.count < b.size {
			b.count++
		} else {
			b.start = (b.start + 1) % b.size
		}
	}
}

// Snapshot returns the buffered chunks in arrival order.
func (b *ChunkBuffer) Snapshot() []analysis.Chunk {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]analysis.Chunk, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.buf[(b.start+i)%b.size]
	}
	return out
}

// Len returns the number of buffered chunks.
func (b *ChunkBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// IsFull reports whether the next append will evict.
func (b *ChunkBuffer) IsFull() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count == b.size
}

// Clear empties the buffer.
func (b *ChunkBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start = 0
	b.count = 0
}
