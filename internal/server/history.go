package server

import (
	"sync"

	"github.com/disasternet/chatd/internal/types"
)

// DefaultHistoryCapacity bounds the number of messages retained for replay.
const DefaultHistoryCapacity = 1000

// HistoryBuffer is a bounded FIFO store of recent messages. One buffer serves
// the whole deployment; its snapshot is replayed to every joiner. Mutation
// happens on the dispatch goroutine, the lock guards status-surface reads.
type HistoryBuffer struct {
	mu       sync.RWMutex
	capacity int
	messages []types.Message
}

func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryBuffer{capacity: capacity}
}

// Append adds msg at the tail, evicting from the head once capacity is
// exceeded.
func (b *HistoryBuffer) Append(msg types.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages = append(b.messages, msg)
	if n := len(b.messages) - b.capacity; n > 0 {
		b.messages = append(b.messages[:0], b.messages[n:]...)
	}
}

// Snapshot returns the retained messages in insertion order. The returned
// slice is a copy and is never nil.
func (b *HistoryBuffer) Snapshot() []types.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]types.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

func (b *HistoryBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.messages)
}
