package gateway

import "sync"

// ReplayEntry is one broadcast envelope retained for gap backfill.
type ReplayEntry struct {
	Seq  int64
	Data []byte
}

// ReplayBuffer is a fixed-size ring of recent envelopes for one
// channel. A client that detects a sequence gap asks /api/missed for
// the range it skipped. Thread-safe.
type ReplayBuffer struct {
	mu    sync.RWMutex
	buf   []ReplayEntry
	size  int
	total int64 // envelopes ever pushed
}

// NewReplayBuffer creates a replay buffer with the given capacity.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &ReplayBuffer{
		buf:  make([]ReplayEntry, capacity),
		size: capacity,
	}
}

// Push appends an envelope, overwriting the oldest entry when full.
// The data slice is copied.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)

	rb.buf[rb.total%int64(rb.size)] = ReplayEntry{Seq: seq, Data: cp}
	rb.total++
}

// Range returns entries with seq in [fromSeq, toSeq] inclusive, oldest
// first.
func (rb *ReplayBuffer) Range(fromSeq, toSeq int64) []ReplayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	count := rb.lenLocked()
	start := rb.total - int64(count)

	var result []ReplayEntry
	for i := int64(0); i < int64(count); i++ {
		e := rb.buf[(start+i)%int64(rb.size)]
		if e.Seq >= fromSeq && e.Seq <= toSeq {
			result = append(result, e)
		}
	}
	return result
}

// Len returns the number of retained entries.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.lenLocked()
}

func (rb *ReplayBuffer) lenLocked() int {
	if rb.total >= int64(rb.size) {
		return rb.size
	}
	return int(rb.total)
}
