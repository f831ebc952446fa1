package audio

import "sync"

// minFlushBytes is the absolute floor for a flush: 200ms at 8kHz.
// Anything smaller produces transcripts too short to be useful.
const minFlushBytes = 3200

// Buffer accumulates inbound PCM chunks until roughly two seconds of
// audio are pending, then hands the caller one contiguous utterance.
// Append is O(1); no concatenation happens before a flush.
type Buffer struct {
	mu        sync.Mutex
	chunks    [][]byte
	size      int
	threshold int
}

// NewBuffer sizes the flush threshold for the session's sample rate:
// max(3200, sampleRate*2*2) bytes, i.e. ~2s of 16-bit mono audio.
func NewBuffer(sampleRate int) *Buffer {
	threshold := sampleRate * 2 * 2
	if threshold < minFlushBytes {
		threshold = minFlushBytes
	}
	return &Buffer{threshold: threshold}
}

// Append queues a chunk. The chunk is retained as-is, not copied.
func (b *Buffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	b.chunks = append(b.chunks, chunk)
	b.size += len(chunk)
	b.mu.Unlock()
}

// FlushIfReady returns the concatenation of all pending chunks and
// atomically clears the buffer once the threshold is reached. Below the
// threshold it returns nil and leaves the pending list untouched. It
// never blocks on pipeline completion; accumulation and processing are
// decoupled.
func (b *Buffer) FlushIfReady() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size < b.threshold {
		return nil
	}
	merged := Concat(b.chunks)
	b.chunks = nil
	b.size = 0
	return merged
}

// Len reports the pending byte count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Threshold reports the flush threshold in bytes.
func (b *Buffer) Threshold() int { return b.threshold }

// Reset drops all pending chunks.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.chunks = nil
	b.size = 0
	b.mu.Unlock()
}
