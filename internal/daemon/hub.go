package daemon

import (
	"context"
	"sync"

	"conveyor/internal/pipeline"
)

// UpdateHub stores recent step updates for one execution and wakes waiters
// when new updates arrive. The buffer is bounded; clients that fall behind
// more than the capacity miss the oldest updates and resynchronize from the
// step snapshot instead.
type UpdateHub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []pipeline.StepUpdate
	nextSeq  uint64
	closed   bool
}

// NewUpdateHub constructs a bounded in-memory update buffer.
func NewUpdateHub(capacity int) *UpdateHub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &UpdateHub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish stamps an update with the next sequence number and appends it.
// Publishing to a closed hub is a no-op.
func (h *UpdateHub) Publish(update pipeline.StepUpdate) {
	if h == nil {
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.nextSeq++
	update.Sequence = h.nextSeq
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, update)
	h.cond.Broadcast()
	h.mu.Unlock()
}

// Close wakes all waiters and rejects further publishes. Buffered updates
// stay readable.
func (h *UpdateHub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.closed = true
	h.cond.Broadcast()
	h.mu.Unlock()
}

// Fetch returns up to limit updates with sequence greater than since, along
// with the cursor to resume from: the sequence of the last returned update,
// or the hub's latest sequence when nothing newer is buffered. When wait is
// true, Fetch blocks until at least one update is available, the hub closes,
// or the context ends.
func (h *UpdateHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]pipeline.StepUpdate, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		updates, next := h.snapshotLocked(since, limit)
		if len(updates) > 0 || !wait || h.closed {
			return updates, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit updates without blocking.
func (h *UpdateHub) Tail(limit int) ([]pipeline.StepUpdate, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return nil, h.nextSeq
	}
	start := len(h.buffer) - limit
	if start < 0 {
		start = 0
	}
	out := make([]pipeline.StepUpdate, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

// FirstSequence reports the smallest sequence number still buffered.
func (h *UpdateHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return h.nextSeq
	}
	return h.buffer[0].Sequence
}

func (h *UpdateHub) snapshotLocked(since uint64, limit int) ([]pipeline.StepUpdate, uint64) {
	if len(h.buffer) == 0 {
		return nil, h.nextSeq
	}
	startIdx := -1
	for i, update := range h.buffer {
		if update.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, h.nextSeq
	}
	end := startIdx + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	out := make([]pipeline.StepUpdate, end-startIdx)
	copy(out, h.buffer[startIdx:end])
	// The cursor must not run ahead of what was delivered: a limit-truncated
	// batch resumes at its own tail, not at the hub's newest sequence.
	return out, out[len(out)-1].Sequence
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
