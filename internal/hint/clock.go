package hint

import "sync/atomic"

// Clock is a monotonic logical clock stamping hint attachments.
//
// Attachment order is the primary render order, so every attachment gets a
// strictly increasing sequence number. Safe for concurrent use, although a
// Registry is normally filled by a single goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Useful when several registries must share one ordering space.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
