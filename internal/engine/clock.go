package engine

import "sync/atomic"

// Clock hands out derivation seqs. Each inserted fact takes the next value,
// so seq order is store order; wall time plays no part.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first seq is 1.
func NewClock() *Clock { return NewClockAt(0) }

// NewClockAt returns a clock whose first seq is last+1.
func NewClockAt(last int64) *Clock {
	c := new(Clock)
	c.last.Store(last)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 { return c.last.Add(1) }

// Current returns the last seq handed out.
func (c *Clock) Current() int64 { return c.last.Load() }
