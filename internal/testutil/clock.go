package testutil

import "sync/atomic"

// SeqClock hands out the seq values that order site and render records.
// The zero value starts at 1. Safe for concurrent use.
type SeqClock struct {
	last atomic.Int64
}

// NewSeqClock returns a clock whose first Next returns after+1, matching
// a store whose GetLastSeq reports after.
func NewSeqClock(after int64) *SeqClock {
	c := &SeqClock{}
	c.last.Store(after)
	return c
}

// Next advances the clock and returns the new seq.
func (c *SeqClock) Next() int64 {
	return c.last.Add(1)
}

// Last returns the most recently issued seq, or the starting point if
// Next has not been called.
func (c *SeqClock) Last() int64 {
	return c.last.Load()
}
