package session

import "time"

// DefaultDuration is the collection window of a timed session.
const DefaultDuration = 60 * time.Second

// Policy decides when a session ends on its own.
type Policy struct {
	// Duration is the countdown started by the first admitted sample.
	// Zero means unbounded.
	Duration time.Duration
	// StopOnDisconnect makes a transport disconnect end the session.
	StopOnDisconnect bool
}

// Unbounded runs until the session is stopped from outside.
func Unbounded() Policy {
	return Policy{}
}

// Timed stops d after the first admitted sample, or on disconnect.
func Timed(d time.Duration) Policy {
	if d <= 0 {
		d = DefaultDuration
	}
	return Policy{Duration: d, StopOnDisconnect: true}
}

func (p Policy) Timed() bool {
	return p.Duration > 0
}

// SampleCounter hands out gap-free sequence numbers starting at 0.
type SampleCounter struct {
	next uint64
}

// Next returns the sequence number for a new sample.
func (c *SampleCounter) Next() uint64 {
	n := c.next
	c.next++
	return n
}

// Count is the number of samples produced so far.
func (c *SampleCounter) Count() uint64 {
	return c.next
}
