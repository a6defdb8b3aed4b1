// Package timing provides the device clock and the beat sync reference.
package timing

import "time"

// Timestamp is a fixed-width millisecond tick count. It wraps to zero after
// 2^32 ms (about 49.7 days); every comparison uses modular arithmetic.
type Timestamp uint32

// Duration is an elapsed span between two Timestamps in milliseconds.
type Duration uint32

// MaxSpan is the largest span for which modular ordering is unambiguous.
const MaxSpan Duration = 1<<31 - 1

// Sub returns the modular distance from u to t.
func (t Timestamp) Sub(u Timestamp) Duration {
	return Duration(t - u)
}

// Add returns t advanced by d, wrapping at the clock width.
func (t Timestamp) Add(d Duration) Timestamp {
	return t + Timestamp(d)
}

// Before reports whether t is earlier than u within half the clock modulus.
func (t Timestamp) Before(u Timestamp) bool {
	return int32(t-u) < 0
}

// After reports whether t is later than u within half the clock modulus.
func (t Timestamp) After(u Timestamp) bool {
	return int32(t-u) > 0
}

// FromElapsed converts a wall-clock elapsed time into a wrapped Timestamp.
func FromElapsed(elapsed time.Duration) Timestamp {
	return Timestamp(uint64(elapsed.Milliseconds()))
}

// FromStd converts a time.Duration to a Duration, saturating at the width.
func FromStd(d time.Duration) Duration {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	if ms > int64(^uint32(0)) {
		return Duration(^uint32(0))
	}
	return Duration(ms)
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d) * time.Millisecond
}
