// Package arrow provides the four-way directional latch.
package arrow

import (
	"github.com/cockroachdb/errors"
)

// Count is the number of directions.
const Count = 4

// ErrInvalidIndex is returned for a direction outside 0..Count-1.
var ErrInvalidIndex = errors.New("invalid arrow index")

// Direction identifies one arrow. The order matches the chart note bits.
type Direction int

const (
	Left Direction = iota
	Down
	Up
	Right
)

// Valid reports whether d addresses an arrow.
func (d Direction) Valid() bool {
	return d >= 0 && d < Count
}

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Down:
		return "down"
	case Up:
		return "up"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Latch holds one independent flag per direction. Any combination may be set.
type Latch struct {
	flags [Count]bool
}

// Set stores the flag for one direction.
func (l *Latch) Set(d Direction, on bool) error {
	if !d.Valid() {
		return errors.Wrapf(ErrInvalidIndex, "arrow %d", int(d))
	}
	l.flags[d] = on
	return nil
}

// Get returns the flag for one direction.
func (l *Latch) Get(d Direction) (bool, error) {
	if !d.Valid() {
		return false, errors.Wrapf(ErrInvalidIndex, "arrow %d", int(d))
	}
	return l.flags[d], nil
}

// All returns a copy of every flag.
func (l *Latch) All() [Count]bool {
	return l.flags
}

// Clear resets every flag.
func (l *Latch) Clear() {
	l.flags = [Count]bool{}
}

// ApplyNoteBits applies a chart note byte. The high nibble selects which
// directions change; the low nibble holds their new values.
func (l *Latch) ApplyNoteBits(bits uint8) {
	for d := Direction(0); d < Count; d++ {
		if bits&(1<<(4+uint(d))) == 0 {
			continue
		}
		l.flags[d] = bits&(1<<uint(d)) != 0
	}
}
