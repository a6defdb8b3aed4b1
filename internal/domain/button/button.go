// Package button tracks press, hold and release timing for the device buttons.
package button

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/osa030/vibebox/internal/domain/timing"
)

// Count is the number of physical buttons on the device.
const Count = 3

// ErrInvalidIndex is returned for a button ID outside 0..Count-1.
var ErrInvalidIndex = errors.New("invalid button index")

// ID identifies a physical button.
type ID int

const (
	Button0 ID = iota
	Button1
	Button2
)

// Valid reports whether id addresses a physical button.
func (id ID) Valid() bool {
	return id >= 0 && id < Count
}

// String returns the string representation of the button ID.
func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("button(%d)", int(id))
	}
	return fmt.Sprintf("button%d", int(id))
}

// Edge is the transition observed for a button on a single tick.
type Edge int

const (
	EdgeNone     Edge = iota // No transition this tick
	EdgePressed              // Rising edge: press first observed
	EdgeHeld                 // Press crossed the hold threshold
	EdgeReleased             // Falling edge
)

// String returns the string representation of the edge.
func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgePressed:
		return "pressed"
	case EdgeHeld:
		return "held"
	case EdgeReleased:
		return "released"
	default:
		return "unknown"
	}
}

// State is the derived state of one button.
type State struct {
	IsPressed       bool             // Debounced logical state
	IsPressedNow    bool             // True only on the tick the press is first observed
	HeldState       bool             // Press sustained past the hold threshold
	HeldStartTime   timing.Timestamp // Tick at which the current press began
	PressedDuration timing.Duration  // Elapsed since HeldStartTime while pressed
}

func checkID(id ID) error {
	if !id.Valid() {
		return errors.Wrapf(ErrInvalidIndex, "button %d", int(id))
	}
	return nil
}
