package button

import (
	"github.com/osa030/vibebox/internal/domain/timing"
)

// Config holds tracker configuration.
type Config struct {
	// HoldThreshold is the press span after which a button counts as held.
	HoldThreshold timing.Duration
	// TickInterval is the nominal spacing of raw reads. The first sample of
	// a press stands for one interval of contact, so the observed press span
	// is PressedDuration + TickInterval.
	TickInterval timing.Duration
}

// Tracker derives edge and hold facts from raw per-tick button reads.
type Tracker struct {
	config  Config
	buttons [Count]State
}

// NewTracker creates a tracker with all buttons released.
func NewTracker(config Config) *Tracker {
	return &Tracker{config: config}
}

// Update feeds one raw read for a button and returns the edge it produced.
// Only the addressed button is modified.
func (t *Tracker) Update(id ID, raw bool, now timing.Timestamp) (Edge, error) {
	if err := checkID(id); err != nil {
		return EdgeNone, err
	}
	b := &t.buttons[id]

	switch {
	case raw && !b.IsPressed:
		b.IsPressed = true
		b.IsPressedNow = true
		b.HeldState = false
		b.HeldStartTime = now
		b.PressedDuration = 0
		return EdgePressed, nil

	case raw && b.IsPressed:
		b.IsPressedNow = false
		b.PressedDuration = now.Sub(b.HeldStartTime)
		if !b.HeldState && t.heldLongEnough(b.PressedDuration) {
			b.HeldState = true
			return EdgeHeld, nil
		}
		return EdgeNone, nil

	case !raw && b.IsPressed:
		b.IsPressed = false
		b.IsPressedNow = false
		b.HeldState = false
		b.PressedDuration = 0
		return EdgeReleased, nil

	default:
		b.IsPressedNow = false
		return EdgeNone, nil
	}
}

func (t *Tracker) heldLongEnough(pressed timing.Duration) bool {
	span := uint64(pressed) + uint64(t.config.TickInterval)
	return span >= uint64(t.config.HoldThreshold)
}

// Get returns the state of one button.
func (t *Tracker) Get(id ID) (State, error) {
	if err := checkID(id); err != nil {
		return State{}, err
	}
	return t.buttons[id], nil
}

// All returns a copy of every button state.
func (t *Tracker) All() [Count]State {
	return t.buttons
}

// Reset releases every button.
func (t *Tracker) Reset() {
	t.buttons = [Count]State{}
}
