package playback

import "github.com/osa030/vibebox/internal/domain/timing"

// Trigger is a named request to change the playback state.
type Trigger int

const (
	TriggerStart Trigger = iota // Start playing immediately
	TriggerPrime                // Arm and wait for the next beat sync
	TriggerSync                 // Beat sync arrived
	TriggerStop                 // Stop playing
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerStart:
		return "start"
	case TriggerPrime:
		return "prime"
	case TriggerSync:
		return "sync"
	case TriggerStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Triggers lists every defined trigger.
func Triggers() []Trigger {
	return []Trigger{TriggerStart, TriggerPrime, TriggerSync, TriggerStop}
}

// Event represents an applied state change.
type Event struct {
	From    State
	To      State
	Trigger Trigger
	At      timing.Timestamp // Tick at which the change happened
}

// Changed reports whether the event moved the machine to a different state.
func (e Event) Changed() bool {
	return e.From != e.To
}
