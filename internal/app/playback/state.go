// Package playback provides the transport state machine.
package playback

// State represents the playback state.
type State int

const (
	StateStopped State = iota // Nothing playing (initial state)
	StateStarted              // Chart is playing
	StatePrimed               // Armed, waiting for a beat sync to start
)

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	return s >= StateStopped && s <= StatePrimed
}

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarted:
		return "started"
	case StatePrimed:
		return "primed"
	default:
		return "unknown"
	}
}

// States lists every defined state.
func States() []State {
	return []State{StateStopped, StateStarted, StatePrimed}
}
