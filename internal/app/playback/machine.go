package playback

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibebox/internal/domain/timing"
)

// Errors
var (
	ErrIllegalTransition = errors.New("illegal playback transition")
	ErrInvalidState      = errors.New("invalid playback state")
)

// transitions maps each state to the triggers it accepts.
// Stop is accepted everywhere so every state has a path back to Stopped.
var transitions = map[State]map[Trigger]State{
	StateStopped: {
		TriggerStart: StateStarted,
		TriggerPrime: StatePrimed,
		TriggerStop:  StateStopped,
	},
	StatePrimed: {
		TriggerStart: StateStarted,
		TriggerPrime: StatePrimed,
		TriggerSync:  StateStarted,
		TriggerStop:  StateStopped,
	},
	StateStarted: {
		TriggerStart: StateStarted,
		TriggerPrime: StatePrimed,
		TriggerStop:  StateStopped,
	},
}

// Transition returns the state reached from s by trigger t.
func Transition(s State, t Trigger) (State, error) {
	if !s.Valid() {
		return s, errors.Wrapf(ErrInvalidState, "state %d", int(s))
	}
	next, ok := transitions[s][t]
	if !ok {
		return s, errors.Wrapf(ErrIllegalTransition, "%s on %s", t, s)
	}
	return next, nil
}

// Machine holds the current playback state and publishes applied changes.
type Machine struct {
	mu     sync.RWMutex
	state  State
	events chan Event
	closed bool
}

// NewMachine creates a machine in the Stopped state.
func NewMachine() *Machine {
	return &Machine{
		state:  StateStopped,
		events: make(chan Event, 16),
	}
}

// Events returns the event channel. Only state changes are published.
func (m *Machine) Events() <-chan Event {
	return m.events
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Fire applies a trigger at the given tick. On an illegal trigger the state
// is left unchanged and the error wraps ErrIllegalTransition.
func (m *Machine) Fire(t Trigger, at timing.Timestamp) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := Transition(m.state, t)
	if err != nil {
		return Event{From: m.state, To: m.state, Trigger: t, At: at}, err
	}

	e := Event{From: m.state, To: next, Trigger: t, At: at}
	m.state = next

	if e.Changed() {
		zlog.Debug().Msgf("playback: %s -> %s on %s at %d", e.From, e.To, t, at)
		m.sendEventLocked(e)
	}
	return e, nil
}

// Reset forces the machine back to Stopped without publishing an event.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateStopped
}

// Close closes the event channel.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (m *Machine) sendEventLocked(e Event) {
	if m.closed {
		return
	}
	select {
	case m.events <- e:
	default:
		// Channel full, drop event
		zlog.Warn().Msgf("playback: event dropped: %s -> %s", e.From, e.To)
	}
}
