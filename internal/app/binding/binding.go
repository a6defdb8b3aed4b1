// Package binding maps button edges to device actions.
package binding

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/vibebox/internal/domain/button"
)

// Errors
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownEdge   = errors.New("unknown edge")
)

// Action is something the device does in response to input or a command.
type Action int

const (
	ActionToggle    Action = iota // Stopped -> primed, otherwise stop
	ActionStart                   // Start immediately
	ActionPrime                   // Arm and wait for a beat sync
	ActionStop                    // Stop
	ActionSync                    // Record a beat now and latch a sync request
	ActionNextChart               // Select the next chart (stopped only)
	ActionPrevChart               // Select the previous chart (stopped only)
)

var actionNames = map[Action]string{
	ActionToggle:    "toggle",
	ActionStart:     "start",
	ActionPrime:     "prime",
	ActionStop:      "stop",
	ActionSync:      "sync",
	ActionNextChart: "next_chart",
	ActionPrevChart: "prev_chart",
}

// String returns the string representation of the action.
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownAction, "%q", s)
}

// ParseEdge parses the edge a binding fires on.
func ParseEdge(s string) (button.Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "press", "pressed":
		return button.EdgePressed, nil
	case "hold", "held":
		return button.EdgeHeld, nil
	case "release", "released":
		return button.EdgeReleased, nil
	default:
		return button.EdgeNone, errors.Wrapf(ErrUnknownEdge, "%q", s)
	}
}

// Binding fires Action when Button produces On.
type Binding struct {
	Button button.ID
	On     button.Edge
	Action Action
}

// Map looks up the actions bound to a button edge.
type Map struct {
	actions map[button.ID]map[button.Edge][]Action
}

// NewMap builds a lookup map. Invalid buttons or edges are rejected.
func NewMap(bindings []Binding) (*Map, error) {
	m := &Map{actions: make(map[button.ID]map[button.Edge][]Action)}
	for i, b := range bindings {
		if !b.Button.Valid() {
			return nil, errors.Wrapf(button.ErrInvalidIndex, "binding %d: button %d", i, int(b.Button))
		}
		if b.On == button.EdgeNone {
			return nil, errors.Wrapf(ErrUnknownEdge, "binding %d", i)
		}
		if _, ok := actionNames[b.Action]; !ok {
			return nil, errors.Wrapf(ErrUnknownAction, "binding %d", i)
		}
		if m.actions[b.Button] == nil {
			m.actions[b.Button] = make(map[button.Edge][]Action)
		}
		m.actions[b.Button][b.On] = append(m.actions[b.Button][b.On], b.Action)
	}
	return m, nil
}

// Lookup returns the actions for a button edge in configuration order.
func (m *Map) Lookup(id button.ID, edge button.Edge) []Action {
	return m.actions[id][edge]
}

// Defaults returns the stock bindings: button 0 toggles playback, button 1
// taps the beat, button 2 cycles charts and stops on hold.
func Defaults() []Binding {
	return []Binding{
		{Button: button.Button0, On: button.EdgePressed, Action: ActionToggle},
		{Button: button.Button1, On: button.EdgePressed, Action: ActionSync},
		{Button: button.Button2, On: button.EdgePressed, Action: ActionNextChart},
		{Button: button.Button2, On: button.EdgeHeld, Action: ActionStop},
	}
}
