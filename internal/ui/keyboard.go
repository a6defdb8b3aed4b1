package ui

import (
	"context"
	"sync"

	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/domain/arrow"
	"github.com/osa030/vibebox/internal/domain/button"
)

// KeyboardSource is an input source driven by the terminal view.
// Terminals report no key releases, so buttons and arrows latch: one key
// press holds the input down, the next releases it.
type KeyboardSource struct {
	mu      sync.Mutex
	buttons [button.Count]bool
	arrows  [arrow.Count]bool
	beat    bool
}

// NewKeyboardSource creates a source with every input released.
func NewKeyboardSource() *KeyboardSource {
	return &KeyboardSource{}
}

// ToggleButton flips the latched state of a button.
func (k *KeyboardSource) ToggleButton(id button.ID) {
	if !id.Valid() {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.buttons[id] = !k.buttons[id]
}

// ToggleArrow flips the latched state of an arrow input.
func (k *KeyboardSource) ToggleArrow(d arrow.Direction) {
	if !d.Valid() {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.arrows[d] = !k.arrows[d]
}

// Beat queues one beat pulse for the next poll.
func (k *KeyboardSource) Beat() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.beat = true
}

// Poll returns the latched inputs and consumes any queued beat.
func (k *KeyboardSource) Poll(context.Context) (device.Sample, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	s := device.Sample{
		Buttons: k.buttons,
		Arrows:  k.arrows,
		Beat:    k.beat,
	}
	k.beat = false
	return s, nil
}

// Close does nothing.
func (k *KeyboardSource) Close() error {
	return nil
}
