// Package device owns the complete device state and runs one tick at a time.
package device

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibebox/internal/app/binding"
	"github.com/osa030/vibebox/internal/app/playback"
	"github.com/osa030/vibebox/internal/app/player"
	"github.com/osa030/vibebox/internal/domain/arrow"
	"github.com/osa030/vibebox/internal/domain/button"
	"github.com/osa030/vibebox/internal/domain/chart"
	"github.com/osa030/vibebox/internal/domain/timing"
)

// ErrTickRejected is returned when a tick cannot be applied.
var ErrTickRejected = errors.New("tick rejected")

// Config holds device configuration.
type Config struct {
	Button   button.Config
	Bindings []binding.Binding
	Start    timing.Timestamp // Clock value before the first tick
}

// Device is the single owner of button, playback, timing and arrow state.
// Tick must be called from one goroutine; Enqueue and Snapshot are safe to
// call from anywhere.
type Device struct {
	// Tick-owned state
	timing   *timing.Reference
	buttons  *button.Tracker
	arrows   arrow.Latch
	rawArrow [arrow.Count]bool
	machine  *playback.Machine
	bindings *binding.Map
	library  *chart.Library
	player   *player.Player
	ticks    uint64

	// External commands, applied inside the next tick
	cmdMu   sync.Mutex
	pending []binding.Action

	// Last published snapshot
	snapMu   sync.RWMutex
	snapshot Snapshot
}

// New creates a device in its power-on state. A nil library means no charts.
func New(cfg Config, library *chart.Library) (*Device, error) {
	bindings, err := binding.NewMap(cfg.Bindings)
	if err != nil {
		return nil, errors.Wrap(err, "invalid bindings")
	}
	if library == nil {
		library = chart.NewLibrary(nil)
	}

	d := &Device{
		timing:   timing.NewReference(cfg.Start),
		buttons:  button.NewTracker(cfg.Button),
		machine:  playback.NewMachine(),
		bindings: bindings,
		library:  library,
		player:   player.New(),
	}
	d.player.Load(library.Current())
	d.publish()
	return d, nil
}

// Events returns playback state changes.
func (d *Device) Events() <-chan playback.Event {
	return d.machine.Events()
}

// Enqueue queues an action to be applied on the next tick.
func (d *Device) Enqueue(a binding.Action) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	d.pending = append(d.pending, a)
}

// Snapshot returns the state published by the last tick.
func (d *Device) Snapshot() Snapshot {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	return d.snapshot
}

// Close releases the event channel.
func (d *Device) Close() {
	d.machine.Close()
}

// Tick runs one control loop iteration for the given raw sample and returns
// the resulting snapshot. A rejected tick leaves all state unchanged.
func (d *Device) Tick(s Sample) (Snapshot, error) {
	if err := d.timing.Advance(s.Now); err != nil {
		return d.Snapshot(), errors.Mark(err, ErrTickRejected)
	}
	now := d.timing.Now()
	d.ticks++

	if s.Beat {
		d.beat(now)
	}

	for id := button.ID(0); id < button.Count; id++ {
		edge, err := d.buttons.Update(id, s.Buttons[id], now)
		if err != nil {
			return d.Snapshot(), errors.Mark(err, ErrTickRejected)
		}
		if edge == button.EdgeNone {
			continue
		}
		for _, a := range d.bindings.Lookup(id, edge) {
			zlog.Debug().Msgf("device: %s %s -> %s", id, edge, a)
			d.perform(a, now)
		}
	}

	for dir := arrow.Direction(0); dir < arrow.Count; dir++ {
		if s.Arrows[dir] != d.rawArrow[dir] {
			_ = d.arrows.Set(dir, s.Arrows[dir])
		}
	}
	d.rawArrow = s.Arrows

	for _, a := range d.drain() {
		zlog.Debug().Msgf("device: command %s", a)
		d.perform(a, now)
	}

	d.consumeSync(now)

	if d.machine.State() == playback.StateStarted {
		d.player.Advance(now, &d.arrows)
		if d.player.Done() {
			zlog.Info().Msgf("device: chart %q finished", d.player.Chart().Title)
			d.fire(playback.TriggerStop, now)
		}
	}

	return d.publish(), nil
}

func (d *Device) drain() []binding.Action {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	actions := d.pending
	d.pending = nil
	return actions
}

func (d *Device) beat(now timing.Timestamp) {
	d.timing.RecordBeat(now)
	d.timing.RequestSync()
}

// perform applies one action. Must be called from Tick.
func (d *Device) perform(a binding.Action, now timing.Timestamp) {
	switch a {
	case binding.ActionToggle:
		if d.machine.State() == playback.StateStopped {
			d.fire(playback.TriggerPrime, now)
		} else {
			d.fire(playback.TriggerStop, now)
		}
	case binding.ActionStart:
		d.fire(playback.TriggerStart, now)
	case binding.ActionPrime:
		d.fire(playback.TriggerPrime, now)
	case binding.ActionStop:
		d.fire(playback.TriggerStop, now)
	case binding.ActionSync:
		d.beat(now)
	case binding.ActionNextChart, binding.ActionPrevChart:
		if d.machine.State() != playback.StateStopped {
			zlog.Debug().Msgf("device: %s ignored while %s", a, d.machine.State())
			return
		}
		var c *chart.Chart
		if a == binding.ActionNextChart {
			c = d.library.Next()
		} else {
			c = d.library.Prev()
		}
		d.player.Load(c)
		if c != nil {
			zlog.Info().Msgf("device: selected chart %q", c.Title)
		}
	}
}

// fire applies a playback trigger and enters the resulting state.
func (d *Device) fire(t playback.Trigger, now timing.Timestamp) {
	e, err := d.machine.Fire(t, now)
	if err != nil {
		zlog.Debug().Msgf("device: %v", err)
		return
	}
	if !e.Changed() {
		return
	}
	zlog.Info().Msgf("device: playback %s -> %s (%s)", e.From, e.To, e.Trigger)

	switch e.To {
	case playback.StateStopped, playback.StatePrimed:
		d.player.Stop()
		d.arrows.Clear()
	case playback.StateStarted:
		origin := now
		if e.Trigger == playback.TriggerSync {
			origin = d.timing.Beat()
		}
		d.player.Start(origin)
	}
}

// consumeSync handles a pending sync request exactly once.
func (d *Device) consumeSync(now timing.Timestamp) {
	if !d.timing.ConsumeSync() {
		return
	}
	switch d.machine.State() {
	case playback.StatePrimed:
		d.fire(playback.TriggerSync, now)
	case playback.StateStarted:
		d.player.Realign(d.timing.Beat(), d.timing.BeatPeriod())
	default:
		zlog.Debug().Msg("device: sync ignored while stopped")
	}
}

// publish stores and returns a snapshot of the current state.
func (d *Device) publish() Snapshot {
	applied, total := d.player.Progress()
	s := Snapshot{
		Tick:          d.ticks,
		Buttons:       d.buttons.All(),
		Arrows:        d.arrows.All(),
		Playback:      d.machine.State(),
		TimeNow:       d.timing.Now(),
		TimeBeat:      d.timing.Beat(),
		SyncPending:   d.timing.SyncPending(),
		ChartIndex:    d.library.Index(),
		ChartCount:    d.library.Len(),
		ChartPosition: d.player.Position(d.timing.Now()),
		ChartApplied:  applied,
		ChartTotal:    total,
	}
	if c := d.player.Chart(); c != nil {
		s.ChartTitle = c.Title
	}

	d.snapMu.Lock()
	d.snapshot = s
	d.snapMu.Unlock()
	return s
}
