// Package player steps a chart against the device clock and drives the arrow
// latch from its note events.
package player

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibebox/internal/domain/arrow"
	"github.com/osa030/vibebox/internal/domain/chart"
	"github.com/osa030/vibebox/internal/domain/timing"
)

// Player plays one chart at a time.
type Player struct {
	chart   *chart.Chart
	origin  timing.Timestamp
	next    int
	running bool
}

// New creates an idle player.
func New() *Player {
	return &Player{}
}

// Load replaces the chart and rewinds. A nil chart unloads.
func (p *Player) Load(c *chart.Chart) {
	p.chart = c
	p.next = 0
	p.running = false
}

// Chart returns the loaded chart.
func (p *Player) Chart() *chart.Chart {
	return p.chart
}

// Start rewinds and plays from origin.
func (p *Player) Start(origin timing.Timestamp) {
	p.origin = origin
	p.next = 0
	p.running = true
}

// Realign snaps the chart origin onto the beat grid: beat is a fresh beat
// and period the spacing of the last two. The chart keeps its phase and moves
// by at most half a period. Applied events are never replayed.
func (p *Player) Realign(beat timing.Timestamp, period timing.Duration) {
	if !p.running || period == 0 || beat.Before(p.origin) {
		return
	}
	r := beat.Sub(p.origin) % period
	drift := int32(r)
	if r > period/2 {
		drift -= int32(period)
	}
	if drift == 0 {
		return
	}
	origin := p.origin + timing.Timestamp(uint32(drift))
	zlog.Debug().Msgf("player: realign origin %d -> %d (drift=%dms)", p.origin, origin, drift)
	p.origin = origin
}

// Stop halts playback and rewinds.
func (p *Player) Stop() {
	p.running = false
	p.next = 0
}

// Running reports whether the player is stepping a chart.
func (p *Player) Running() bool {
	return p.running
}

// Position returns the chart offset at now, or zero when not running.
func (p *Player) Position(now timing.Timestamp) timing.Duration {
	if !p.running || now.Before(p.origin) {
		return 0
	}
	return now.Sub(p.origin)
}

// Progress returns the number of events applied and the chart length.
func (p *Player) Progress() (applied, total int) {
	if p.chart == nil {
		return 0, 0
	}
	return p.next, len(p.chart.Events)
}

// Done reports whether every event of a loaded chart has been applied.
func (p *Player) Done() bool {
	return p.chart != nil && p.running && p.next >= len(p.chart.Events)
}

// Advance applies every event due at now and returns how many were applied.
func (p *Player) Advance(now timing.Timestamp, latch *arrow.Latch) int {
	if !p.running || p.chart == nil {
		return 0
	}
	pos := p.Position(now)

	applied := 0
	for p.next < len(p.chart.Events) {
		e := p.chart.Events[p.next]
		if e.Offset() > pos {
			break
		}
		latch.ApplyNoteBits(e.NoteBits)
		p.next++
		applied++
	}
	return applied
}
