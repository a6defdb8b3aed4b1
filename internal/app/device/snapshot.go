package device

import (
	"github.com/osa030/vibebox/internal/app/playback"
	"github.com/osa030/vibebox/internal/domain/arrow"
	"github.com/osa030/vibebox/internal/domain/button"
	"github.com/osa030/vibebox/internal/domain/timing"
)

// Sample is one tick worth of raw input.
type Sample struct {
	Now     timing.Timestamp
	Buttons [button.Count]bool
	Arrows  [arrow.Count]bool
	Beat    bool // External beat-sync pulse observed this tick
}

// Snapshot is a consistent copy of the device state taken at the end of a tick.
type Snapshot struct {
	Tick        uint64
	Buttons     [button.Count]button.State
	Arrows      [arrow.Count]bool
	Playback    playback.State
	TimeNow     timing.Timestamp
	TimeBeat    timing.Timestamp
	SyncPending bool

	ChartTitle    string
	ChartIndex    int
	ChartCount    int
	ChartPosition timing.Duration
	ChartApplied  int
	ChartTotal    int
}
