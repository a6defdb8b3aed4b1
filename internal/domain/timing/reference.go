package timing

import (
	"github.com/cockroachdb/errors"
)

// ErrClockWentBackwards is returned when a tick timestamp precedes the
// current one. Wraparound past the clock width is not an error.
var ErrClockWentBackwards = errors.New("clock went backwards")

// MaxBeatPeriod is the longest beat spacing treated as a tempo (30 BPM).
// Beats further apart start a new tempo measurement.
const MaxBeatPeriod Duration = 2000

// Reference holds the current tick time, the last recognized beat and the
// pending sync request latch.
type Reference struct {
	now         Timestamp
	beat        Timestamp
	syncPressed bool

	hasBeat bool
	period  Duration
}

// NewReference creates a reference starting at the given time with the beat
// aligned to it.
func NewReference(start Timestamp) *Reference {
	return &Reference{now: start, beat: start}
}

// Now returns the time of the current tick.
func (r *Reference) Now() Timestamp {
	return r.now
}

// Beat returns the time of the most recent beat.
func (r *Reference) Beat() Timestamp {
	return r.beat
}

// BeatPeriod returns the spacing of the last two beats, or zero when no
// tempo is known.
func (r *Reference) BeatPeriod() Duration {
	return r.period
}

// SinceBeat returns the time elapsed since the most recent beat.
func (r *Reference) SinceBeat() Duration {
	return r.now.Sub(r.beat)
}

// Advance moves the clock to now. Equal timestamps are accepted.
func (r *Reference) Advance(now Timestamp) error {
	if now.Before(r.now) {
		return errors.Wrapf(ErrClockWentBackwards, "tick %d precedes %d", now, r.now)
	}
	r.now = now

	// Keep the beat within MaxSpan of now so that beat <= now holds under
	// modular comparison no matter how long the device runs without a beat.
	if r.now.Sub(r.beat) > MaxSpan {
		r.beat = r.now - Timestamp(MaxSpan)
	}
	return nil
}

// RecordBeat stores the time of a recognized beat. A beat stamped later than
// the current tick is clamped to now.
func (r *Reference) RecordBeat(at Timestamp) {
	if at.After(r.now) || r.now.Sub(at) > MaxSpan {
		at = r.now
	}

	r.period = 0
	if r.hasBeat && at.After(r.beat) {
		if p := at.Sub(r.beat); p <= MaxBeatPeriod {
			r.period = p
		}
	}
	r.beat = at
	r.hasBeat = true
}

// RequestSync latches a sync request.
func (r *Reference) RequestSync() {
	r.syncPressed = true
}

// SyncPending reports whether a sync request is latched.
func (r *Reference) SyncPending() bool {
	return r.syncPressed
}

// ConsumeSync clears the latch and reports whether a request was pending.
func (r *Reference) ConsumeSync() bool {
	pending := r.syncPressed
	r.syncPressed = false
	return pending
}
