// Package runner drives the device tick loop at a fixed rate.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/app/notification"
	"github.com/osa030/vibebox/internal/app/playback"
	"github.com/osa030/vibebox/internal/domain/timing"
	"github.com/osa030/vibebox/internal/infra/input"
)

// Config holds runner configuration.
type Config struct {
	TickInterval   time.Duration // Spacing of ticks
	BroadcastEvery int           // Broadcast a snapshot every N ticks (0 = only on state changes)
}

// Runner polls the input source and ticks the device.
type Runner struct {
	config Config
	device *device.Device
	source input.Source
	notify *notification.Manager

	now   func() time.Time
	start time.Time

	ticks    uint64
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a runner. notify may be nil.
func New(cfg Config, dev *device.Device, src input.Source, notify *notification.Manager) *Runner {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 10 * time.Millisecond
	}
	return &Runner{
		config: cfg,
		device: dev,
		source: src,
		notify: notify,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Run ticks until ctx is cancelled or the source is exhausted. Tick errors
// are logged and the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	defer r.stopOnce.Do(func() { close(r.done) })

	r.start = r.now()
	ticker := time.NewTicker(r.config.TickInterval)
	defer ticker.Stop()

	zlog.Info().Msgf("runner: started interval=%v", r.config.TickInterval)

	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("runner: stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Step(ctx); err != nil {
				if errors.Is(err, input.ErrExhausted) {
					zlog.Info().Msg("runner: input exhausted")
					return nil
				}
				zlog.Warn().Msgf("runner: %v", err)
			}
		}
	}
}

// Step performs one tick: sample the clock, poll the source, tick the device
// and broadcast.
func (r *Runner) Step(ctx context.Context) (device.Snapshot, error) {
	if r.start.IsZero() {
		r.start = r.now()
	}
	stamp := timing.FromElapsed(r.now().Sub(r.start))

	sample, err := r.source.Poll(ctx)
	if err != nil {
		return r.device.Snapshot(), errors.Wrap(err, "poll failed")
	}
	sample.Now = stamp

	snap, err := r.device.Tick(sample)
	if err != nil {
		return snap, err
	}
	r.ticks++

	r.broadcast(snap)
	return snap, nil
}

func (r *Runner) broadcast(snap device.Snapshot) {
	events := r.pendingEvents()
	if r.notify == nil {
		return
	}

	for i := range events {
		r.notify.Broadcast(&notification.Notification{Snapshot: snap, Event: &events[i]})
	}

	if len(events) == 0 && r.config.BroadcastEvery > 0 && r.ticks%uint64(r.config.BroadcastEvery) == 0 {
		r.notify.Broadcast(&notification.Notification{Snapshot: snap})
	}
}

// pendingEvents drains the playback events produced by the last tick.
func (r *Runner) pendingEvents() []playback.Event {
	var events []playback.Event
	for {
		select {
		case e, ok := <-r.device.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}
