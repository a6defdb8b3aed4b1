package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vibebox/internal/app/binding"
	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/app/notification"
	"github.com/osa030/vibebox/internal/app/playback"
	"github.com/osa030/vibebox/internal/domain/button"
	"github.com/osa030/vibebox/internal/domain/timing"
	"github.com/osa030/vibebox/internal/infra/input"
)

type queueSource struct {
	samples []device.Sample
	err     error
}

func (q *queueSource) Poll(context.Context) (device.Sample, error) {
	if q.err != nil {
		return device.Sample{}, q.err
	}
	if len(q.samples) == 0 {
		return device.Sample{}, input.ErrExhausted
	}
	s := q.samples[0]
	q.samples = q.samples[1:]
	return s, nil
}

func (q *queueSource) Close() error { return nil }

type recordingStream struct {
	mu  sync.Mutex
	got []*notification.Notification
}

func (s *recordingStream) Send(n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return nil
}

func (s *recordingStream) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func (s *recordingStream) ticks() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, n := range s.got {
		out = append(out, n.Snapshot.Tick)
	}
	return out
}

// stuckStream never returns from Send.
type stuckStream struct {
	release chan struct{}
}

func (s *stuckStream) Send(*notification.Notification) error {
	<-s.release
	return nil
}

func (s *recordingStream) events() []playback.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []playback.Event
	for _, n := range s.got {
		if n.Event != nil {
			out = append(out, *n.Event)
		}
	}
	return out
}

func newDevice(t *testing.T) *device.Device {
	t.Helper()
	d, err := device.New(device.Config{
		Button:   button.Config{HoldThreshold: 500, TickInterval: 10},
		Bindings: binding.Defaults(),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

// fakeClock advances by step on every read.
func fakeClock(step time.Duration) func() time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var n int
	return func() time.Time {
		t := base.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func press(b button.ID) device.Sample {
	var s device.Sample
	s.Buttons[b] = true
	return s
}

func TestRunner_StepStampsElapsedTime(t *testing.T) {
	src := &queueSource{samples: []device.Sample{{}, {}, {}}}
	r := New(Config{}, newDevice(t), src, nil)
	r.now = fakeClock(10 * time.Millisecond)

	var last device.Snapshot
	for i := 0; i < 3; i++ {
		snap, err := r.Step(context.Background())
		require.NoError(t, err)
		last = snap
	}
	assert.Equal(t, uint64(3), last.Tick)
	assert.Equal(t, timing.Timestamp(30), last.TimeNow)

	_, err := r.Step(context.Background())
	assert.ErrorIs(t, err, input.ErrExhausted)
}

func TestRunner_BroadcastsStateChanges(t *testing.T) {
	src := &queueSource{samples: []device.Sample{
		press(button.Button0), // toggle: prime
		{},
		{Beat: true}, // sync: start
		{},
	}}
	notify := notification.NewManager()
	stream := &recordingStream{}
	notify.Subscribe(stream)

	r := New(Config{BroadcastEvery: 0}, newDevice(t), src, notify)
	r.now = fakeClock(10 * time.Millisecond)

	for i := 0; i < 4; i++ {
		_, err := r.Step(context.Background())
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return len(stream.events()) == 2 }, 2*time.Second, time.Millisecond)
	events := stream.events()
	assert.Equal(t, playback.StatePrimed, events[0].To)
	assert.Equal(t, playback.StateStarted, events[1].To)
	assert.Equal(t, playback.TriggerSync, events[1].Trigger)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, stream.count(), "no periodic snapshots when BroadcastEvery is 0")
}

func TestRunner_PeriodicSnapshots(t *testing.T) {
	src := &queueSource{samples: make([]device.Sample, 6)}
	notify := notification.NewManager()
	stream := &recordingStream{}
	notify.Subscribe(stream)

	r := New(Config{BroadcastEvery: 2}, newDevice(t), src, notify)
	r.now = fakeClock(10 * time.Millisecond)

	for i := 0; i < 6; i++ {
		_, err := r.Step(context.Background())
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return stream.count() == 3 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []uint64{2, 4, 6}, stream.ticks())
}

func TestRunner_StuckSubscriberDoesNotSlowTicks(t *testing.T) {
	src := &queueSource{samples: make([]device.Sample, 50)}
	notify := notification.NewManager()
	defer notify.Close()
	stuck := &stuckStream{release: make(chan struct{})}
	defer close(stuck.release)
	notify.Subscribe(stuck)

	r := New(Config{BroadcastEvery: 1}, newDevice(t), src, notify)
	r.now = fakeClock(10 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 50; i++ {
		_, err := r.Step(context.Background())
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 250*time.Millisecond, "ticks must not wait on subscribers")
	assert.Equal(t, uint64(50), r.device.Snapshot().Tick)
}

func TestRunner_PollError(t *testing.T) {
	src := &queueSource{err: errors.New("port gone")}
	r := New(Config{}, newDevice(t), src, nil)

	_, err := r.Step(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll failed")
}

func TestRunner_RunStopsWhenExhausted(t *testing.T) {
	src := &queueSource{samples: make([]device.Sample, 3)}
	r := New(Config{TickInterval: time.Millisecond}, newDevice(t), src, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, r.Run(ctx))
	select {
	case <-r.Done():
	default:
		t.Fatal("done not closed")
	}
	assert.Equal(t, uint64(3), r.device.Snapshot().Tick)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	r := New(Config{TickInterval: time.Millisecond}, newDevice(t), input.Idle{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
