package input

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/domain/arrow"
	"github.com/osa030/vibebox/internal/domain/button"
)

// MIDIConfig configures a MIDI source. Notes held down read as pressed.
type MIDIConfig struct {
	Port        string `mapstructure:"port" validate:"required"`
	Channel     int    `mapstructure:"channel" validate:"gte=0,lte=16"` // 1-16, 0 accepts any channel
	ButtonNotes []int  `mapstructure:"button_notes" default:"[36,37,38]" validate:"len=3,dive,gte=0,lte=127"`
	ArrowNotes  []int  `mapstructure:"arrow_notes" default:"[48,49,50,51]" validate:"len=4,dive,gte=0,lte=127"`
	BeatNote    int    `mapstructure:"beat_note" default:"60" validate:"gte=0,lte=127"`
}

// MIDISource reads buttons, arrows and beat pulses from a MIDI input port.
type MIDISource struct {
	mu      sync.Mutex
	config  MIDIConfig
	buttons [button.Count]bool
	arrows  [arrow.Count]bool
	beats   int
	stop    func()
}

// newMIDISource creates an unconnected source.
func newMIDISource(cfg MIDIConfig) *MIDISource {
	return &MIDISource{config: cfg}
}

// NewMIDISourceFromSettings opens the configured MIDI input port.
func NewMIDISourceFromSettings(settings map[string]any) (*MIDISource, error) {
	var cfg MIDIConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "midi source")
	}
	zlog.Debug().Msgf("midi source config: %+v", cfg)

	in, err := gomidi.FindInPort(cfg.Port)
	if err != nil {
		return nil, errors.Wrapf(err, "midi input port %q not found", cfg.Port)
	}

	s := newMIDISource(cfg)
	stop, err := gomidi.ListenTo(in, s.handle)
	if err != nil {
		return nil, errors.Wrap(err, "open midi input")
	}
	s.stop = stop

	zlog.Info().Msgf("midi: listening on %s", in.String())
	return s, nil
}

// handle receives one MIDI message from the driver goroutine.
func (s *MIDISource) handle(msg gomidi.Message, timestampms int32) {
	var channel, key, velocity uint8

	var on bool
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		on = velocity > 0
	case msg.GetNoteOff(&channel, &key, &velocity):
		on = false
	default:
		return
	}

	if s.config.Channel > 0 && int(channel) != s.config.Channel-1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	note := int(key)
	if note == s.config.BeatNote {
		if on {
			s.beats++
		}
		return
	}
	for i, n := range s.config.ButtonNotes {
		if n == note && i < button.Count {
			s.buttons[i] = on
		}
	}
	for i, n := range s.config.ArrowNotes {
		if n == note && i < arrow.Count {
			s.arrows[i] = on
		}
	}
}

// Poll returns the current note state. Beat pulses received since the last
// poll collapse into one.
func (s *MIDISource) Poll(ctx context.Context) (device.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := device.Sample{
		Buttons: s.buttons,
		Arrows:  s.arrows,
		Beat:    s.beats > 0,
	}
	s.beats = 0
	return sample, nil
}

// Close stops listening.
func (s *MIDISource) Close() error {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	return nil
}
