// Package input provides raw input sources that feed the device tick loop.
package input

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/infra/config"
)

// ErrExhausted is returned by a source that has no more samples.
var ErrExhausted = errors.New("input exhausted")

// Source is a non-blocking raw input reader polled once per tick.
// The returned sample's Now field is ignored; the runner stamps it.
type Source interface {
	Poll(ctx context.Context) (device.Sample, error)
	Close() error
}

// Idle is a source with every input released.
type Idle struct{}

// Poll returns an empty sample.
func (Idle) Poll(context.Context) (device.Sample, error) {
	return device.Sample{}, nil
}

// Close does nothing.
func (Idle) Close() error {
	return nil
}

// NewFromConfig creates the source selected by the input configuration.
// The keyboard source is owned by the terminal view and is not built here.
func NewFromConfig(cfg config.InputConfig) (Source, error) {
	zlog.Debug().Msgf("creating input source: type=%s settings=%+v", cfg.Type, cfg.Settings)

	switch cfg.Type {
	case "", "none":
		return Idle{}, nil
	case "script":
		return NewScriptSourceFromSettings(cfg.Settings)
	case "midi":
		return NewMIDISourceFromSettings(cfg.Settings)
	default:
		return nil, errors.Newf("unsupported input type: %s", cfg.Type)
	}
}

// decodeSettings decodes, defaults and validates type-specific settings.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
