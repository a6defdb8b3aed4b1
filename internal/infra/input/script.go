package input

import (
	"context"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/domain/arrow"
	"github.com/osa030/vibebox/internal/domain/button"
)

// ScriptConfig configures a scripted source.
type ScriptConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	Loop bool   `mapstructure:"loop"`
}

// Step is one scripted raw reading, held for Repeat ticks.
type Step struct {
	Buttons []bool `yaml:"buttons"`
	Arrows  []bool `yaml:"arrows"`
	Beat    bool   `yaml:"beat"`
	Repeat  int    `yaml:"repeat"`
}

// Script is a replayable list of steps.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// ParseScript parses a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "failed to parse script")
	}
	for i, st := range s.Steps {
		if len(st.Buttons) > button.Count {
			return nil, errors.Wrapf(button.ErrInvalidIndex, "step %d: %d buttons", i, len(st.Buttons))
		}
		if len(st.Arrows) > arrow.Count {
			return nil, errors.Wrapf(arrow.ErrInvalidIndex, "step %d: %d arrows", i, len(st.Arrows))
		}
		if st.Repeat < 0 {
			return nil, errors.Newf("step %d: negative repeat", i)
		}
	}
	return &s, nil
}

// ScriptSource replays a script, one sample per tick. A beat fires only on
// the first tick of its step.
type ScriptSource struct {
	mu     sync.Mutex
	script *Script
	loop   bool
	step   int
	count  int
}

// NewScriptSource creates a source for a parsed script.
func NewScriptSource(script *Script, loop bool) *ScriptSource {
	return &ScriptSource{script: script, loop: loop}
}

// NewScriptSourceFromSettings loads the script named in the settings.
func NewScriptSourceFromSettings(settings map[string]any) (*ScriptSource, error) {
	var cfg ScriptConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "script source")
	}
	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read script file")
	}
	script, err := ParseScript(data)
	if err != nil {
		return nil, err
	}
	return NewScriptSource(script, cfg.Loop), nil
}

// Poll returns the next scripted sample.
func (s *ScriptSource) Poll(ctx context.Context) (device.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step >= len(s.script.Steps) {
		if !s.loop || len(s.script.Steps) == 0 {
			return device.Sample{}, ErrExhausted
		}
		s.step = 0
		s.count = 0
	}

	st := s.script.Steps[s.step]
	var sample device.Sample
	copy(sample.Buttons[:], st.Buttons)
	copy(sample.Arrows[:], st.Arrows)
	sample.Beat = st.Beat && s.count == 0

	s.count++
	if s.count >= max(st.Repeat, 1) {
		s.step++
		s.count = 0
	}
	return sample, nil
}

// Close does nothing.
func (s *ScriptSource) Close() error {
	return nil
}
