// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/vibebox/internal/app/binding"
	"github.com/osa030/vibebox/internal/domain/button"
	"github.com/osa030/vibebox/internal/domain/timing"
)

// Config represents the application configuration.
type Config struct {
	Device   DeviceConfig    `yaml:"device"`
	Bindings []BindingConfig `yaml:"bindings" validate:"dive"`
	Charts   ChartsConfig    `yaml:"charts"`
	Input    InputConfig     `yaml:"input"`
	API      APIConfig       `yaml:"api"`
	Hooks    HooksConfig     `yaml:"hooks"`
}

// DeviceConfig represents tick loop and button timing configuration.
type DeviceConfig struct {
	TickIntervalMs  int  `yaml:"tick_interval_ms" default:"10" validate:"gte=1,lte=1000"`
	HoldThresholdMs int  `yaml:"hold_threshold_ms" default:"500" validate:"gte=1,lte=60000"`
	BroadcastEvery  *int `yaml:"broadcast_every" default:"10" validate:"omitempty,gte=0"` // 0 = only on state changes
}

// BindingConfig binds a button edge to an action.
type BindingConfig struct {
	Button int    `yaml:"button" validate:"gte=0,lt=3"`
	On     string `yaml:"on" validate:"oneof=press hold release"`
	Action string `yaml:"action" validate:"required"`
}

// ChartsConfig represents the chart library location.
type ChartsConfig struct {
	Dir string `yaml:"dir"`
}

// InputConfig selects the raw input source.
type InputConfig struct {
	Type     string         `yaml:"type" default:"none" validate:"oneof=none script midi keyboard"`
	Settings map[string]any `yaml:"settings"`
}

// APIConfig represents the RPC server configuration.
type APIConfig struct {
	Disabled bool   `yaml:"disabled"`
	Addr     string `yaml:"addr" default:":8090"`
	Token    string `yaml:"token" validate:"required_if=Disabled false"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if len(cfg.Bindings) == 0 {
		cfg.Bindings = DefaultBindings()
	}
	for i := range cfg.Bindings {
		if cfg.Bindings[i].On == "" {
			cfg.Bindings[i].On = "press"
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.API.Disabled = true
	cfg.Bindings = DefaultBindings()
	return cfg
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("VIBEBOX_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("VIBEBOX_CHART_DIR"); v != "" {
		c.Charts.Dir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if _, err := c.ParseBindings(); err != nil {
		return err
	}

	return nil
}

// TickInterval returns the tick spacing.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Device.TickIntervalMs) * time.Millisecond
}

// BroadcastEvery returns the periodic snapshot interval in ticks. Zero
// disables periodic snapshots.
func (c *Config) BroadcastEvery() int {
	if c.Device.BroadcastEvery == nil {
		return 10
	}
	return *c.Device.BroadcastEvery
}

// ButtonConfig returns the tracker configuration.
func (c *Config) ButtonConfig() button.Config {
	return button.Config{
		HoldThreshold: timing.Duration(c.Device.HoldThresholdMs),
		TickInterval:  timing.Duration(c.Device.TickIntervalMs),
	}
}

// ParseBindings converts the configured bindings.
func (c *Config) ParseBindings() ([]binding.Binding, error) {
	out := make([]binding.Binding, 0, len(c.Bindings))
	for i, b := range c.Bindings {
		edge, err := binding.ParseEdge(b.On)
		if err != nil {
			return nil, errors.Wrapf(err, "binding %d", i)
		}
		action, err := binding.ParseAction(b.Action)
		if err != nil {
			return nil, errors.Wrapf(err, "binding %d", i)
		}
		out = append(out, binding.Binding{Button: button.ID(b.Button), On: edge, Action: action})
	}
	return out, nil
}

// DefaultBindings returns the stock bindings in config form.
func DefaultBindings() []BindingConfig {
	defs := binding.Defaults()
	out := make([]BindingConfig, len(defs))
	for i, b := range defs {
		out[i] = BindingConfig{Button: int(b.Button), On: edgeName(b.On), Action: b.Action.String()}
	}
	return out
}

func edgeName(e button.Edge) string {
	switch e {
	case button.EdgeHeld:
		return "hold"
	case button.EdgeReleased:
		return "release"
	default:
		return "press"
	}
}
