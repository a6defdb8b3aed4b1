package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vibebox/internal/app/binding"
	"github.com/osa030/vibebox/internal/domain/button"
	"github.com/osa030/vibebox/internal/domain/timing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("api:\n  token: secret\n"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Device.TickIntervalMs)
	assert.Equal(t, 500, cfg.Device.HoldThresholdMs)
	assert.Equal(t, 10, cfg.BroadcastEvery())
	assert.Equal(t, "none", cfg.Input.Type)
	assert.Equal(t, ":8090", cfg.API.Addr)
	assert.Equal(t, 10*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, button.Config{HoldThreshold: 500, TickInterval: 10}, cfg.ButtonConfig())

	bindings, err := cfg.ParseBindings()
	require.NoError(t, err)
	assert.Equal(t, binding.Defaults(), bindings)
}

func TestParse_BroadcastEvery(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{name: "default", data: "api: {disabled: true}\n", want: 10},
		{name: "explicit zero disables", data: "api: {disabled: true}\ndevice:\n  broadcast_every: 0\n", want: 0},
		{name: "custom", data: "api: {disabled: true}\ndevice:\n  broadcast_every: 3\n", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.BroadcastEvery())
		})
	}

	_, err := Parse([]byte("api: {disabled: true}\ndevice:\n  broadcast_every: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BroadcastEvery")
}

func TestParse_CustomBindings(t *testing.T) {
	data := `
device:
  tick_interval_ms: 5
  hold_threshold_ms: 750
bindings:
  - button: 0
    action: start
  - button: 0
    on: hold
    action: stop
  - button: 2
    on: release
    action: sync
api:
  disabled: true
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	bindings, err := cfg.ParseBindings()
	require.NoError(t, err)
	assert.Equal(t, []binding.Binding{
		{Button: button.Button0, On: button.EdgePressed, Action: binding.ActionStart},
		{Button: button.Button0, On: button.EdgeHeld, Action: binding.ActionStop},
		{Button: button.Button2, On: button.EdgeReleased, Action: binding.ActionSync},
	}, bindings)
	assert.Equal(t, timing.Duration(750), cfg.ButtonConfig().HoldThreshold)
	assert.True(t, cfg.API.Disabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "missing api token",
			data:    "device:\n  tick_interval_ms: 10\n",
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name: "token not needed when api disabled",
			data: "api:\n  disabled: true\n",
		},
		{
			name:    "button out of range",
			data:    "api: {disabled: true}\nbindings:\n  - button: 3\n    action: stop\n",
			wantErr: true,
			errMsg:  "Button",
		},
		{
			name:    "unknown edge",
			data:    "api: {disabled: true}\nbindings:\n  - button: 1\n    on: wiggle\n    action: stop\n",
			wantErr: true,
			errMsg:  "On",
		},
		{
			name:    "unknown action",
			data:    "api: {disabled: true}\nbindings:\n  - button: 1\n    action: rewind\n",
			wantErr: true,
			errMsg:  "unknown action",
		},
		{
			name:    "unknown input type",
			data:    "api: {disabled: true}\ninput:\n  type: serial\n",
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "tick interval too large",
			data:    "api: {disabled: true}\ndevice:\n  tick_interval_ms: 5000\n",
			wantErr: true,
			errMsg:  "TickIntervalMs",
		},
		{
			name:    "malformed yaml",
			data:    "device: [",
			wantErr: true,
			errMsg:  "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vibebox.yaml")
	require.NoError(t, os.WriteFile(path, []byte("charts:\n  dir: charts\n"), 0o644))

	t.Setenv("VIBEBOX_API_TOKEN", "from-env")
	t.Setenv("VIBEBOX_CHART_DIR", "/srv/charts")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.API.Token)
	assert.Equal(t, "/srv/charts", cfg.Charts.Dir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.API.Disabled)
	assert.Len(t, cfg.Bindings, len(binding.Defaults()))
}
