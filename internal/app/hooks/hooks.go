// Package hooks runs shell commands on playback state changes.
package hooks

import (
	"context"
	"os"
	"os/exec"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibebox/internal/app/notification"
	"github.com/osa030/vibebox/internal/app/playback"
)

// Config lists the commands to run per state.
type Config struct {
	OnStarted []string
	OnStopped []string
}

// Runner is a notification stream that runs hooks for playback events.
// Commands run in the background; Wait blocks until they finish.
type Runner struct {
	config Config
	ctx    context.Context
	wg     sync.WaitGroup
}

// NewRunner creates a hook runner. Commands are killed when ctx is done.
func NewRunner(ctx context.Context, cfg Config) *Runner {
	return &Runner{config: cfg, ctx: ctx}
}

// Send implements notification.Stream.
func (r *Runner) Send(n *notification.Notification) error {
	if n.Event == nil {
		return nil
	}

	var cmds []string
	switch n.Event.To {
	case playback.StateStarted:
		cmds = r.config.OnStarted
	case playback.StateStopped:
		cmds = r.config.OnStopped
	}
	if len(cmds) == 0 {
		return nil
	}

	env := append(os.Environ(),
		"VIBEBOX_PLAYBACK="+n.Event.To.String(),
		"VIBEBOX_TRIGGER="+n.Event.Trigger.String(),
		"VIBEBOX_CHART="+n.Snapshot.ChartTitle,
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(n.Event.To.String(), cmds, env)
	}()
	return nil
}

// Wait blocks until every started hook has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(stage string, cmds []string, env []string) {
	zlog.Info().Msgf("hooks: executing %s hooks (%d commands)", stage, len(cmds))

	for _, hook := range cmds {
		zlog.Debug().Msgf("hooks: %s", hook)
		cmd := exec.CommandContext(r.ctx, "sh", "-c", hook)
		cmd.Env = env
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("hooks: failed to execute hook: %s", hook)
		}
	}
}
