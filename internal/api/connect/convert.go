package connect

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/vibebox/internal/app/binding"
	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/app/notification"
	"github.com/osa030/vibebox/internal/app/playback"
)

// snapshotFields flattens a snapshot into structpb-compatible values.
func snapshotFields(s device.Snapshot) map[string]any {
	buttons := make([]any, len(s.Buttons))
	for i, b := range s.Buttons {
		buttons[i] = map[string]any{
			"is_pressed":       b.IsPressed,
			"is_pressed_now":   b.IsPressedNow,
			"held":             b.HeldState,
			"held_start_time":  uint32(b.HeldStartTime),
			"pressed_duration": uint32(b.PressedDuration),
		}
	}
	arrows := make([]any, len(s.Arrows))
	for i, a := range s.Arrows {
		arrows[i] = a
	}

	return map[string]any{
		"tick":         s.Tick,
		"playback":     s.Playback.String(),
		"buttons":      buttons,
		"arrows":       arrows,
		"time_now":     uint32(s.TimeNow),
		"time_beat":    uint32(s.TimeBeat),
		"sync_pending": s.SyncPending,
		"chart": map[string]any{
			"title":    s.ChartTitle,
			"index":    s.ChartIndex,
			"count":    s.ChartCount,
			"position": uint32(s.ChartPosition),
			"applied":  s.ChartApplied,
			"total":    s.ChartTotal,
		},
	}
}

func eventFields(e playback.Event) map[string]any {
	return map[string]any{
		"from":    e.From.String(),
		"to":      e.To.String(),
		"trigger": e.Trigger.String(),
		"at":      uint32(e.At),
	}
}

// SnapshotToStruct converts a snapshot to its wire form.
func SnapshotToStruct(s device.Snapshot) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(snapshotFields(s))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode snapshot")
	}
	return out, nil
}

// NotificationToStruct converts a notification to its wire form.
func NotificationToStruct(n *notification.Notification) (*structpb.Struct, error) {
	fields := map[string]any{
		"sequence_no": n.SequenceNo,
		"snapshot":    snapshotFields(n.Snapshot),
	}
	if n.Event != nil {
		fields["event"] = eventFields(*n.Event)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode notification")
	}
	return out, nil
}

// NewCommand builds a SendCommand request message.
func NewCommand(a binding.Action) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"action": structpb.NewStringValue(a.String()),
	}}
}
