package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/vibebox/internal/app/binding"
	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/app/notification"
)

// Controller is the part of the device the service drives.
type Controller interface {
	Snapshot() device.Snapshot
	Enqueue(binding.Action)
}

// DeviceService implements the DeviceService RPC.
type DeviceService struct {
	device Controller
	notify *notification.Manager
	done   <-chan struct{}
}

// NewDeviceService creates a new DeviceService. Streams end when done is
// closed.
func NewDeviceService(dev Controller, notify *notification.Manager, done <-chan struct{}) *DeviceService {
	return &DeviceService{
		device: dev,
		notify: notify,
		done:   done,
	}
}

// Register mounts svc on mux. SendCommand requires token.
func Register(mux *http.ServeMux, svc *DeviceService, token string) {
	path, handler := NewDeviceServiceHandler(
		svc,
		connect.WithInterceptors(NewTokenInterceptor(token, DeviceServiceSendCommandProcedure)),
	)
	mux.Handle(path, handler)
}

// Ensure DeviceService implements the interface.
var _ DeviceServiceHandler = (*DeviceService)(nil)

// GetSnapshot returns the state published by the last tick.
func (s *DeviceService) GetSnapshot(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	msg, err := SnapshotToStruct(s.device.Snapshot())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// SendCommand queues an action for the next tick.
func (s *DeviceService) SendCommand(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name := req.Msg.GetFields()["action"].GetStringValue()
	action, err := binding.ParseAction(name)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	s.device.Enqueue(action)
	zlog.Info().Msgf("api: queued %s", action)

	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"action": structpb.NewStringValue(action.String()),
		"queued": structpb.NewBoolValue(true),
	}}), nil
}

// WatchSnapshots sends the current state, then every broadcast until the
// client goes away or the device shuts down.
func (s *DeviceService) WatchSnapshots(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	initial, err := NotificationToStruct(&notification.Notification{Snapshot: s.device.Snapshot()})
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notify.Subscribe(adapter)
	defer s.notify.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[structpb.Struct]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	msg, err := NotificationToStruct(n)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(msg)
}
