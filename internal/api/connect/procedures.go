package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// DeviceServiceName is the fully-qualified name of the DeviceService service.
const DeviceServiceName = "vibebox.v1.DeviceService"

// Procedure paths of DeviceService.
const (
	DeviceServiceGetSnapshotProcedure    = "/vibebox.v1.DeviceService/GetSnapshot"
	DeviceServiceSendCommandProcedure    = "/vibebox.v1.DeviceService/SendCommand"
	DeviceServiceWatchSnapshotsProcedure = "/vibebox.v1.DeviceService/WatchSnapshots"
)

// DeviceServiceHandler is the server side of DeviceService. Messages are
// well-known protobuf types so no generated code is needed.
type DeviceServiceHandler interface {
	GetSnapshot(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error)
	SendCommand(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)
	WatchSnapshots(context.Context, *connect.Request[emptypb.Empty], *connect.ServerStream[structpb.Struct]) error
}

// NewDeviceServiceHandler builds an HTTP handler for svc and returns the
// path it should be mounted on.
func NewDeviceServiceHandler(svc DeviceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	getSnapshot := connect.NewUnaryHandler(DeviceServiceGetSnapshotProcedure, svc.GetSnapshot, opts...)
	sendCommand := connect.NewUnaryHandler(DeviceServiceSendCommandProcedure, svc.SendCommand, opts...)
	watchSnapshots := connect.NewServerStreamHandler(DeviceServiceWatchSnapshotsProcedure, svc.WatchSnapshots, opts...)

	return "/" + DeviceServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DeviceServiceGetSnapshotProcedure:
			getSnapshot.ServeHTTP(w, r)
		case DeviceServiceSendCommandProcedure:
			sendCommand.ServeHTTP(w, r)
		case DeviceServiceWatchSnapshotsProcedure:
			watchSnapshots.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// DeviceServiceClient is a client for DeviceService.
type DeviceServiceClient struct {
	getSnapshot    *connect.Client[emptypb.Empty, structpb.Struct]
	sendCommand    *connect.Client[structpb.Struct, structpb.Struct]
	watchSnapshots *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewDeviceServiceClient creates a client for the server at baseURL.
func NewDeviceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *DeviceServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &DeviceServiceClient{
		getSnapshot:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+DeviceServiceGetSnapshotProcedure, opts...),
		sendCommand:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+DeviceServiceSendCommandProcedure, opts...),
		watchSnapshots: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+DeviceServiceWatchSnapshotsProcedure, opts...),
	}
}

// GetSnapshot calls vibebox.v1.DeviceService.GetSnapshot.
func (c *DeviceServiceClient) GetSnapshot(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return c.getSnapshot.CallUnary(ctx, req)
}

// SendCommand calls vibebox.v1.DeviceService.SendCommand.
func (c *DeviceServiceClient) SendCommand(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return c.sendCommand.CallUnary(ctx, req)
}

// WatchSnapshots calls vibebox.v1.DeviceService.WatchSnapshots.
func (c *DeviceServiceClient) WatchSnapshots(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.ServerStreamForClient[structpb.Struct], error) {
	return c.watchSnapshots.CallServerStream(ctx, req)
}
