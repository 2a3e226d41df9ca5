package hostrpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/scenebridge/handle"
)

type boolClient = connect.Client[structpb.Struct, wrapperspb.BoolValue]

// Client calls a remote SceneService.
type Client struct {
	setSize        *boolClient
	render         *boolClient
	resetCamera    *boolClient
	startEventLoop *boolClient
	stopEventLoop  *boolClient
	removeObserver *boolClient
	capabilities   *connect.Client[structpb.Struct, structpb.Struct]
	watchEvents    *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a Client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	newBool := func(procedure string) *boolClient {
		return connect.NewClient[structpb.Struct, wrapperspb.BoolValue](httpClient, baseURL+procedure, opts...)
	}
	return &Client{
		setSize:        newBool(SetSizeProcedure),
		render:         newBool(RenderProcedure),
		resetCamera:    newBool(ResetCameraProcedure),
		startEventLoop: newBool(StartEventLoopProcedure),
		stopEventLoop:  newBool(StopEventLoopProcedure),
		removeObserver: newBool(RemoveObserverProcedure),
		capabilities:   connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CapabilitiesProcedure, opts...),
		watchEvents:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+WatchEventsProcedure, opts...),
	}
}

func (c *Client) SetSize(ctx context.Context, id handle.ID, width, height int) (bool, error) {
	return callBool(ctx, c.setSize, map[string]any{"id": uint32(id), "width": width, "height": height})
}

func (c *Client) Render(ctx context.Context, id handle.ID) (bool, error) {
	return callBool(ctx, c.render, map[string]any{"id": uint32(id)})
}

func (c *Client) ResetCamera(ctx context.Context, id handle.ID) (bool, error) {
	return callBool(ctx, c.resetCamera, map[string]any{"id": uint32(id)})
}

// StartEventLoop blocks until the remote loop exits.
func (c *Client) StartEventLoop(ctx context.Context, id handle.ID) (bool, error) {
	return callBool(ctx, c.startEventLoop, map[string]any{"id": uint32(id)})
}

func (c *Client) StopEventLoop(ctx context.Context, id handle.ID) (bool, error) {
	return callBool(ctx, c.stopEventLoop, map[string]any{"id": uint32(id)})
}

func (c *Client) RemoveObserver(ctx context.Context, id handle.ID, tag uint64) (bool, error) {
	return callBool(ctx, c.removeObserver, map[string]any{"id": uint32(id), "tag": tag})
}

// Capabilities lists the capability names of id.
func (c *Client) Capabilities(ctx context.Context, id handle.ID) ([]string, error) {
	req, err := structpb.NewStruct(map[string]any{"id": uint32(id)})
	if err != nil {
		return nil, err
	}
	resp, err := c.capabilities.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, v := range resp.Msg.GetFields()["capabilities"].GetListValue().GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

// WatchEvents subscribes to eventName on id. It returns once the server
// has acknowledged the subscription.
func (c *Client) WatchEvents(ctx context.Context, id handle.ID, eventName string) (*Watch, error) {
	req, err := structpb.NewStruct(map[string]any{"id": uint32(id), "event": eventName})
	if err != nil {
		return nil, err
	}
	stream, err := c.watchEvents.CallServerStream(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}

	if !stream.Receive() {
		err := stream.Err()
		stream.Close()
		if err == nil {
			err = errors.New("event stream closed before acknowledgement")
		}
		return nil, err
	}

	ack := stream.Msg()
	token, err := intArg(ack, "token")
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("invalid acknowledgement: %w", err)
	}
	subscription, _ := stringArg(ack, "subscription")

	return &Watch{stream: stream, token: uint64(token), subscription: subscription}, nil
}

// Watch is an open WatchEvents stream.
type Watch struct {
	stream       *connect.ServerStreamForClient[structpb.Struct]
	token        uint64
	subscription string
}

// Token returns the observer tag the server attached.
func (w *Watch) Token() uint64 { return w.token }

// Subscription returns the server-assigned subscription id.
func (w *Watch) Subscription() string { return w.subscription }

// Receive blocks for the next event. It returns io.EOF once the server
// ends the stream, which happens when the observed object is destroyed.
func (w *Watch) Receive() (Event, error) {
	if !w.stream.Receive() {
		if err := w.stream.Err(); err != nil {
			return Event{}, err
		}
		return Event{}, io.EOF
	}
	return eventFromStruct(w.stream.Msg())
}

// Close ends the stream.
func (w *Watch) Close() error { return w.stream.Close() }

func callBool(ctx context.Context, client *boolClient, fields map[string]any) (bool, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return false, err
	}
	resp, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return false, err
	}
	return resp.Msg.GetValue(), nil
}
