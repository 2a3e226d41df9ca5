package hostrpc

import (
	"context"
	"fmt"
	"sync"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/scenebridge/bridge"
	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/scene"
)

// watchEvents attaches an observer for {"id", "event"} and streams one
// message per event until the client goes away or the observer is
// released. The first message acknowledges the subscription with
// {"subscription", "token"}.
func (s *Server) watchEvents(ctx context.Context, req *connect.Request[structpb.Struct], stream *connect.ServerStream[structpb.Struct]) error {
	id, err := idArg(req.Msg, "id")
	if err != nil {
		return connectError(err)
	}
	name, err := stringArg(req.Msg, "event")
	if err != nil {
		return connectError(err)
	}

	subscription := uuid.Must(uuid.NewV7()).String()
	queue := scene.NewEventQueue[Event](s.cfg.EventBuffer)
	defer queue.Close()

	released := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(released) }) }

	cb := func(origin handle.ID, eventName string) {
		if !queue.Post(Event{Origin: origin, Name: eventName}) {
			s.dropped.Add(1)
			s.logger.WarnContext(ctx, "event dropped",
				"subscription", subscription,
				"id", origin,
				"event", eventName)
		}
	}

	token := s.mgr.AddObserverFunc(ctx, id, name, cb, release)

	if token == 0 {
		if err := s.mgr.Check(id, bridge.CapObservable); err != nil {
			return connectError(err)
		}
		return connect.NewError(connect.CodeNotFound, fmt.Errorf("%w: %d was destroyed", bridge.ErrNotFound, id))
	}
	defer s.mgr.RemoveObserver(context.WithoutCancel(ctx), id, token)

	s.streams.Add(1)
	defer s.streams.Add(-1)

	s.logger.DebugContext(ctx, "event stream opened",
		"subscription", subscription,
		"id", id,
		"event", name,
		"token", token)
	defer s.logger.DebugContext(ctx, "event stream closed", "subscription", subscription)

	ack := &structpb.Struct{Fields: map[string]*structpb.Value{
		"subscription": structpb.NewStringValue(subscription),
		"token":        structpb.NewNumberValue(float64(token)),
	}}
	if err := stream.Send(ack); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-released:
			return s.drain(queue, stream, token)
		case ev := <-queue.C():
			ev.Token = token
			if err := stream.Send(ev.toStruct()); err != nil {
				return err
			}
		}
	}
}

// drain sends events queued before the observer was released.
func (s *Server) drain(queue *scene.EventQueue[Event], stream *connect.ServerStream[structpb.Struct], token uint64) error {
	for {
		ev, ok := queue.TryReceive()
		if !ok {
			return nil
		}
		ev.Token = token
		if err := stream.Send(ev.toStruct()); err != nil {
			return err
		}
	}
}
