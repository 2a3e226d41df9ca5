package bridge

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/object"
	"github.com/tailored-agentic-units/scenebridge/observability"
	"github.com/tailored-agentic-units/scenebridge/scene"
)

// StartEventLoop runs the interaction loop of the window registered under
// id on the calling goroutine. It returns true once StopEventLoop (or the
// interactor itself) ends the loop, or false immediately if id does not
// resolve to a window with an interactor.
//
// Before the loop starts the process is marked as externally driven, so
// the interactor leaves the window open when the loop exits. ctx carries
// trace and log context only; cancelling it does not stop the loop.
func (m *Manager) StartEventLoop(ctx context.Context, id handle.ID) (ok bool) {
	ctx, span := m.start(ctx, "start_event_loop", id)
	defer span.End()
	defer m.recoverOp(ctx, span, "start_event_loop", id, &ok)

	iren, err := m.interactorOf(id)
	if err != nil {
		return m.finish(ctx, span, "start_event_loop", id, err)
	}

	scene.SetExternallyDriven(true)

	m.emit(ctx, EventLoopStart, observability.LevelInfo, map[string]any{
		"id":         id,
		"interactor": describe(iren),
	})

	m.metrics.RecordLoop(1)
	defer m.metrics.RecordLoop(-1)

	iren.Start()

	m.emit(ctx, EventLoopExit, observability.LevelInfo, map[string]any{
		"id": id,
	})
	return m.finish(ctx, span, "start_event_loop", id, nil)
}

// StopEventLoop asks the interaction loop of the window registered under
// id to exit and returns without waiting for it. It succeeds even when no
// loop is running.
func (m *Manager) StopEventLoop(ctx context.Context, id handle.ID) (ok bool) {
	ctx, span := m.start(ctx, "stop_event_loop", id)
	defer span.End()
	defer m.recoverOp(ctx, span, "stop_event_loop", id, &ok)

	iren, err := m.interactorOf(id)
	if err != nil {
		return m.finish(ctx, span, "stop_event_loop", id, err)
	}

	m.emit(ctx, EventLoopStop, observability.LevelInfo, map[string]any{
		"id": id,
	})

	iren.TerminateApp()
	return m.finish(ctx, span, "stop_event_loop", id, nil)
}

func describe(obj any) string {
	if d, ok := obj.(object.Describer); ok {
		return d.ObjectDescription()
	}
	return fmt.Sprintf("%T", obj)
}
