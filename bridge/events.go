package bridge

import "github.com/tailored-agentic-units/scenebridge/observability"

// Bridge event types.
const (
	EventDispatch        observability.EventType = "bridge.dispatch"
	EventDispatchFailed  observability.EventType = "bridge.dispatch.failed"
	EventPanic           observability.EventType = "bridge.panic"
	EventObserverAdd     observability.EventType = "bridge.observer.add"
	EventObserverRemove  observability.EventType = "bridge.observer.remove"
	EventObserverRelease observability.EventType = "bridge.observer.release"
	EventObserverUnknown observability.EventType = "bridge.observer.unknown_event"
	EventCallbackPanic   observability.EventType = "bridge.observer.callback_panic"
	EventLoopStart       observability.EventType = "bridge.loop.start"
	EventLoopExit        observability.EventType = "bridge.loop.exit"
	EventLoopStop        observability.EventType = "bridge.loop.stop"
)
