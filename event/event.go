// Package event defines the native event identifiers fired by scene objects
// and the stable names hosts use to refer to them.
package event

import (
	"strconv"
	"strings"
)

// ID identifies a native event.
type ID int

// Native events. The names returned by String are part of the host contract
// and must not change.
const (
	NoEvent ID = iota
	AnyEvent
	DeleteEvent
	StartEvent
	EndEvent
	RenderEvent
	ProgressEvent
	PickEvent
	ExitEvent
	LeftButtonPressEvent
	LeftButtonReleaseEvent
	MiddleButtonPressEvent
	MiddleButtonReleaseEvent
	RightButtonPressEvent
	RightButtonReleaseEvent
	EnterEvent
	LeaveEvent
	KeyPressEvent
	KeyReleaseEvent
	CharEvent
	ExposeEvent
	ConfigureEvent
	TimerEvent
	MouseMoveEvent
	MouseWheelForwardEvent
	MouseWheelBackwardEvent
	ResetCameraEvent
	ResetCameraClippingRangeEvent
	ModifiedEvent
	WindowResizeEvent
	StartInteractionEvent
	InteractionEvent
	EndInteractionEvent

	// UserEvent is the first id available for application events.
	// Ids above it are named "UserEvent+n".
	UserEvent ID = 1000
)

var names = [...]string{
	NoEvent:                       "NoEvent",
	AnyEvent:                      "AnyEvent",
	DeleteEvent:                   "DeleteEvent",
	StartEvent:                    "StartEvent",
	EndEvent:                      "EndEvent",
	RenderEvent:                   "RenderEvent",
	ProgressEvent:                 "ProgressEvent",
	PickEvent:                     "PickEvent",
	ExitEvent:                     "ExitEvent",
	LeftButtonPressEvent:          "LeftButtonPressEvent",
	LeftButtonReleaseEvent:        "LeftButtonReleaseEvent",
	MiddleButtonPressEvent:        "MiddleButtonPressEvent",
	MiddleButtonReleaseEvent:      "MiddleButtonReleaseEvent",
	RightButtonPressEvent:         "RightButtonPressEvent",
	RightButtonReleaseEvent:       "RightButtonReleaseEvent",
	EnterEvent:                    "EnterEvent",
	LeaveEvent:                    "LeaveEvent",
	KeyPressEvent:                 "KeyPressEvent",
	KeyReleaseEvent:               "KeyReleaseEvent",
	CharEvent:                     "CharEvent",
	ExposeEvent:                   "ExposeEvent",
	ConfigureEvent:                "ConfigureEvent",
	TimerEvent:                    "TimerEvent",
	MouseMoveEvent:                "MouseMoveEvent",
	MouseWheelForwardEvent:        "MouseWheelForwardEvent",
	MouseWheelBackwardEvent:       "MouseWheelBackwardEvent",
	ResetCameraEvent:              "ResetCameraEvent",
	ResetCameraClippingRangeEvent: "ResetCameraClippingRangeEvent",
	ModifiedEvent:                 "ModifiedEvent",
	WindowResizeEvent:             "WindowResizeEvent",
	StartInteractionEvent:         "StartInteractionEvent",
	InteractionEvent:              "InteractionEvent",
	EndInteractionEvent:           "EndInteractionEvent",
}

var ids = func() map[string]ID {
	m := make(map[string]ID, len(names)+1)
	for i, name := range names {
		m[name] = ID(i)
	}
	m["UserEvent"] = UserEvent
	return m
}()

const userPrefix = "UserEvent+"

// String returns the stable name of the event.
// Ids outside the known table map to "NoEvent".
func (id ID) String() string {
	switch {
	case id >= 0 && int(id) < len(names):
		return names[id]
	case id == UserEvent:
		return "UserEvent"
	case id > UserEvent:
		return userPrefix + strconv.Itoa(int(id-UserEvent))
	default:
		return names[NoEvent]
	}
}

// Known reports whether id names an event other than NoEvent.
func (id ID) Known() bool { return id != NoEvent && id.String() != names[NoEvent] }

// Parse returns the event whose name is name.
// It returns NoEvent when the name is not recognized.
func Parse(name string) ID {
	if id, ok := ids[name]; ok {
		return id
	}
	if n, ok := strings.CutPrefix(name, userPrefix); ok {
		if off, err := strconv.Atoi(n); err == nil && off > 0 {
			return UserEvent + ID(off)
		}
	}
	return NoEvent
}

// Names returns the names of the built-in events, NoEvent excluded,
// in id order.
func Names() []string {
	out := make([]string, 0, len(names))
	out = append(out, names[AnyEvent:]...)
	return append(out, "UserEvent")
}
