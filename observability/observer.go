// Package observability carries diagnostic events out of the bridge.
// Subsystems describe what happened as an Event and hand it to an Observer,
// which decides whether it becomes a log line, a span event, or nothing.
// Level values follow OpenTelemetry SeverityNumber ranges so events can be
// forwarded to OTel backends unchanged.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is the severity of an Event.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG range 5-8
	LevelInfo    Level = 9  // OTel INFO range 9-12
	LevelWarning Level = 13 // OTel WARN range 13-16
	LevelError   Level = 17 // OTel ERROR range 17-20
)

// String returns the OTel severity text of l.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel converts l to the slog level used when logging it.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names what happened, dot separated by subsystem
// (for example "bridge.loop.start").
type EventType string

// Event is a single diagnostic record.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// NewEvent stamps an event with the current time.
func NewEvent(typ EventType, level Level, source string, data map[string]any) Event {
	return Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

// Observer receives events. Implementations must be safe for concurrent
// use and must not block.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) { f(ctx, event) }
