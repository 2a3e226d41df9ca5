package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tailored-agentic-units/scenebridge/event"
	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/object"
	"github.com/tailored-agentic-units/scenebridge/observability"
)

// Callback receives bridged events: the identifier the observer was
// attached through and the event name.
type Callback func(origin handle.ID, eventName string)

// record is the bridge state owned by one native observer. The observed
// object frees it exactly once through Command.ClientDataDelete.
type record struct {
	origin   handle.ID
	name     string
	callback Callback
	release  func()
	released atomic.Bool
}

// AddObserver attaches cb to the event named eventName on the object
// registered under id. It returns the observer tag, or 0 on failure.
//
// Unknown event names are accepted but never fire. cb runs on whichever
// goroutine fires the event, usually the one running the event loop.
func (m *Manager) AddObserver(ctx context.Context, id handle.ID, eventName string, cb Callback) uint64 {
	return m.AddObserverFunc(ctx, id, eventName, cb, nil)
}

// AddObserverFunc is AddObserver with a release hook. release, if non-nil,
// runs exactly once when the bridge record is freed: when the observer is
// removed, when the object is destroyed, or at once if the object refuses
// the registration or panics while accepting it. It is not called when 0
// is returned because id did not resolve or cb was nil.
func (m *Manager) AddObserverFunc(ctx context.Context, id handle.ID, eventName string, cb Callback, release func()) (tag uint64) {
	ctx, span := m.start(ctx, "add_observer", id)
	defer span.End()

	ok := true
	var rec *record
	defer func() {
		if !ok {
			tag = 0
			if rec != nil {
				m.free(rec)
			}
		}
	}()
	defer m.recoverOp(ctx, span, "add_observer", id, &ok)

	if cb == nil {
		m.finish(ctx, span, "add_observer", id, fmt.Errorf("%w: nil callback", ErrInvalidArgument))
		return 0
	}

	obs, err := as[object.Observable](m, id, CapObservable)
	if err != nil {
		m.finish(ctx, span, "add_observer", id, err)
		return 0
	}

	eid := event.Parse(eventName)
	if !eid.Known() {
		m.emit(ctx, EventObserverUnknown, observability.LevelWarning, map[string]any{
			"id":    id,
			"event": eventName,
		})
	}

	rec = &record{origin: id, name: eventName, callback: cb, release: release}
	m.metrics.RecordObserver(1)

	tag = obs.AddObserver(eventName, &object.Command{
		Callback:   m.deliver,
		ClientData: rec,
		ClientDataDelete: func(clientData any) {
			if r, ok := clientData.(*record); ok {
				m.free(r)
			}
		},
	})

	if tag == 0 {
		m.finish(ctx, span, "add_observer", id, fmt.Errorf("%w: %d was destroyed", ErrNotFound, id))
		return 0
	}

	m.emit(ctx, EventObserverAdd, observability.LevelVerbose, map[string]any{
		"id":    id,
		"event": eventName,
		"tag":   tag,
	})
	m.finish(ctx, span, "add_observer", id, nil)
	return tag
}

// RemoveObserver detaches the observer tagged tag from the object
// registered under id. It returns true whenever id resolves to an
// observable object, whether or not tag was attached.
func (m *Manager) RemoveObserver(ctx context.Context, id handle.ID, tag uint64) (ok bool) {
	ctx, span := m.start(ctx, "remove_observer", id)
	defer span.End()
	defer m.recoverOp(ctx, span, "remove_observer", id, &ok)

	obs, err := as[object.Observable](m, id, CapObservable)
	if err != nil {
		return m.finish(ctx, span, "remove_observer", id, err)
	}

	obs.RemoveObserver(tag)

	m.emit(ctx, EventObserverRemove, observability.LevelVerbose, map[string]any{
		"id":  id,
		"tag": tag,
	})
	return m.finish(ctx, span, "remove_observer", id, nil)
}

// deliver is the native callback of every bridged observer.
func (m *Manager) deliver(_ any, eid event.ID, clientData any, _ any) {
	rec, ok := clientData.(*record)
	if !ok || rec.released.Load() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.emit(context.Background(), EventCallbackPanic, observability.LevelError, map[string]any{
				"id":    rec.origin,
				"event": eid.String(),
				"panic": fmt.Sprint(r),
			})
		}
	}()

	m.metrics.RecordDelivered(1)
	rec.callback(rec.origin, eid.String())
}

func (m *Manager) free(rec *record) {
	if !rec.released.CompareAndSwap(false, true) {
		return
	}
	m.metrics.RecordObserver(-1)

	m.emit(context.Background(), EventObserverRelease, observability.LevelVerbose, map[string]any{
		"id":    rec.origin,
		"event": rec.name,
	})

	if rec.release != nil {
		rec.release()
	}
}
