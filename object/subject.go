// Package object provides the observer subsystem shared by scene objects and
// the capability interfaces the bridge queries before dispatching.
package object

import (
	"sync"

	"github.com/tailored-agentic-units/scenebridge/event"
)

// Callback is invoked when an observed event fires. caller is the object
// that owns the Subject, clientData is Command.ClientData and callData is
// whatever the firing site passed to InvokeEvent.
type Callback func(caller any, eid event.ID, clientData any, callData any)

// Command binds a Callback to its client data.
//
// Once a Command is handed to AddObserver the Subject owns ClientData:
// ClientDataDelete is called exactly once, either when the observer is
// removed or when the Subject is destroyed, whichever happens first.
type Command struct {
	Callback         Callback
	ClientData       any
	ClientDataDelete func(clientData any)
}

type observer struct {
	tag     uint64
	eid     event.ID
	cmd     *Command
	removed bool
}

// Subject keeps the observers of a single object.
// The zero value is not usable; create one with NewSubject.
type Subject struct {
	owner     any
	mu        sync.Mutex
	observers []*observer
	nextTag   uint64
	destroyed bool
}

// NewSubject creates a Subject whose callbacks report owner as the caller.
func NewSubject(owner any) *Subject {
	return &Subject{owner: owner, nextTag: 1}
}

// AddObserver registers cmd for the event named name.
// Unknown names register against event.NoEvent, which never fires.
// It returns the observer tag, or 0 if cmd is nil or the Subject has been
// destroyed.
func (s *Subject) AddObserver(name string, cmd *Command) uint64 {
	return s.AddObserverEvent(event.Parse(name), cmd)
}

// AddObserverEvent registers cmd for eid.
func (s *Subject) AddObserverEvent(eid event.ID, cmd *Command) uint64 {
	if cmd == nil || cmd.Callback == nil {
		return 0
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		release(cmd)
		return 0
	}
	tag := s.nextTag
	s.nextTag++
	s.observers = append(s.observers, &observer{tag: tag, eid: eid, cmd: cmd})
	s.mu.Unlock()

	return tag
}

// RemoveObserver drops the observer identified by tag.
// Unknown and already removed tags are ignored.
func (s *Subject) RemoveObserver(tag uint64) {
	s.mu.Lock()
	var removed *observer
	for i, obs := range s.observers {
		if obs.tag == tag {
			removed = obs
			removed.removed = true
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if removed != nil {
		release(removed.cmd)
	}
}

// HasObserver reports whether any observer is registered for eid.
// AnyEvent observers count for every event.
func (s *Subject) HasObserver(eid event.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obs := range s.observers {
		if obs.eid == eid || obs.eid == event.AnyEvent {
			return true
		}
	}
	return false
}

// Len returns the number of registered observers.
func (s *Subject) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// InvokeEvent calls the observers of eid, and AnyEvent observers, in
// registration order. Callbacks run without the Subject lock held, so they
// may add or remove observers; an observer removed before its turn is
// skipped.
func (s *Subject) InvokeEvent(eid event.ID, callData any) {
	if eid == event.NoEvent {
		return
	}

	s.mu.Lock()
	matched := make([]*observer, 0, len(s.observers))
	for _, obs := range s.observers {
		if obs.eid == eid || obs.eid == event.AnyEvent {
			matched = append(matched, obs)
		}
	}
	s.mu.Unlock()

	for _, obs := range matched {
		s.mu.Lock()
		skip := obs.removed
		s.mu.Unlock()
		if skip {
			continue
		}
		obs.cmd.Callback(s.owner, eid, obs.cmd.ClientData, callData)
	}
}

// Destroy fires DeleteEvent and then tears down every remaining observer.
// Later calls do nothing.
func (s *Subject) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.mu.Unlock()

	s.InvokeEvent(event.DeleteEvent, nil)

	s.mu.Lock()
	remaining := s.observers
	s.observers = nil
	for _, obs := range remaining {
		obs.removed = true
	}
	s.mu.Unlock()

	for _, obs := range remaining {
		release(obs.cmd)
	}
}

// Destroyed reports whether Destroy has been called.
func (s *Subject) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func release(cmd *Command) {
	if cmd.ClientDataDelete != nil {
		cmd.ClientDataDelete(cmd.ClientData)
	}
}
