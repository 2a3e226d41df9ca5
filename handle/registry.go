// Package handle maps opaque identifiers to live scene objects.
//
// The registry holds non-owning references: objects belong to the scene
// graph or the host, and the registry only answers which object an
// identifier currently names. Observable objects are dropped from the
// registry when they fire event.DeleteEvent.
package handle

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/scenebridge/event"
	"github.com/tailored-agentic-units/scenebridge/object"
)

// ID identifies a registered object. Zero is never assigned.
type ID uint32

// Invalid is the reserved "no object" identifier.
const Invalid ID = 0

type entry struct {
	object    any
	deleteTag uint64
}

// Registry is the identifier table. Resolve may run concurrently with
// other calls; writes are serialized by the registry lock.
type Registry struct {
	mu      sync.RWMutex
	next    ID
	objects map[ID]entry
	ids     map[any]ID
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		next:    1,
		objects: make(map[ID]entry),
		ids:     make(map[any]ID),
	}
}

// Register assigns a fresh identifier to obj.
// If obj is already registered its existing identifier is returned.
func (r *Registry) Register(obj any) (ID, error) {
	if err := checkObject(obj); err != nil {
		return Invalid, err
	}

	r.mu.Lock()
	if id, exists := r.ids[obj]; exists {
		r.mu.Unlock()
		return id, nil
	}

	id, err := r.allocate()
	if err != nil {
		r.mu.Unlock()
		return Invalid, err
	}
	r.insert(id, obj)
	r.mu.Unlock()

	if !r.watch(id, obj) {
		return Invalid, ErrDestroyed
	}
	return id, nil
}

// RegisterAt registers obj under a caller-chosen identifier, as needed
// when restoring a scene whose identifiers were assigned elsewhere.
func (r *Registry) RegisterAt(id ID, obj any) error {
	if id == Invalid {
		return ErrInvalidID
	}
	if err := checkObject(obj); err != nil {
		return err
	}

	r.mu.Lock()
	if existing, exists := r.ids[obj]; exists {
		r.mu.Unlock()
		if existing == id {
			return nil
		}
		return fmt.Errorf("%w: as %d", ErrAlreadyRegistered, existing)
	}
	if _, exists := r.objects[id]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrIDInUse, id)
	}
	r.insert(id, obj)
	r.mu.Unlock()

	if !r.watch(id, obj) {
		return ErrDestroyed
	}
	return nil
}

// Unregister drops id. It returns false if id was not registered.
// The object itself is left untouched.
func (r *Registry) Unregister(id ID) bool {
	r.mu.Lock()
	e, exists := r.objects[id]
	if exists {
		delete(r.objects, id)
		delete(r.ids, e.object)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}
	if obs, ok := e.object.(object.Observable); ok && e.deleteTag != 0 {
		obs.RemoveObserver(e.deleteTag)
	}
	return true
}

// Resolve returns the object registered under id.
func (r *Registry) Resolve(id ID) (any, bool) {
	if id == Invalid {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.objects[id]
	return e.object, exists
}

// IdentifierOf returns the identifier obj is registered under.
func (r *Registry) IdentifierOf(obj any) (ID, bool) {
	if checkObject(obj) != nil {
		return Invalid, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.ids[obj]
	return id, exists
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// IDs returns the registered identifiers in ascending order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	ids := make([]ID, 0, len(r.objects))
	for id := range r.objects {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// allocate returns the next unused identifier, wrapping past the top of
// the range and skipping Invalid. r.mu must be held.
func (r *Registry) allocate() (ID, error) {
	if uint64(len(r.objects)) >= math.MaxUint32 {
		return Invalid, ErrExhausted
	}
	for {
		id := r.next
		r.next++
		if r.next == Invalid {
			r.next = 1
		}
		if _, used := r.objects[id]; !used && id != Invalid {
			return id, nil
		}
	}
}

// insert records obj under id. r.mu must be held.
func (r *Registry) insert(id ID, obj any) {
	r.objects[id] = entry{object: obj}
	r.ids[obj] = id
}

// watch attaches a DeleteEvent observer that unregisters id once the
// object is destroyed. It runs without r.mu held because the object may
// fire synchronously. It returns false if the object was already
// destroyed, in which case id has been dropped again.
func (r *Registry) watch(id ID, obj any) bool {
	obs, ok := obj.(object.Observable)
	if !ok {
		return true
	}

	tag := obs.AddObserver(event.DeleteEvent.String(), &object.Command{
		Callback: func(any, event.ID, any, any) {
			r.Unregister(id)
		},
	})
	if tag == 0 {
		r.Unregister(id)
		return false
	}

	r.mu.Lock()
	e, exists := r.objects[id]
	if exists && e.object == obj {
		e.deleteTag = tag
		r.objects[id] = e
		r.mu.Unlock()
		return true
	}
	r.mu.Unlock()

	// Unregistered while the observer was being attached.
	obs.RemoveObserver(tag)
	return true
}

func checkObject(obj any) error {
	if obj == nil {
		return ErrNilObject
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return ErrNilObject
		}
	}
	if !v.Type().Comparable() {
		return fmt.Errorf("%w: %T", ErrNotComparable, obj)
	}
	return nil
}
