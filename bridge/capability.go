package bridge

import (
	"fmt"

	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/object"
)

// Capability names a behaviour a registered object may support.
type Capability string

const (
	CapObservable Capability = "observable"
	CapRenderable Capability = "renderable"
	CapWindow     Capability = "window"
	CapInteractor Capability = "interactor"
	CapCamera     Capability = "camera"
)

// capabilities is ordered for stable listings.
var capabilities = []struct {
	cap Capability
	has func(any) bool
}{
	{CapObservable, func(o any) bool { _, ok := o.(object.Observable); return ok }},
	{CapRenderable, func(o any) bool { _, ok := o.(object.Renderable); return ok }},
	{CapWindow, func(o any) bool { _, ok := o.(object.Window); return ok }},
	{CapInteractor, func(o any) bool { _, ok := o.(object.Interactor); return ok }},
	{CapCamera, func(o any) bool { _, ok := o.(object.CameraResetter); return ok }},
}

// Capabilities lists what the object registered under id supports.
func (m *Manager) Capabilities(id handle.ID) ([]Capability, error) {
	obj, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	var out []Capability
	for _, c := range capabilities {
		if c.has(obj) {
			out = append(out, c.cap)
		}
	}
	return out, nil
}

// Check reports why an operation needing c would fail on id, or nil if it
// would be dispatched. It returns an error wrapping ErrNotFound or
// ErrCapabilityMismatch.
func (m *Manager) Check(id handle.ID, c Capability) error {
	obj, err := m.lookup(id)
	if err != nil {
		return err
	}
	for _, entry := range capabilities {
		if entry.cap != c {
			continue
		}
		if !entry.has(obj) {
			return mismatch(id, obj, c)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown capability %q", ErrInvalidArgument, c)
}

func (m *Manager) lookup(id handle.ID) (any, error) {
	obj, ok := m.registry.Resolve(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return obj, nil
}

// as resolves id and views the object as T.
func as[T any](m *Manager, id handle.ID, c Capability) (T, error) {
	var zero T
	obj, err := m.lookup(id)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, mismatch(id, obj, c)
	}
	return v, nil
}

func mismatch(id handle.ID, obj any, c Capability) error {
	return fmt.Errorf("%w: %d is %T, not %s", ErrCapabilityMismatch, id, obj, c)
}
