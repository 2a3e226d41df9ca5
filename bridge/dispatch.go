package bridge

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/object"
)

// SetSize resizes the window registered under id through its interactor.
// It fails if id is not a window, the window has no interactor, or either
// dimension is not positive.
func (m *Manager) SetSize(ctx context.Context, id handle.ID, width, height int) (ok bool) {
	ctx, span := m.start(ctx, "set_size", id)
	defer span.End()
	defer m.recoverOp(ctx, span, "set_size", id, &ok)

	iren, err := m.interactorOf(id)
	if err == nil && (width <= 0 || height <= 0) {
		err = fmt.Errorf("%w: size %dx%d", ErrInvalidArgument, width, height)
	}
	if err != nil {
		return m.finish(ctx, span, "set_size", id, err)
	}

	iren.UpdateSize(width, height)
	return m.finish(ctx, span, "set_size", id, nil)
}

// Render draws the window registered under id.
func (m *Manager) Render(ctx context.Context, id handle.ID) (ok bool) {
	ctx, span := m.start(ctx, "render", id)
	defer span.End()
	defer m.recoverOp(ctx, span, "render", id, &ok)

	win, err := as[object.Window](m, id, CapWindow)
	if err != nil {
		return m.finish(ctx, span, "render", id, err)
	}

	win.Render()
	return m.finish(ctx, span, "render", id, nil)
}

// ResetCamera frames the visible content of the renderer registered
// under id.
func (m *Manager) ResetCamera(ctx context.Context, id handle.ID) (ok bool) {
	ctx, span := m.start(ctx, "reset_camera", id)
	defer span.End()
	defer m.recoverOp(ctx, span, "reset_camera", id, &ok)

	ren, err := as[object.CameraResetter](m, id, CapCamera)
	if err != nil {
		return m.finish(ctx, span, "reset_camera", id, err)
	}

	ren.ResetCamera()
	return m.finish(ctx, span, "reset_camera", id, nil)
}

// interactorOf resolves id as a window and returns its interactor.
func (m *Manager) interactorOf(id handle.ID) (object.Interactor, error) {
	win, err := as[object.Window](m, id, CapWindow)
	if err != nil {
		return nil, err
	}
	iren := win.Interactor()
	if iren == nil {
		return nil, fmt.Errorf("%w: window %d has no interactor", ErrCapabilityMismatch, id)
	}
	return iren, nil
}
