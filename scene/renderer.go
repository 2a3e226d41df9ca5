package scene

import (
	"fmt"
	"math"
	"sync"

	"github.com/tailored-agentic-units/scenebridge/event"
	"github.com/tailored-agentic-units/scenebridge/object"
)

// Camera is a perspective camera.
type Camera struct {
	Position   [3]float64
	FocalPoint [3]float64
	ViewUp     [3]float64
	ViewAngle  float64 // degrees
}

// DefaultCamera looks down -Z from (0,0,1) with a 30 degree view angle.
func DefaultCamera() Camera {
	return Camera{
		Position:  [3]float64{0, 0, 1},
		ViewUp:    [3]float64{0, 1, 0},
		ViewAngle: 30,
	}
}

// Renderer draws a set of props through a camera.
type Renderer struct {
	*object.Subject

	mu        sync.Mutex
	bounds    [6]float64
	hasBounds bool
	camera    Camera
	renders   int
}

// NewRenderer creates a renderer with the default camera and no props.
func NewRenderer() *Renderer {
	r := &Renderer{camera: DefaultCamera()}
	r.Subject = object.NewSubject(r)
	return r
}

// SetBounds sets the bounds of the visible props as
// (xmin, xmax, ymin, ymax, zmin, zmax).
func (r *Renderer) SetBounds(bounds [6]float64) {
	r.mu.Lock()
	r.bounds = bounds
	r.hasBounds = true
	r.mu.Unlock()
}

// Camera returns a copy of the active camera.
func (r *Renderer) Camera() Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}

// SetCamera replaces the active camera.
func (r *Renderer) SetCamera(c Camera) {
	r.mu.Lock()
	r.camera = c
	r.mu.Unlock()
}

// ResetCamera moves the camera so that every visible prop is in view.
// The focal point moves to the centre of the bounds and the camera backs
// off along its current direction of projection until the bounding sphere
// fits the view angle. Without props, the unit cube centred at the origin
// is used. It fires ResetCameraEvent.
func (r *Renderer) ResetCamera() {
	r.mu.Lock()
	b := r.bounds
	if !r.hasBounds {
		b = [6]float64{-1, 1, -1, 1, -1, 1}
	}

	center := [3]float64{(b[0] + b[1]) / 2, (b[2] + b[3]) / 2, (b[4] + b[5]) / 2}
	dx, dy, dz := b[1]-b[0], b[3]-b[2], b[5]-b[4]
	radius := math.Sqrt(dx*dx+dy*dy+dz*dz) / 2
	if radius == 0 {
		radius = 0.5
	}

	c := &r.camera
	normal := [3]float64{
		c.Position[0] - c.FocalPoint[0],
		c.Position[1] - c.FocalPoint[1],
		c.Position[2] - c.FocalPoint[2],
	}
	n := math.Sqrt(normal[0]*normal[0] + normal[1]*normal[1] + normal[2]*normal[2])
	if n == 0 {
		normal, n = [3]float64{0, 0, 1}, 1
	}

	angle := c.ViewAngle
	if angle <= 0 || angle >= 180 {
		angle = 30
	}
	distance := radius / math.Sin(angle*math.Pi/360)

	c.FocalPoint = center
	for i := range 3 {
		c.Position[i] = center[i] + distance*normal[i]/n
	}
	r.mu.Unlock()

	r.InvokeEvent(event.ResetCameraEvent, nil)
}

// Render draws the renderer's props once.
func (r *Renderer) Render() {
	r.InvokeEvent(event.StartEvent, nil)
	r.mu.Lock()
	r.renders++
	r.mu.Unlock()
	r.InvokeEvent(event.EndEvent, nil)
}

// Renders returns how many times Render has run.
func (r *Renderer) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

func (r *Renderer) ObjectDescription() string {
	return fmt.Sprintf("Renderer (%p)", r)
}
