package scene

import (
	"math"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/geometry"
)

const defaultFOV = 45 * math.Pi / 180

func defaultCamera() engine.CameraState {
	return engine.CameraState{
		Position: geometry.NewVector3(0, 0, 50),
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      defaultFOV,
	}
}

// frame points the camera at the box center from far enough away to see the
// whole box, keeping the viewing direction
func frame(cam engine.CameraState, box geometry.BoundingBox) engine.CameraState {
	if box.IsEmpty() {
		return cam
	}
	dir := cam.Position.Sub(cam.Target)
	if dir.Length() < 1e-9 {
		dir = geometry.NewVector3(0, 0, 1)
	}
	fov := cam.FOV
	if fov <= 0 {
		fov = defaultFOV
	}
	radius := math.Max(box.Radius(), 1)
	distance := radius / math.Sin(fov/2) * 1.1

	cam.Target = box.Center()
	cam.Position = cam.Target.Add(dir.Normalize().Mul(distance))
	return cam
}

// Snapshot implements engine.Camera
func (s *Engine) Snapshot() engine.CameraState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// Restore implements engine.Camera
func (s *Engine) Restore(state engine.CameraState) {
	s.mu.Lock()
	s.camera = state
	s.mu.Unlock()
	s.changed()
}
