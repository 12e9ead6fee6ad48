package viewer

import (
	"math"

	"github.com/philipparndt/gomol/pkg/geometry"
)

// Camera represents a 3D orbit camera around a target point
type Camera struct {
	Position  geometry.Vector3
	Target    geometry.Vector3
	Up        geometry.Vector3
	FOV       float64 // Field of view in radians
	Distance  float64
	RotationX float64 // Elevation
	RotationY float64 // Azimuth
}

// NewCamera creates a new camera positioned to view a bounding box
func NewCamera(bbox geometry.BoundingBox) *Camera {
	center := bbox.Center()
	distance := math.Max(bbox.Radius()*2.5, 10)

	return &Camera{
		Position: center.Add(geometry.NewVector3(0, 0, distance)),
		Target:   center,
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      math.Pi / 4, // 45 degrees
		Distance: distance,
	}
}

// NewCameraLookAt creates a camera at position looking at target, with the
// orbit angles derived from the offset between the two
func NewCameraLookAt(position, target, up geometry.Vector3, fov float64) *Camera {
	if fov <= 0 {
		fov = math.Pi / 4
	}
	if up.Length() < 1e-9 {
		up = geometry.NewVector3(0, 1, 0)
	}
	offset := position.Sub(target)
	distance := offset.Length()
	c := &Camera{Position: position, Target: target, Up: up, FOV: fov, Distance: distance}
	if distance > 1e-9 {
		c.RotationX = math.Asin(clamp(offset.Y/distance, -1, 1))
		c.RotationY = math.Atan2(offset.X, offset.Z)
	} else {
		c.Distance = 10
		c.UpdatePosition()
	}
	return c
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// UpdatePosition updates camera position based on rotation angles
func (c *Camera) UpdatePosition() {
	x := c.Distance * math.Cos(c.RotationX) * math.Sin(c.RotationY)
	y := c.Distance * math.Sin(c.RotationX)
	z := c.Distance * math.Cos(c.RotationX) * math.Cos(c.RotationY)

	c.Position = c.Target.Add(geometry.NewVector3(x, y, z))
}

// Rotate rotates the camera by the given angles
func (c *Camera) Rotate(deltaX, deltaY float64) {
	c.RotationX += deltaX
	c.RotationY += deltaY

	// Clamp X rotation to prevent gimbal lock
	maxAngle := math.Pi/2 - 0.1
	c.RotationX = clamp(c.RotationX, -maxAngle, maxAngle)

	c.UpdatePosition()
}

// Zoom changes the camera distance
func (c *Camera) Zoom(delta float64) {
	c.Distance *= (1.0 + delta)
	if c.Distance < 0.5 {
		c.Distance = 0.5
	}
	c.UpdatePosition()
}

// Project projects a 3D point to 2D screen coordinates and returns its depth
func (c *Camera) Project(point geometry.Vector3, width, height float64) (float64, float64, float64) {
	forward := c.Target.Sub(c.Position).Normalize()
	right := forward.Cross(c.Up).Normalize()
	up := right.Cross(forward).Normalize()

	relative := point.Sub(c.Position)
	x := relative.Dot(right)
	y := relative.Dot(up)
	z := relative.Dot(forward)

	if z <= 0.01 {
		z = 0.01
	}

	aspect := width / height
	fovScale := math.Tan(c.FOV / 2)

	screenX := (x/(z*fovScale*aspect))*(width/2) + (width / 2)
	screenY := (-y/(z*fovScale))*(height/2) + (height / 2)

	return screenX, screenY, z
}

// PixelScale returns how many pixels one world unit covers at depth z
func (c *Camera) PixelScale(z, height float64) float64 {
	if z <= 0.01 {
		z = 0.01
	}
	return height / 2 / (z * math.Tan(c.FOV/2))
}
