// Package scene provides reference collaborators for a capture session: a
// floor-plane surface locator, a pinhole screen projector and a software
// sketch of the overlay that can be exported as an image.
package scene

import (
	gomath "math"

	"github.com/Faultbox/arbox/pkg/math"
)

const (
	nearPlane = 0.01
	farPlane  = 100.0
)

// Viewport describes the host screen and the camera's vertical field of view.
type Viewport struct {
	Width  int
	Height int
	FovY   float32 // radians
}

// NewViewport creates a viewport with the field of view given in degrees.
func NewViewport(width, height int, fovDeg float32) Viewport {
	return Viewport{
		Width:  width,
		Height: height,
		FovY:   fovDeg * gomath.Pi / 180,
	}
}

// Aspect returns width/height.
func (v Viewport) Aspect() float32 {
	if v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// Center returns the screen centre in pixels.
func (v Viewport) Center() math.Vec2 {
	return math.Vec2{X: float32(v.Width) / 2, Y: float32(v.Height) / 2}
}

// Projection returns the perspective projection for this viewport.
func (v Viewport) Projection() math.Mat4 {
	return math.Perspective(v.FovY, v.Aspect(), nearPlane, farPlane)
}

// toNDC converts pixel coordinates to normalized device coordinates (-1 to 1).
func (v Viewport) toNDC(screen math.Vec2) (x, y float32) {
	x = 2*screen.X/float32(v.Width) - 1
	y = 1 - 2*screen.Y/float32(v.Height) // Flip Y
	return x, y
}

// fromNDC is the inverse of toNDC.
func (v Viewport) fromNDC(x, y float32) math.Vec2 {
	return math.Vec2{
		X: (x + 1) / 2 * float32(v.Width),
		Y: (1 - y) / 2 * float32(v.Height),
	}
}
