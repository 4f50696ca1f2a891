// Package math provides the small linear-algebra types used by the capture
// core: points in world space, screen coordinates and 4x4 transforms.
package math

import "math"

// Vec2 is a 2D vector. It holds screen coordinates and planar (x,z)
// projections of world points.
type Vec2 struct {
	X, Y float32
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Length returns the magnitude.
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Distance returns the distance to another point.
func (v Vec2) Distance(other Vec2) float32 {
	return v.Sub(other).Length()
}

// Slice returns [x, y].
func (v Vec2) Slice() []float32 {
	return []float32{v.X, v.Y}
}
