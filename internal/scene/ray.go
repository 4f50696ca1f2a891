package scene

import (
	gomath "math"

	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/pkg/math"
)

// Ray represents a ray in world space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// ScreenToRay converts a screen point in pixels to a world-space ray from
// the camera position through that pixel.
func ScreenToRay(screen math.Vec2, vp Viewport, pose camera.Pose) Ray {
	ndcX, ndcY := vp.toNDC(screen)

	// Direction in camera space; the camera looks down -Z.
	tanHalf := float32(gomath.Tan(float64(vp.FovY) / 2))
	dir := math.Vec3{
		X: ndcX * tanHalf * vp.Aspect(),
		Y: ndcY * tanHalf,
		Z: -1,
	}

	return Ray{
		Origin:    pose.Position(),
		Direction: pose.World.TransformDirection(dir).Normalize(),
	}
}

// IntersectPlaneY intersects the ray with a horizontal plane at the given Y
// level. It returns false when the ray is parallel to the plane or the
// intersection lies behind the origin.
func (r Ray) IntersectPlaneY(planeY float32) (math.Vec3, bool) {
	// Ray: P = Origin + t * Direction
	// Plane: Y = planeY
	if gomath.Abs(float64(r.Direction.Y)) < 0.001 {
		return math.Vec3{}, false
	}

	t := (planeY - r.Origin.Y) / r.Direction.Y
	if t < 0 {
		return math.Vec3{}, false
	}

	return math.Vec3{
		X: r.Origin.X + t*r.Direction.X,
		Y: planeY,
		Z: r.Origin.Z + t*r.Direction.Z,
	}, true
}
