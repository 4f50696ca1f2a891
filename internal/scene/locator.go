package scene

import (
	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/pkg/math"
)

// PlaneLocator finds surfaces on a single horizontal floor plane, which is
// what a host reports for an uncluttered floor.
type PlaneLocator struct {
	Viewport Viewport
	FloorY   float32
	// MaxDistance ignores hits further than this from the camera; zero
	// means no limit.
	MaxDistance float32
}

// Locate casts a ray through the screen point and intersects it with the
// floor.
func (l PlaneLocator) Locate(screen math.Vec2, pose camera.Pose) (math.Vec3, bool) {
	ray := ScreenToRay(screen, l.Viewport, pose)
	hit, ok := ray.IntersectPlaneY(l.FloorY)
	if !ok || !hit.IsFinite() {
		return math.Vec3{}, false
	}
	if l.MaxDistance > 0 && hit.Distance(ray.Origin) > l.MaxDistance {
		return math.Vec3{}, false
	}
	return hit, true
}
