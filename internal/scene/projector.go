package scene

import (
	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/pkg/math"
)

// PinholeProjector maps world points to viewport pixels through a
// perspective camera.
type PinholeProjector struct {
	Viewport Viewport
}

// Project returns the pixel position of p. It fails for points behind the
// camera or outside the clip volume.
func (pp PinholeProjector) Project(p math.Vec3, pose camera.Pose) (math.Vec2, bool) {
	viewProj := pp.Viewport.Projection().Mul(pose.View)
	clip := viewProj.MulVec4(math.Vec4{p.X, p.Y, p.Z, 1})

	// w is the distance in front of the camera.
	w := clip[3]
	if w <= 0 {
		return math.Vec2{}, false
	}

	x, y, z := clip[0]/w, clip[1]/w, clip[2]/w
	if x < -1 || x > 1 || y < -1 || y > 1 || z < -1 || z > 1 {
		return math.Vec2{}, false
	}
	return pp.Viewport.fromNDC(x, y), true
}
