package camera

import (
	"github.com/Faultbox/arbox/pkg/math"
)

// CameraSpace returns V·[p;1]: x and y follow the screen axes, z is depth
// and negative in front of the camera.
func CameraSpace(p math.Vec3, view math.Mat4) math.Vec3 {
	return view.TransformPoint(p)
}

// Depth returns only the camera-space z of p.
func Depth(p math.Vec3, view math.Mat4) float32 {
	return view.Row(2).Dot3(p)
}

// InFront reports whether p lies strictly in front of the camera.
func InFront(p math.Vec3, view math.Mat4) bool {
	return Depth(p, view) < 0
}

// AllInFront reports whether every given point is in front of the camera.
// It is vacuously true when there are no points.
func AllInFront(view math.Mat4, faces ...[]math.Vec3) bool {
	for _, face := range faces {
		for _, p := range face {
			if !InFront(p, view) {
				return false
			}
		}
	}
	return true
}

// NearestIndex returns the index of the point closest to cameraPos in the
// horizontal (x,z) plane. Ties resolve to the lowest index. It returns
// false when points is empty.
func NearestIndex(points []math.Vec3, cameraPos math.Vec3) (int, bool) {
	if len(points) == 0 {
		return -1, false
	}

	c := cameraPos.XZ()
	idx := 0
	best := points[0].XZ().Distance(c)
	for i := 1; i < len(points); i++ {
		if d := points[i].XZ().Distance(c); d < best {
			best = d
			idx = i
		}
	}
	return idx, true
}
