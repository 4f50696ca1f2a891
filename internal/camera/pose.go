// Package camera provides per-frame camera pose math: camera-space
// coordinates of world points, the in-front test and nearest-vertex lookup.
package camera

import (
	"github.com/Faultbox/arbox/pkg/math"
)

// TrackingState mirrors the quality of the host's world tracking for a frame.
type TrackingState int

const (
	// TrackingNormal means the pose is reliable.
	TrackingNormal TrackingState = iota
	// TrackingLimited means the pose is usable for display but not for placing points.
	TrackingLimited
	// TrackingNotAvailable means the pose should not be trusted at all.
	TrackingNotAvailable
)

// String returns the state name used in logs and traces.
func (s TrackingState) String() string {
	switch s {
	case TrackingNormal:
		return "normal"
	case TrackingLimited:
		return "limited"
	case TrackingNotAvailable:
		return "not_available"
	default:
		return "unknown"
	}
}

// ParseTrackingState converts a trace/config name into a TrackingState.
// Empty input means normal tracking.
func ParseTrackingState(s string) (TrackingState, bool) {
	switch s {
	case "", "normal":
		return TrackingNormal, true
	case "limited":
		return TrackingLimited, true
	case "not_available":
		return TrackingNotAvailable, true
	default:
		return TrackingNotAvailable, false
	}
}

// Pose is one camera pose delivered by the host.
type Pose struct {
	// View maps world space to camera space (V).
	View math.Mat4
	// World maps camera space to world space (W); its translation is the
	// camera position.
	World math.Mat4
	// Tracking is the host's tracking quality for this frame.
	Tracking TrackingState
}

// NewPose builds a pose from a camera-to-world transform.
// It returns false if the transform cannot be inverted.
func NewPose(world math.Mat4) (Pose, bool) {
	view, ok := world.Inverse()
	if !ok {
		return Pose{}, false
	}
	return Pose{View: view, World: world, Tracking: TrackingNormal}, true
}

// LookAtPose builds a pose for a camera at eye looking at target with +Y up.
func LookAtPose(eye, target math.Vec3) Pose {
	view := math.LookAt(eye, target, math.Vec3{Y: 1})
	world, _ := view.Inverse()
	return Pose{View: view, World: world, Tracking: TrackingNormal}
}

// Position returns the camera position in world space.
func (p Pose) Position() math.Vec3 {
	return p.World.Translation()
}

// Tracked reports whether candidates may be computed for this pose.
func (p Pose) Tracked() bool {
	return p.Tracking == TrackingNormal
}
