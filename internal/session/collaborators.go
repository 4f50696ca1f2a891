package session

import (
	"context"

	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/pkg/math"
)

// SurfaceLocator finds the world point of the nearest real surface under a
// screen point. It is only consulted while no vertex has been committed.
type SurfaceLocator interface {
	Locate(screen math.Vec2, pose camera.Pose) (math.Vec3, bool)
}

// ScreenProjector maps a world point to screen coordinates for overlays.
type ScreenProjector interface {
	Project(p math.Vec3, pose camera.Pose) (math.Vec2, bool)
}

// ImageExporter writes the current camera view to path.
type ImageExporter interface {
	Export(ctx context.Context, path string) error
}

// ViewCapturer is an optional ImageExporter extension. CaptureView grabs the
// view at once and returns a function that writes it out later, so an export
// shows the frame it was requested on even if newer poses arrive first.
type ViewCapturer interface {
	CaptureView(ctx context.Context, path string) (func(context.Context) error, error)
}

// LocatorFunc adapts a function to SurfaceLocator.
type LocatorFunc func(screen math.Vec2, pose camera.Pose) (math.Vec3, bool)

// Locate calls f.
func (f LocatorFunc) Locate(screen math.Vec2, pose camera.Pose) (math.Vec3, bool) {
	return f(screen, pose)
}

// ProjectorFunc adapts a function to ScreenProjector.
type ProjectorFunc func(p math.Vec3, pose camera.Pose) (math.Vec2, bool)

// Project calls f.
func (f ProjectorFunc) Project(p math.Vec3, pose camera.Pose) (math.Vec2, bool) {
	return f(p, pose)
}

// ExporterFunc adapts a function to ImageExporter.
type ExporterFunc func(ctx context.Context, path string) error

// Export calls f.
func (f ExporterFunc) Export(ctx context.Context, path string) error {
	return f(ctx, path)
}
