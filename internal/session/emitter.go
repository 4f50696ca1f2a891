package session

import (
	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/internal/capture"
	"github.com/Faultbox/arbox/internal/solver"
	"github.com/Faultbox/arbox/pkg/math"
)

// Emitter turns one pose into one Snapshot. It keeps the last frame it saw
// so a commit uses exactly the inputs the host was last shown.
type Emitter struct {
	store     *capture.Store
	locator   SurfaceLocator
	projector ScreenProjector
	center    math.Vec2

	frame    solver.Frame
	hasFrame bool
	sequence uint64
}

// NewEmitter creates an emitter over store. screenCenter is where the
// surface locator looks for the first vertex. Nil collaborators behave as
// if they never find anything.
func NewEmitter(store *capture.Store, locator SurfaceLocator, projector ScreenProjector, screenCenter math.Vec2) *Emitter {
	return &Emitter{
		store:     store,
		locator:   locator,
		projector: projector,
		center:    screenCenter,
	}
}

// Frame returns the last processed frame.
func (e *Emitter) Frame() (solver.Frame, bool) {
	return e.frame, e.hasFrame
}

// Update processes one pose: it refreshes the nearest vertex, projects the
// committed faces, computes and projects the candidate and checks that
// every vertex is in front of the camera.
func (e *Emitter) Update(pose camera.Pose) Snapshot {
	stage := e.store.Stage()

	frame := solver.Frame{Pose: pose}
	if stage == capture.StageEmpty && pose.Tracked() && e.locator != nil {
		if hit, ok := e.locator.Locate(e.center, pose); ok {
			frame.Surface = &hit
		}
	}
	e.frame = frame
	e.hasFrame = true
	e.sequence++

	e.store.Track(pose.Position())

	bottom := e.store.Bottom()
	top := e.store.Top()
	snap := Snapshot{
		Sequence:            e.sequence,
		Stage:               stage.String(),
		BottomPoints:        points(bottom),
		BottomPointsScreen:  e.project(bottom, pose),
		TopPoints:           points(top),
		TopPointsScreen:     e.project(top, pose),
		CameraPosition:      pose.Position().Slice(),
		FirstCameraPosition: []float32{},
		ViewTransform:       pose.View.Rows(),
		AllPointsInFront:    camera.AllInFront(pose.View, bottom, top),
	}
	if first, ok := e.store.FirstCamera(); ok {
		snap.FirstCameraPosition = first.Slice()
	}
	if idx, ok := e.store.Nearest(); ok {
		snap.NearestIndex = &idx
	}
	if d, ok := e.store.Dimensions(); ok {
		snap.Dimensions = &d
	}

	if c, ok := e.candidate(stage, frame); ok {
		snap.CandidatePoint = c.Point.Slice()
		if sp, ok := e.projectPoint(c.Point, pose); ok {
			snap.CandidatePointScreen = sp.Slice()
		}
	}
	return snap
}

func (e *Emitter) candidate(stage capture.Stage, frame solver.Frame) (solver.Candidate, bool) {
	switch {
	case stage == capture.StageDone:
		return solver.Candidate{}, false
	case stage == capture.StageEmpty && frame.Surface == nil:
		return solver.Candidate{}, false
	}
	return e.store.Candidate(frame)
}

func (e *Emitter) project(face []math.Vec3, pose camera.Pose) [][]float32 {
	out := make([][]float32, 0, len(face))
	for _, p := range face {
		if sp, ok := e.projectPoint(p, pose); ok {
			out = append(out, sp.Slice())
		}
	}
	return out
}

func (e *Emitter) projectPoint(p math.Vec3, pose camera.Pose) (math.Vec2, bool) {
	if e.projector == nil {
		return math.Vec2{}, false
	}
	return e.projector.Project(p, pose)
}

func points(face []math.Vec3) [][]float32 {
	out := make([][]float32, 0, len(face))
	for _, p := range face {
		out = append(out, p.Slice())
	}
	return out
}
