// Package capture owns the committed vertices of a cuboid capture and the
// confirm/undo state machine that moves between capture stages.
package capture

import (
	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/internal/solver"
	"github.com/Faultbox/arbox/pkg/math"
)

// Stage is the observable capture state, named after the face cardinalities.
type Stage int

const (
	StageEmpty Stage = iota // (0,0)
	StageOne                // (1,0)
	StageTwo                // (2,0)
	StageFour               // (4,0)
	StageDone               // (4,4)
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageOne:
		return "one"
	case StageTwo:
		return "two"
	case StageFour:
		return "four"
	case StageDone:
		return "done"
	default:
		return "invalid"
	}
}

// Store holds the bottom and top faces, the nearest bottom index and the
// camera position at the first commit. It is not safe for concurrent use;
// a session serializes every call.
type Store struct {
	params      solver.Params
	bottom      []math.Vec3
	top         []math.Vec3
	nearest     int
	firstCamera *math.Vec3
}

// NewStore creates an empty store.
func NewStore(params solver.Params) *Store {
	return &Store{
		params:  params,
		bottom:  make([]math.Vec3, 0, 4),
		top:     make([]math.Vec3, 0, 4),
		nearest: -1,
	}
}

// Stage returns the current stage.
func (s *Store) Stage() Stage {
	switch {
	case len(s.top) == 4:
		return StageDone
	case len(s.bottom) == 4:
		return StageFour
	case len(s.bottom) == 2:
		return StageTwo
	case len(s.bottom) == 1:
		return StageOne
	default:
		return StageEmpty
	}
}

// Params returns the rule constants the store commits with.
func (s *Store) Params() solver.Params {
	return s.params
}

// Bottom returns a copy of the bottom face in winding order.
func (s *Store) Bottom() []math.Vec3 {
	return append([]math.Vec3(nil), s.bottom...)
}

// Top returns a copy of the top face; empty or four vertices.
func (s *Store) Top() []math.Vec3 {
	return append([]math.Vec3(nil), s.top...)
}

// Nearest returns the stored nearest bottom index.
func (s *Store) Nearest() (int, bool) {
	return s.nearest, s.nearest >= 0
}

// FirstCamera returns the camera position recorded with the first vertex.
func (s *Store) FirstCamera() (math.Vec3, bool) {
	if s.firstCamera == nil {
		return math.Vec3{}, false
	}
	return *s.firstCamera, true
}

// Faces returns the committed geometry as solver input.
func (s *Store) Faces() solver.Faces {
	return solver.Faces{
		Bottom:      s.bottom,
		Top:         s.top,
		FirstCamera: s.firstCamera,
	}
}

// Candidate previews the next vertex for frame without changing the store.
func (s *Store) Candidate(frame solver.Frame) (solver.Candidate, bool) {
	return solver.Solve(s.Faces(), frame, s.params)
}

// Track stores the bottom vertex nearest to the camera for this frame.
func (s *Store) Track(cameraPos math.Vec3) {
	if idx, ok := camera.NearestIndex(s.bottom, cameraPos); ok {
		s.nearest = idx
		return
	}
	s.nearest = -1
}

// Commit accepts the active candidate for frame and advances one stage.
// It returns the new stage and false when there was nothing to commit.
//
// Committing the third floor vertex also synthesizes the fourth by
// parallelogram closure, so the store goes from two to four vertices in
// one step. Committing the top candidate copies its height onto all four
// floor corners.
func (s *Store) Commit(frame solver.Frame) (Stage, bool) {
	stage := s.Stage()
	if stage == StageDone {
		return stage, false
	}

	c, ok := s.Candidate(frame)
	if !ok {
		return stage, false
	}

	switch stage {
	case StageEmpty:
		pos := frame.Pose.Position()
		s.firstCamera = &pos
		s.bottom = append(s.bottom, c.Point)
	case StageOne:
		s.bottom = append(s.bottom, c.Point)
	case StageTwo:
		s.nearest = c.Nearest
		fourth, at, ok := solver.Closure(append(s.Bottom(), c.Point), c.Nearest)
		if !ok {
			return stage, false
		}
		s.bottom = append(s.bottom, c.Point)
		s.bottom = insert(s.bottom, at, fourth)
	case StageFour:
		s.nearest = c.Nearest
		top := make([]math.Vec3, 0, 4)
		for _, p := range s.bottom {
			top = append(top, math.Vec3{X: p.X, Y: c.Point.Y, Z: p.Z})
		}
		s.top = top
	}
	return s.Stage(), true
}

// Undo rolls back one logical step and returns the new stage. It returns
// false when the store was already empty.
func (s *Store) Undo() (Stage, bool) {
	switch {
	case len(s.top) > 0:
		s.top = s.top[:0]
	case len(s.bottom) == 4:
		// Drops the captured third vertex and the synthesized fourth.
		s.bottom = s.bottom[:2]
	case len(s.bottom) > 0:
		s.bottom = s.bottom[:len(s.bottom)-1]
	default:
		return StageEmpty, false
	}

	if len(s.bottom) == 0 {
		s.nearest = -1
	} else if s.nearest >= len(s.bottom) {
		s.nearest = len(s.bottom) - 1
	}
	return s.Stage(), true
}

// Clear resets every field to its initial empty state.
func (s *Store) Clear() {
	s.bottom = s.bottom[:0]
	s.top = s.top[:0]
	s.nearest = -1
	s.firstCamera = nil
}

func insert(points []math.Vec3, at int, p math.Vec3) []math.Vec3 {
	points = append(points, math.Vec3{})
	copy(points[at+1:], points[at:])
	points[at] = p
	return points
}
