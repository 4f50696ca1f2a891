package capture

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/internal/solver"
	"github.com/Faultbox/arbox/pkg/math"
)

const tol = 1e-4

func vec(x, y, z float32) math.Vec3 {
	return math.Vec3{X: x, Y: y, Z: z}
}

func frame(eye, target math.Vec3) solver.Frame {
	return solver.Frame{Pose: camera.LookAtPose(eye, target)}
}

func surfaceFrame(eye, target, hit math.Vec3) solver.Frame {
	f := frame(eye, target)
	f.Surface = &hit
	return f
}

// walk is a sequence of frames that builds a unit floor square with the
// third vertex anchored at the second one, then a top face.
func walk() []solver.Frame {
	return []solver.Frame{
		surfaceFrame(vec(0, 0, 5), vec(0, 0, 0), vec(0, 0, 0)),
		frame(vec(0, 1, 2), vec(0, 0, 1)),
		frame(vec(0, 1, 2), vec(1, 0, 1)),
		frame(vec(-0.5, 1, 3), vec(-0.5, 1, 2)),
	}
}

func commitAll(t *testing.T, s *Store, frames []solver.Frame) {
	t.Helper()
	for i, f := range frames {
		if _, ok := s.Commit(f); !ok {
			t.Fatalf("commit %d failed at stage %v", i, s.Stage())
		}
	}
}

func checkInvariants(t *testing.T, s *Store) {
	t.Helper()
	b, top := s.Bottom(), s.Top()
	switch len(b) {
	case 0, 1, 2, 4:
	default:
		t.Fatalf("bottom face has %d vertices", len(b))
	}
	if len(top) != 0 && len(top) != 4 {
		t.Fatalf("top face has %d vertices", len(top))
	}
	if len(top) == 4 {
		if len(b) != 4 {
			t.Fatalf("top face without a complete bottom face")
		}
		for i := range top {
			if top[i].X != b[i].X || top[i].Z != b[i].Z {
				t.Errorf("top[%d] = %v does not sit above bottom[%d] = %v", i, top[i], i, b[i])
			}
			if top[i].Y != top[0].Y {
				t.Errorf("top[%d] height %f differs from %f", i, top[i].Y, top[0].Y)
			}
		}
	}
}

func TestScenarioFirstPoint(t *testing.T) {
	s := NewStore(solver.DefaultParams())

	stage, ok := s.Commit(walk()[0])
	if !ok || stage != StageOne {
		t.Fatalf("Commit() = (%v, %v), want (one, true)", stage, ok)
	}
	if b := s.Bottom(); len(b) != 1 || b[0] != vec(0, 0, 0) {
		t.Errorf("bottom = %v, want [(0,0,0)]", b)
	}
	first, ok := s.FirstCamera()
	if !ok || first.Distance(vec(0, 0, 5)) > tol {
		t.Errorf("first camera = %v, want (0,0,5)", first)
	}
}

func TestScenarioSecondPointOnAxis(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, walk()[:2])

	b := s.Bottom()
	if len(b) != 2 {
		t.Fatalf("bottom has %d vertices, want 2", len(b))
	}
	if b[1].X > tol || b[1].X < -tol || b[1].Y != 0 || b[1].Z >= 5 {
		t.Errorf("second vertex = %v, want (0, 0, z<5)", b[1])
	}
	if b[1].Distance(vec(0, 0, 1)) > tol {
		t.Errorf("second vertex = %v, want (0,0,1)", b[1])
	}
}

func TestCommitSynthesizesFourth(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, walk()[:3])

	if s.Stage() != StageFour {
		t.Fatalf("stage = %v, want four", s.Stage())
	}
	want := []math.Vec3{vec(0, 0, 0), vec(0, 0, 1), vec(1, 0, 1), vec(1, 0, 0)}
	got := s.Bottom()
	for i := range want {
		if got[i].Distance(want[i]) > tol {
			t.Errorf("bottom[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !simpleQuad(got) {
		t.Errorf("bottom face %v is self-intersecting", got)
	}
	if idx, ok := s.Nearest(); !ok || idx != 1 {
		t.Errorf("nearest = (%d, %v), want (1, true)", idx, ok)
	}
}

func TestCommitInsertsFourthBeforeThird(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, []solver.Frame{
		surfaceFrame(vec(-1, 1, 3), vec(0, 0, 0), vec(0, 0, 0)),
		frame(vec(0, 1, 2), vec(0, 0, 1)),
		frame(vec(0, 1, -1), vec(1, 0, 0)),
	})

	want := []math.Vec3{vec(0, 0, 0), vec(0, 0, 1), vec(1, 0, 1), vec(1, 0, 0)}
	got := s.Bottom()
	for i := range want {
		if got[i].Distance(want[i]) > tol {
			t.Errorf("bottom[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !simpleQuad(got) {
		t.Errorf("bottom face %v is self-intersecting", got)
	}
}

func TestTopFace(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, walk())

	if s.Stage() != StageDone {
		t.Fatalf("stage = %v, want done", s.Stage())
	}
	checkInvariants(t, s)

	height := 1 + 2*float32(gomath.Tan(gomath.Pi/18))
	if top := s.Top(); abs(top[0].Y-height) > tol {
		t.Errorf("top height = %f, want %f", top[0].Y, height)
	}

	d, ok := s.Dimensions()
	if !ok {
		t.Fatal("Dimensions() not available")
	}
	if abs(d.Width-1) > tol || abs(d.Depth-1) > tol || abs(d.Height-height) > tol || abs(d.Volume-height) > tol {
		t.Errorf("Dimensions() = %+v", d)
	}
}

func TestCommitWhenDoneIsNoop(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, walk())

	before := s.Top()
	if stage, ok := s.Commit(walk()[3]); ok || stage != StageDone {
		t.Errorf("Commit() after done = (%v, %v)", stage, ok)
	}
	if after := s.Top(); after[0] != before[0] {
		t.Error("commit after done changed the top face")
	}
}

func TestAtMostFourCommits(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	frames := walk()
	commits := 0
	for _, f := range append(frames, frames...) {
		if _, ok := s.Commit(f); ok {
			commits++
		}
		checkInvariants(t, s)
	}
	if commits != 4 || s.Stage() != StageDone {
		t.Errorf("%d commits reached %v, want 4 commits to reach done", commits, s.Stage())
	}
}

func TestScenarioUndoFromDone(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, walk())
	bottom := s.Bottom()

	stage, ok := s.Undo()
	if !ok || stage != StageFour {
		t.Fatalf("Undo() = (%v, %v), want (four, true)", stage, ok)
	}
	if len(s.Top()) != 0 {
		t.Error("top face should be empty after undo")
	}
	after := s.Bottom()
	for i := range bottom {
		if after[i] != bottom[i] {
			t.Errorf("bottom[%d] changed from %v to %v", i, bottom[i], after[i])
		}
	}
}

func TestUndoIsLeftInverseOfCommit(t *testing.T) {
	frames := walk()
	for n := 0; n < len(frames); n++ {
		s := NewStore(solver.DefaultParams())
		commitAll(t, s, frames[:n])
		b, top := len(s.Bottom()), len(s.Top())

		if _, ok := s.Commit(frames[n]); !ok {
			t.Fatalf("commit %d failed", n)
		}
		checkInvariants(t, s)
		if _, ok := s.Undo(); !ok {
			t.Fatalf("undo after commit %d failed", n)
		}
		if len(s.Bottom()) != b || len(s.Top()) != top {
			t.Errorf("after commit %d + undo: (%d,%d), want (%d,%d)", n, len(s.Bottom()), len(s.Top()), b, top)
		}
	}
}

func TestUndoSequence(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, walk())

	want := []Stage{StageFour, StageTwo, StageOne, StageEmpty}
	for _, w := range want {
		stage, ok := s.Undo()
		if !ok || stage != w {
			t.Fatalf("Undo() = (%v, %v), want (%v, true)", stage, ok, w)
		}
		checkInvariants(t, s)
	}
	if _, ok := s.Undo(); ok {
		t.Error("Undo() on an empty store should be a no-op")
	}
	if _, ok := s.Nearest(); ok {
		t.Error("nearest should be undefined once empty")
	}
}

func TestClearTwiceEqualsOnce(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, walk())

	s.Clear()
	s.Clear()
	if s.Stage() != StageEmpty || len(s.Bottom()) != 0 || len(s.Top()) != 0 {
		t.Errorf("store not empty after clear: %v", s.Stage())
	}
	if _, ok := s.FirstCamera(); ok {
		t.Error("first camera should be reset by clear")
	}
	if _, ok := s.Nearest(); ok {
		t.Error("nearest should be reset by clear")
	}

	// The store is reusable after a clear.
	commitAll(t, s, walk())
	if s.Stage() != StageDone {
		t.Errorf("stage = %v after recapture, want done", s.Stage())
	}
}

func TestScenarioSharedXZIsNoop(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	// Aiming straight at the first vertex puts the second one on top of it.
	commitAll(t, s, []solver.Frame{
		surfaceFrame(vec(0, 0, 5), vec(0, 0, 0), vec(0, 0, 0)),
		frame(vec(0, 1, 2), vec(0, 0, 0)),
	})
	b := s.Bottom()
	if b[0].XZ().Distance(b[1].XZ()) > tol {
		t.Fatalf("setup: bottom = %v should share x,z", b)
	}

	if _, ok := s.Candidate(frame(vec(0, 1, 2), vec(1, 0, 1))); ok {
		t.Error("expected no candidate for a zero-length first edge")
	}
	if stage, ok := s.Commit(frame(vec(0, 1, 2), vec(1, 0, 1))); ok || stage != StageTwo {
		t.Errorf("Commit() = (%v, %v), want (two, false)", stage, ok)
	}
}

func TestCommitWithoutSurfaceIsNoop(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	if stage, ok := s.Commit(frame(vec(0, 0, 5), vec(0, 0, 0))); ok || stage != StageEmpty {
		t.Errorf("Commit() = (%v, %v), want (empty, false)", stage, ok)
	}
	if _, ok := s.FirstCamera(); ok {
		t.Error("a failed commit must not record the first camera")
	}
}

func TestTrack(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	s.Track(vec(0, 0, 0))
	if _, ok := s.Nearest(); ok {
		t.Error("nearest should be undefined for an empty store")
	}

	commitAll(t, s, walk()[:3])
	s.Track(vec(2, 1, -1))
	if idx, ok := s.Nearest(); !ok || idx != 3 {
		t.Errorf("nearest = (%d, %v), want (3, true)", idx, ok)
	}
}

func TestCandidateDoesNotMutate(t *testing.T) {
	s := NewStore(solver.DefaultParams())
	commitAll(t, s, walk()[:2])
	s.Track(vec(0, 0, -3))
	before, _ := s.Nearest()

	if _, ok := s.Candidate(walk()[2]); !ok {
		t.Fatal("expected a candidate")
	}
	if after, _ := s.Nearest(); after != before {
		t.Errorf("preview changed nearest from %d to %d", before, after)
	}
}

// simpleQuad reports whether the closed polygon abcd has no crossing
// opposite edges in the floor plane.
func simpleQuad(q []math.Vec3) bool {
	return !segmentsCross(q[0], q[1], q[2], q[3]) && !segmentsCross(q[1], q[2], q[3], q[0])
}

func segmentsCross(a, b, c, d math.Vec3) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

func orient(a, b, c math.Vec3) float32 {
	return (b.X-a.X)*(c.Z-a.Z) - (b.Z-a.Z)*(c.X-a.X)
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
