// Package solver computes the next candidate vertex of a cuboid capture.
//
// Exactly one rule is active per call, chosen by how many bottom and top
// vertices are already committed:
//
//	bottom top  rule
//	0      0    Surface     first floor point, hit at the screen centre
//	1      0    Axis        on the camera's central axis at the floor height
//	2      0    Orthogonal  right angle at the nearest vertex, screen x = 0
//	4      0    Top         above the nearest vertex on a tilted guide line
//	4      4    -           capture complete
//
// Closure (the fourth floor vertex) is never offered as a candidate; the
// capture store applies it when the third vertex is committed.
//
// Every function here is pure: it reads the committed faces and the frame
// it is given and returns a candidate, so it can be called for preview on
// every frame and once more on commit with the same result.
package solver

import (
	gomath "math"

	"github.com/Faultbox/arbox/internal/camera"
	"github.com/Faultbox/arbox/pkg/math"
)

// epsilon guards the divisions of the linear solves below.
const epsilon = 1e-6

// Rule identifies which construction produced a candidate.
type Rule int

const (
	RuleNone Rule = iota
	RuleSurface
	RuleAxis
	RuleOrthogonal
	RuleClosure
	RuleTop
)

// String returns the rule name.
func (r Rule) String() string {
	switch r {
	case RuleSurface:
		return "surface"
	case RuleAxis:
		return "axis"
	case RuleOrthogonal:
		return "orthogonal"
	case RuleClosure:
		return "closure"
	case RuleTop:
		return "top"
	default:
		return "none"
	}
}

// Params holds the tunable constants of the rules.
type Params struct {
	// MaxEdge caps the length of a new floor edge and the box height.
	MaxEdge float32
	// TopTilt is the pitch, in radians, of the guide line used for the top face.
	TopTilt float32
}

// DefaultParams returns a 1.7 unit edge cap and a 10 degree top tilt.
func DefaultParams() Params {
	return Params{
		MaxEdge: 1.7,
		TopTilt: gomath.Pi / 18,
	}
}

// Faces is the committed geometry the rules read.
type Faces struct {
	Bottom []math.Vec3
	Top    []math.Vec3
	// FirstCamera is the camera position when the first vertex was committed.
	FirstCamera *math.Vec3
}

// Frame carries the per-frame inputs: the pose and, while nothing is
// committed yet, the surface hit at the screen centre.
type Frame struct {
	Pose    camera.Pose
	Surface *math.Vec3
}

// Candidate is a proposed next vertex.
type Candidate struct {
	Point math.Vec3
	// Nearest is the bottom vertex index the rule anchored on, or -1.
	Nearest int
	Rule    Rule
}

// ActiveRule returns the rule selected by the face cardinalities.
func ActiveRule(bottom, top int) Rule {
	switch {
	case bottom == 0 && top == 0:
		return RuleSurface
	case bottom == 1 && top == 0:
		return RuleAxis
	case bottom == 2 && top == 0:
		return RuleOrthogonal
	case bottom == 4 && top == 0:
		return RuleTop
	default:
		return RuleNone
	}
}

// Solve returns the candidate of the active rule. It returns false when
// tracking is not normal or the rule has no valid solution for this frame.
func Solve(faces Faces, frame Frame, p Params) (Candidate, bool) {
	if !frame.Pose.Tracked() {
		return Candidate{}, false
	}

	view := frame.Pose.View
	switch ActiveRule(len(faces.Bottom), len(faces.Top)) {
	case RuleSurface:
		return Surface(frame)
	case RuleAxis:
		return Axis(faces.Bottom[0], view, p)
	case RuleOrthogonal:
		idx, _ := camera.NearestIndex(faces.Bottom, frame.Pose.Position())
		return Orthogonal(faces.Bottom, idx, faces.FirstCamera, view, p)
	case RuleTop:
		return Top(faces.Bottom, frame.Pose.Position(), view, p)
	default:
		return Candidate{}, false
	}
}

// Surface returns the surface hit carried by the frame.
func Surface(frame Frame) (Candidate, bool) {
	if frame.Surface == nil || !frame.Surface.IsFinite() {
		return Candidate{}, false
	}
	return Candidate{Point: *frame.Surface, Nearest: -1, Rule: RuleSurface}, true
}

// Axis finds the point at origin's height that lies on the camera's central
// viewing axis, i.e. whose camera-space x and y are both zero, so it
// projects onto the screen centre at any depth. The edge from origin is
// capped at p.MaxEdge.
func Axis(origin math.Vec3, view math.Mat4, p Params) (Candidate, bool) {
	// cx = 0 and cy = 0 with y fixed is a 2x2 system in (x, z).
	a, b := view.At(0, 0), view.At(0, 2)
	c, d := view.At(1, 0), view.At(1, 2)
	det := a*d - b*c
	if abs(det) < epsilon {
		return Candidate{}, false
	}

	y := origin.Y
	r0 := -(view.At(0, 1)*y + view.At(0, 3))
	r1 := -(view.At(1, 1)*y + view.At(1, 3))
	q := math.Vec3{
		X: (r0*d - b*r1) / det,
		Y: y,
		Z: (a*r1 - c*r0) / det,
	}
	if !q.IsFinite() || !camera.InFront(q, view) {
		return Candidate{}, false
	}

	edge := q.Sub(origin).ClampLength(p.MaxEdge)
	return Candidate{Point: origin.Add(edge), Nearest: -1, Rule: RuleAxis}, true
}

// Orthogonal finds the third floor vertex. It lies on the horizontal line
// through bottom[nearest] perpendicular to the first edge, where that line
// crosses the camera's vertical centre plane (camera-space x = 0).
//
// If the candidate falls on the same side of the first edge as the camera
// stood when the first vertex was committed, the user has swept the camera
// back across the edge and the anchor vertex itself is returned, giving a
// zero-length edge.
func Orthogonal(bottom []math.Vec3, nearest int, firstCamera *math.Vec3, view math.Mat4, p Params) (Candidate, bool) {
	if len(bottom) != 2 || nearest < 0 || nearest > 1 {
		return Candidate{}, false
	}

	p0 := bottom[nearest]
	p1 := bottom[1-nearest]
	ux := p0.X - p1.X
	uz := p0.Z - p1.Z
	if ux == 0 && uz == 0 {
		return Candidate{}, false
	}

	// Walk along the perpendicular n until camera-space x reaches zero.
	n := math.Vec3{X: -uz, Z: ux}
	row := view.Row(0)
	denom := row[0]*n.X + row[2]*n.Z
	if abs(denom) < epsilon {
		return Candidate{}, false
	}
	q := p0.Add(n.Scale(-row.Dot3(p0) / denom))
	q.Y = p0.Y
	if !q.IsFinite() || !camera.InFront(q, view) {
		return Candidate{}, false
	}

	if firstCamera != nil && belowEdge(q, p0, ux, uz) == belowEdge(*firstCamera, p0, ux, uz) {
		return Candidate{Point: p0, Nearest: nearest, Rule: RuleOrthogonal}, true
	}

	edge := q.Sub(p0).ClampLength(p.MaxEdge)
	return Candidate{Point: p0.Add(edge), Nearest: nearest, Rule: RuleOrthogonal}, true
}

// belowEdge evaluates z < A(x - p0.x) + p0.z where A = uz/ux is the slope of
// the first edge in the floor plane. For a vertical edge (ux = 0) A is
// infinite and the comparison reduces to the sign of uz*(x - p0.x).
func belowEdge(pt, p0 math.Vec3, ux, uz float32) bool {
	if ux != 0 {
		slope := uz / ux
		return pt.Z < slope*(pt.X-p0.X)+p0.Z
	}
	return uz*(pt.X-p0.X) > 0
}

// Closure completes the floor parallelogram from three vertices, the third
// having been built at bottom[nearest]. It returns the fourth vertex and
// the index it must be inserted at to keep a consistent winding.
func Closure(bottom []math.Vec3, nearest int) (math.Vec3, int, bool) {
	if len(bottom) != 3 || nearest < 0 || nearest > 1 {
		return math.Vec3{}, 0, false
	}

	far := bottom[1-nearest]
	anchor := bottom[nearest]
	fourth := bottom[2].Add(far).Sub(anchor)

	if nearest == 1 {
		return fourth, 3, true
	}
	return fourth, 2, true
}

// Top finds the height of the top face. The candidate keeps the (x,z) of the
// bottom vertex nearest the camera; its height is where that vertical line
// meets the view pitched by p.TopTilt about the camera x axis (camera-space
// y of the pitched view equals zero). The height is clamped to
// [floor, floor + p.MaxEdge].
func Top(bottom []math.Vec3, cameraPos math.Vec3, view math.Mat4, p Params) (Candidate, bool) {
	if len(bottom) != 4 {
		return Candidate{}, false
	}
	nearest, _ := camera.NearestIndex(bottom, cameraPos)

	row := math.RotateX(-p.TopTilt).Mul(view).Row(1)
	if abs(row[1]) < epsilon {
		return Candidate{}, false
	}

	base := bottom[nearest]
	q := math.Vec3{
		X: base.X,
		Y: -(row[0]*base.X + row[2]*base.Z + row[3]) / row[1],
		Z: base.Z,
	}
	if !q.IsFinite() || !camera.InFront(q, view) {
		return Candidate{}, false
	}

	floor := bottom[2].Y
	if q.Y < floor {
		q.Y = floor
	} else if q.Y > floor+p.MaxEdge {
		q.Y = floor + p.MaxEdge
	}
	return Candidate{Point: q, Nearest: nearest, Rule: RuleTop}, true
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
