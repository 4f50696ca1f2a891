package math

import "math"

// Quat is a rotation quaternion with scalar part W. Pose traces store
// camera orientations as quaternions so keyframes can be blended with Slerp.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the quaternion of no rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle returns the rotation by angle radians about a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	sin, cos := math.Sincos(float64(angle) / 2)
	s := float32(sin)
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: float32(cos)}
}

// Normalize scales q to unit length. A near-zero q becomes the identity.
func (q Quat) Normalize() Quat {
	n := float32(math.Sqrt(float64(q.Dot(q))))
	if n < 1e-4 {
		return QuatIdentity()
	}
	return q.scale(1 / n)
}

// Dot returns the four-component dot product.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Slerp interpolates from q to other along the shorter arc, t in [0, 1].
func (q Quat) Slerp(other Quat, t float32) Quat {
	cos := q.Dot(other)
	if cos < 0 {
		other = other.scale(-1)
		cos = -cos
	}

	// Nearly parallel: sin(theta) is too small to divide by.
	if cos > 0.9995 {
		return q.scale(1 - t).add(other.scale(t)).Normalize()
	}

	theta := math.Acos(float64(cos))
	sinTheta := math.Sin(theta)
	a := float32(math.Sin((1-float64(t))*theta) / sinTheta)
	b := float32(math.Sin(float64(t)*theta) / sinTheta)
	return q.scale(a).add(other.scale(b))
}

// ToMat4 returns the rotation as a column-major matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()
	x, y, z, w := q.X, q.Y, q.Z, q.W

	var m Mat4
	// Column 0
	m[0] = 1 - 2*(y*y+z*z)
	m[1] = 2 * (x*y + z*w)
	m[2] = 2 * (x*z - y*w)
	// Column 1
	m[4] = 2 * (x*y - z*w)
	m[5] = 1 - 2*(x*x+z*z)
	m[6] = 2 * (y*z + x*w)
	// Column 2
	m[8] = 2 * (x*z + y*w)
	m[9] = 2 * (y*z - x*w)
	m[10] = 1 - 2*(x*x+y*y)

	m[15] = 1
	return m
}

// Mul returns the Hamilton product q*other, which applies other first.
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

func (q Quat) scale(s float32) Quat {
	return Quat{X: q.X * s, Y: q.Y * s, Z: q.Z * s, W: q.W * s}
}

func (q Quat) add(other Quat) Quat {
	return Quat{X: q.X + other.X, Y: q.Y + other.Y, Z: q.Z + other.Z, W: q.W + other.W}
}
