package model

import "math"

// Vec3 is a point or direction in tracking space, in meters.
type Vec3 struct {
	X float32 `json:"x" firestore:"x"`
	Y float32 `json:"y" firestore:"y"`
	Z float32 `json:"z" firestore:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// HorizontalLength ignores the vertical (Y) axis.
func (v Vec3) HorizontalLength() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Z)))
}

// Quat is a unit rotation quaternion.
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat is the rotation that leaves vectors unchanged.
var IdentityQuat = Quat{W: 1}

// QuatAxisAngle builds a rotation of angle radians around a unit axis.
func QuatAxisAngle(axis Vec3, angle float64) Quat {
	s := float32(math.Sin(angle / 2))
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: float32(math.Cos(angle / 2)),
	}
}

// Mul returns q*o, applying o first and then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Normalize() Quat {
	n := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if n == 0 {
		return IdentityQuat
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Conjugate is the inverse of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = v + 2w(u x v) + 2(u x (u x v))
	u := Vec3{q.X, q.Y, q.Z}
	t := cross(u, v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(cross(u, t))
}

func cross(a, b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Forward is the direction a camera or label looks along when unrotated.
var Forward = Vec3{0, 0, -1}

// Transform is a rigid pose in tracking space.
type Transform struct {
	Position Vec3
	Rotation Quat
}

// Apply maps a point from the local frame of t into tracking space.
func (t Transform) Apply(local Vec3) Vec3 {
	return t.Rotation.Rotate(local).Add(t.Position)
}

// Inverse maps a point from tracking space into the local frame of t.
func (t Transform) Inverse(world Vec3) Vec3 {
	return t.Rotation.Conjugate().Rotate(world.Sub(t.Position))
}

// Compose returns the pose of a child with local pose c under t.
func (t Transform) Compose(c Transform) Transform {
	return Transform{
		Position: t.Apply(c.Position),
		Rotation: t.Rotation.Mul(c.Rotation),
	}
}

// Forward returns the unit direction the pose is facing.
func (t Transform) Forward() Vec3 {
	return t.Rotation.Rotate(Forward)
}

// YawTowards returns an upright rotation about the Y axis that turns
// Forward toward the horizontal direction (dx, dz). The caller must make
// sure the direction is not degenerate.
func YawTowards(dx, dz float32) Quat {
	angle := math.Atan2(float64(-dx), float64(-dz))
	return QuatAxisAngle(Vec3{0, 1, 0}, angle)
}
