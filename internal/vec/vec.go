// Package vec implements the 3D vector primitive used by the sphere physics.
//
// Vec3 is a small value type; every operation returns a new vector and
// never mutates its receiver. Degenerate inputs (zero-length vectors) are
// absorbed here with documented fallbacks so that callers further up never
// see NaN from a division by zero or from acos.
package vec

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon is the machine epsilon for float64.
const Epsilon = 2.220446049250313e-16

// ErrInvalidAxis is returned by RotateAround when the rotation axis is zero
// length or not normalized.
var ErrInvalidAxis = errors.New("vec: rotation axis must be a unit vector")

// axisTolerance bounds |axis|^2 - 1 for an axis to count as normalized.
const axisTolerance = Epsilon * 10

type Vec3 struct {
	X, Y, Z float64
}

func New(x, y, z float64) Vec3 { return Vec3{x, y, z} }

func Zero() Vec3 { return Vec3{} }
func XHat() Vec3 { return Vec3{1, 0, 0} }
func YHat() Vec3 { return Vec3{0, 1, 0} }
func ZHat() Vec3 { return Vec3{0, 0, 1} }

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Neg() Vec3            { return Vec3{-v.X, -v.Y, -v.Z} }

// Div divides every component by s. Dividing by zero follows IEEE rules.
func (v Vec3) Div(s float64) Vec3 { return Vec3{v.X / s, v.Y / s, v.Z / s} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) NormSquared() float64 { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }
func (v Vec3) Norm() float64        { return math.Sqrt(v.NormSquared()) }

// Normalize returns the unit vector in the direction of v, or the zero
// vector when |v|^2 is below Epsilon^2.
func (v Vec3) Normalize() Vec3 {
	n2 := v.NormSquared()
	if n2 <= Epsilon*Epsilon {
		return Vec3{}
	}
	inv := 1 / math.Sqrt(n2)
	return Vec3{v.X * inv, v.Y * inv, v.Z * inv}
}

// AngleBetween returns the angle in [0, π] between v and o. A zero-length
// operand yields 0.
func (v Vec3) AngleBetween(o Vec3) float64 {
	np := v.NormSquared() * o.NormSquared()
	if np <= Epsilon*Epsilon {
		return 0
	}
	c := v.Dot(o) / math.Sqrt(np)
	// rounding can push |c| slightly past 1 for (anti)parallel vectors
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// ProjectOnto returns the projection of v onto o, or zero when o is
// (numerically) the zero vector.
func (v Vec3) ProjectOnto(o Vec3) Vec3 {
	n2 := o.NormSquared()
	if n2 <= Epsilon*Epsilon {
		return Vec3{}
	}
	return o.Scale(v.Dot(o) / n2)
}

// ApproxEq reports whether every component differs by less than eps.
func (v Vec3) ApproxEq(o Vec3, eps float64) bool {
	eps = math.Max(eps, Epsilon)
	return math.Abs(v.X-o.X) < eps &&
		math.Abs(v.Y-o.Y) < eps &&
		math.Abs(v.Z-o.Z) < eps
}

// RotateAround rotates v by angle radians about axis using Rodrigues'
// formula. axis must be unit length; otherwise ErrInvalidAxis is returned
// together with v unchanged. A (numerically) zero angle returns v exactly.
func (v Vec3) RotateAround(axis Vec3, angle float64) (Vec3, error) {
	n2 := axis.NormSquared()
	if n2 < Epsilon*Epsilon || math.Abs(n2-1) > axisTolerance {
		return v, ErrInvalidAxis
	}
	if math.Abs(angle) < Epsilon {
		return v, nil
	}
	sin, cos := math.Sincos(angle)
	return v.Scale(cos).
		Add(axis.Cross(v).Scale(sin)).
		Add(axis.Scale(axis.Dot(v) * (1 - cos))), nil
}

// IsFinite reports whether no component is NaN or ±Inf.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
