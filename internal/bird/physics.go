package bird

import (
	"math"
	"math/rand"

	"github.com/san-kum/flocksim/internal/vec"
)

// DistanceFrom returns the geodesic (great-circle) distance between p and
// other on a sphere of the given radius.
func (p Particle) DistanceFrom(other Particle, radius float64) float64 {
	return radius * p.Position.AngleBetween(other.Position)
}

// ParallelTransportVelocity carries p's velocity along the geodesic from
// p.Position to other.Position. Norm and tangency are preserved.
//
// Coincident and antipodal positions have no well-defined rotation axis.
// Both return the velocity unchanged: for coincident points that is the
// exact answer, and at the antipode the tangent plane is the same plane, so
// the vector is still tangent with the same norm.
func (p Particle) ParallelTransportVelocity(other Particle) vec.Vec3 {
	axis := p.Position.Cross(other.Position).Normalize()
	if axis.ApproxEq(vec.Zero(), 1e-10) {
		return p.Velocity
	}
	angle := p.Position.AngleBetween(other.Position)
	v, err := p.Velocity.RotateAround(axis, angle)
	if err != nil {
		return p.Velocity
	}
	return v
}

// RandomAngleNoise draws an angle from N(0, eta²). eta <= 0 yields 0.
func RandomAngleNoise(rng *rand.Rand, eta float64) float64 {
	if eta <= 0 || math.IsNaN(eta) {
		return 0
	}
	if math.IsInf(eta, 1) {
		// any angle is as good as any other once the spread is unbounded
		return 2*math.Pi*rng.Float64() - math.Pi
	}
	a := rng.NormFloat64() * eta
	if math.IsInf(a, 0) {
		return math.Mod(math.Copysign(math.MaxFloat64, a), 2*math.Pi)
	}
	return a
}

// AddNoise rotates velocity about the radial direction at ref.Position by a
// random angle of width eta. The result keeps the norm of velocity and stays
// tangent at ref.
func AddNoise(rng *rand.Rand, velocity vec.Vec3, ref Particle, eta float64) vec.Vec3 {
	angle := RandomAngleNoise(rng, eta)
	v, err := velocity.RotateAround(ref.Position.Normalize(), angle)
	if err != nil {
		return velocity
	}
	return v
}

// MoveBird advances a particle along its geodesic for time dt on a sphere of
// the given radius at the given speed. Position and velocity are rotated
// rigidly about position×velocity by speed·dt/radius, so the particle stays
// on the sphere and the velocity stays tangent for any dt.
func MoveBird(position, velocity vec.Vec3, dt, radius, speed float64) (vec.Vec3, vec.Vec3) {
	axis := position.Cross(velocity).Normalize()
	if axis == vec.Zero() || radius <= 0 {
		// zero velocity: nowhere to go
		return position, velocity
	}
	angle := speed * dt / radius
	newPos, err := position.RotateAround(axis, angle)
	if err != nil {
		return position, velocity
	}
	newVel, err := velocity.RotateAround(axis, angle)
	if err != nil {
		return position, velocity
	}
	return newPos, newVel
}

// Move is MoveBird applied to p.
func (p Particle) Move(dt, radius, speed float64) Particle {
	pos, v := MoveBird(p.Position, p.Velocity, dt, radius, speed)
	return Particle{Position: pos, Velocity: v}
}
