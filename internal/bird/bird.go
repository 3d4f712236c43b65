// Package bird models a single flocking particle constrained to the surface
// of a sphere.
//
// A Particle is a position/velocity pair with |position| == R and
// position·velocity == 0. Particles are values: every operation returns a
// new Particle or vector, the engine replaces particles wholesale.
package bird

import (
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/vec"
)

type Particle struct {
	Position vec.Vec3 `json:"position"`
	Velocity vec.Vec3 `json:"velocity"`
}

func New(position, velocity vec.Vec3) Particle {
	return Particle{Position: position, Velocity: velocity}
}

// FromSpherical builds a particle at colatitude theta and azimuth phi on a
// sphere of the given radius. The velocity has magnitude speed and points
// along cos(alpha)·φ̂ + sin(alpha)·θ̂ in the local tangent plane.
func FromSpherical(radius, theta, phi, speed, alpha float64) Particle {
	sinT, cosT := math.Sincos(theta)
	sinP, cosP := math.Sincos(phi)
	sinA, cosA := math.Sincos(alpha)

	position := vec.New(radius*sinT*cosP, radius*sinT*sinP, radius*cosT)
	thetaHat := vec.New(cosT*cosP, cosT*sinP, -sinT)
	phiHat := vec.New(-sinP, cosP, 0)

	velocity := phiHat.Scale(cosA).Add(thetaHat.Scale(sinA)).Scale(speed)
	return Particle{Position: position, Velocity: velocity}
}

// Speed is the velocity magnitude.
func (p Particle) Speed() float64 { return p.Velocity.Norm() }

// Radius is the distance of the particle from the sphere centre.
func (p Particle) Radius() float64 { return p.Position.Norm() }

// Colatitude returns θ in [0, π].
func (p Particle) Colatitude() float64 {
	return math.Atan2(math.Hypot(p.Position.X, p.Position.Y), p.Position.Z)
}

// Azimuth returns φ in (-π, π].
func (p Particle) Azimuth() float64 {
	return math.Atan2(p.Position.Y, p.Position.X)
}

// IsValid reports whether the particle sits on a sphere of radius r with a
// tangent velocity, within tol.
func (p Particle) IsValid(r, tol float64) bool {
	if !p.Position.IsFinite() || !p.Velocity.IsFinite() {
		return false
	}
	if math.Abs(p.Radius()-r) > tol {
		return false
	}
	return math.Abs(p.Position.Dot(p.Velocity)) <= tol*math.Max(1, r*p.Speed())
}

func (p Particle) String() string {
	return fmt.Sprintf("Bird { pos: %v, vel: %v, |v|: %.3f, |r|: %.3f, θ: %.2f°, φ: %.2f° }",
		p.Position, p.Velocity, p.Speed(), p.Radius(),
		p.Colatitude()*180/math.Pi, p.Azimuth()*180/math.Pi)
}
