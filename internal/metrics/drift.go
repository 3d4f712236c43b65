package metrics

import (
	"math"

	"github.com/san-kum/flocksim/internal/sim"
)

// SphereDrift is the largest | |r| - R | seen over all frames.
type SphereDrift struct {
	name     string
	radius   float64
	maxDrift float64
}

func NewSphereDrift(radius float64) *SphereDrift {
	return &SphereDrift{name: "sphere_drift", radius: radius}
}

func (d *SphereDrift) Name() string { return d.name }

func (d *SphereDrift) Observe(s sim.Snapshot) {
	for _, p := range s.Particles {
		d.maxDrift = math.Max(d.maxDrift, math.Abs(p.Radius()-d.radius))
	}
}

func (d *SphereDrift) Value() float64 { return d.maxDrift }
func (d *SphereDrift) Reset()         { d.maxDrift = 0 }

// TangencyDrift is the largest |r̂·v̂| seen over all frames.
type TangencyDrift struct {
	name     string
	maxDrift float64
}

func NewTangencyDrift() *TangencyDrift {
	return &TangencyDrift{name: "tangency_drift"}
}

func (d *TangencyDrift) Name() string { return d.name }

func (d *TangencyDrift) Observe(s sim.Snapshot) {
	for _, p := range s.Particles {
		c := math.Abs(p.Position.Normalize().Dot(p.Velocity.Normalize()))
		d.maxDrift = math.Max(d.maxDrift, c)
	}
}

func (d *TangencyDrift) Value() float64 { return d.maxDrift }
func (d *TangencyDrift) Reset()         { d.maxDrift = 0 }
