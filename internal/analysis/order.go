package analysis

import (
	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/vec"
)

// OrderParameter is |Σ v_i| / Σ |v_i|: 1 when every velocity points the
// same way in space, near 0 for random headings. An empty or motionless
// flock has order 0.
func OrderParameter(flock []bird.Particle) float64 {
	var sum vec.Vec3
	total := 0.0
	for _, p := range flock {
		sum = sum.Add(p.Velocity)
		total += p.Velocity.Norm()
	}
	if total == 0 {
		return 0
	}
	return sum.Norm() / total
}

// RotationalOrder is the magnitude of the mean unit normal r̂×v̂ of each
// particle's geodesic plane. A flock circulating along one great circle
// scores 1 even though its velocities cancel in space.
func RotationalOrder(flock []bird.Particle) float64 {
	if len(flock) == 0 {
		return 0
	}
	var sum vec.Vec3
	for _, p := range flock {
		sum = sum.Add(p.Position.Cross(p.Velocity).Normalize())
	}
	return sum.Norm() / float64(len(flock))
}

// OrderSeries returns OrderParameter for every snapshot, in order.
func OrderSeries(snaps []sim.Snapshot) []float64 {
	out := make([]float64, len(snaps))
	for i, s := range snaps {
		out[i] = OrderParameter(s.Particles)
	}
	return out
}

// Times returns the timestamp of every snapshot.
func Times(snaps []sim.Snapshot) []float64 {
	out := make([]float64, len(snaps))
	for i, s := range snaps {
		out[i] = s.Time
	}
	return out
}
