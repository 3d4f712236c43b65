package metrics

import (
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/vec"
)

// Neighbours is the mean number of interaction partners per particle,
// averaged over frames.
type Neighbours struct {
	name    string
	radius  float64
	reach   float64
	sum     float64
	samples int
}

func NewNeighbours(radius, interactionRadius float64) *Neighbours {
	return &Neighbours{name: "mean_neighbours", radius: radius, reach: interactionRadius}
}

func (n *Neighbours) Name() string { return n.name }

func (n *Neighbours) Observe(s sim.Snapshot) {
	if len(s.Particles) == 0 {
		return
	}
	pairs := 0
	for i := range s.Particles {
		for j := i + 1; j < len(s.Particles); j++ {
			d := s.Particles[i].DistanceFrom(s.Particles[j], n.radius)
			if d > vec.Epsilon && d < n.reach {
				pairs++
			}
		}
	}
	n.sum += 2 * float64(pairs) / float64(len(s.Particles))
	n.samples++
}

func (n *Neighbours) Value() float64 {
	if n.samples == 0 {
		return 0
	}
	return n.sum / float64(n.samples)
}

func (n *Neighbours) Reset() {
	n.sum = 0
	n.samples = 0
}

// Standard returns the metric set recorded for every run.
func Standard(p sim.Params) []sim.Metric {
	return []sim.Metric{
		NewOrder(),
		NewFinalOrder(),
		NewSphereDrift(p.Radius),
		NewTangencyDrift(),
		NewNeighbours(p.Radius, p.InteractionRadius),
	}
}
