package ensemble

import (
	"context"
	"math"
	"math/rand"

	"github.com/san-kum/flocksim/internal/bird"
)

// Candidate draws one particle uniformly over the sphere surface with a
// uniformly random tangent heading.
func Candidate(rng *rand.Rand, radius, speed float64) bird.Particle {
	phi := 2 * math.Pi * rng.Float64()
	alpha := 2 * math.Pi * rng.Float64()
	theta := math.Acos(2*rng.Float64() - 1)
	return bird.FromSpherical(radius, theta, phi, speed, alpha)
}

// Sample places p.N particles by rejection sampling. The context is
// polled between rejections so a hopeless entry can be abandoned early.
// When the budget runs out the particles placed so far are returned along
// with a *CapacityError.
func Sample(ctx context.Context, rng *rand.Rand, p GenParams) ([]bird.Particle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	budget := p.budget()
	birds := make([]bird.Particle, 0, p.N)
	rejected := 0

	for len(birds) < p.N {
		if rejected > 0 && rejected%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		c := Candidate(rng, p.Radius, p.Speed)
		if tooClose(c, birds, p.Radius, p.MinDistance) {
			rejected++
			if rejected >= budget {
				return birds, &CapacityError{Accepted: len(birds), Requested: p.N, Attempts: rejected}
			}
			continue
		}

		birds = append(birds, c)
		rejected = 0
	}

	return birds, nil
}

func tooClose(c bird.Particle, accepted []bird.Particle, radius, minDistance float64) bool {
	for _, b := range accepted {
		if c.DistanceFrom(b, radius) < minDistance {
			return true
		}
	}
	return false
}
