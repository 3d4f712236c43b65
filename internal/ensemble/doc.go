// Package ensemble generates initial flocks for the simulation engine.
//
// An entry is a set of particles spread uniformly over the sphere with a
// minimum pairwise geodesic separation, built by rejection sampling:
//
//   - azimuth φ and heading α uniform in [0, 2π)
//   - colatitude θ = arccos(u), u uniform in [-1, 1], so density is uniform
//     in area rather than in angle
//   - a candidate closer than MinDistance to any accepted particle is
//     discarded and resampled
//
// Sampling inside an entry is sequential. Entries are independent and the
// Generator builds them concurrently, handing each finished entry to a
// pipe.Sink for persistence.
//
// # Retry Budget
//
// Dense configurations can be infeasible. GenParams.MaxAttempts bounds the
// number of consecutive rejections; exhausting it yields a *CapacityError
// wrapping ErrCapacityExceeded instead of looping forever.
package ensemble
