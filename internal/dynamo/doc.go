// Package dynamo provides the shared primitives of the flocking engines.
//
// The package holds what the simulation engine and the ensemble generator
// both depend on:
//
//   - [ParallelFor]: barrier-separated data-parallel loop over [0, n)
//   - [Workers]: effective worker count for a requested parallelism
//   - [ConfigError]: typed configuration failure wrapping [ErrInvalidConfig]
//
// # Example
//
//	next := make([]bird.Particle, len(cur))
//	dynamo.ParallelFor(len(cur), dynamo.Workers(8, len(cur)), func(w, start, end int) {
//	    for i := start; i < end; i++ {
//	        next[i] = update(i, cur)
//	    }
//	})
//
// # Thread Safety
//
// ParallelFor returns only after every chunk has finished, so the caller may
// swap or read the written buffer immediately afterwards.
package dynamo
