package bird

import (
	"math/rand"
	"testing"
)

func BenchmarkParallelTransportVelocity(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	p, q := randomParticle(rng, 1, 1), randomParticle(rng, 1, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.ParallelTransportVelocity(q)
	}
}

func BenchmarkMoveBird(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	p := randomParticle(rng, 1, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Position, p.Velocity = MoveBird(p.Position, p.Velocity, 0.01, 1, 1)
	}
}

func BenchmarkAddNoise(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	p := randomParticle(rng, 1, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Velocity = AddNoise(rng, p.Velocity, p, 0.1)
	}
}
