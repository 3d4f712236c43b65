package ensemble_test

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/ensemble"
	"github.com/san-kum/flocksim/internal/pipe"
)

func minSeparation(birds []bird.Particle, radius float64) float64 {
	m := math.Inf(1)
	for i := range birds {
		for j := i + 1; j < len(birds); j++ {
			m = math.Min(m, birds[i].DistanceFrom(birds[j], radius))
		}
	}
	return m
}

func drain(q *pipe.Queue[ensemble.Entry]) []ensemble.Entry {
	var out []ensemble.Entry
	for {
		e, ok := q.Recv(context.Background())
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

var _ = Describe("Sample", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(42))
	})

	It("places 50 particles at least 0.1 apart on a unit sphere", func() {
		p := ensemble.GenParams{N: 50, Radius: 1, Speed: 1, MinDistance: 0.1}
		birds, err := ensemble.Sample(context.Background(), rng, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(birds).To(HaveLen(50))
		Expect(minSeparation(birds, 1)).To(BeNumerically(">=", 0.1-1e-12))
	})

	It("produces valid particles with the requested speed", func() {
		p := ensemble.GenParams{N: 200, Radius: 2.5, Speed: 0.15, MinDistance: 0.05}
		birds, err := ensemble.Sample(context.Background(), rng, p)
		Expect(err).NotTo(HaveOccurred())
		for _, b := range birds {
			Expect(b.IsValid(2.5, 1e-10)).To(BeTrue(), "%v", b)
			Expect(b.Speed()).To(BeNumerically("~", 0.15, 1e-10))
		}
	})

	It("samples uniformly by area", func() {
		p := ensemble.GenParams{N: 2000, Radius: 1, Speed: 1}
		birds, err := ensemble.Sample(context.Background(), rng, p)
		Expect(err).NotTo(HaveOccurred())

		north, band := 0, 0
		for _, b := range birds {
			if b.Position.Z > 0 {
				north++
			}
			if math.Abs(b.Position.Z) < 0.5 {
				band++
			}
		}
		Expect(float64(north) / 2000).To(BeNumerically("~", 0.5, 0.05))
		// |z| < 0.5 covers exactly half the sphere's area
		Expect(float64(band) / 2000).To(BeNumerically("~", 0.5, 0.05))
	})

	It("reports a capacity error for an infeasible configuration", func() {
		p := ensemble.GenParams{N: 10, Radius: 1, Speed: 1, MinDistance: 3, MaxAttempts: 500}
		birds, err := ensemble.Sample(context.Background(), rng, p)
		Expect(err).To(MatchError(ensemble.ErrCapacityExceeded))

		var ce *ensemble.CapacityError
		Expect(err).To(BeAssignableToTypeOf(ce))
		ce = err.(*ensemble.CapacityError)
		Expect(ce.Requested).To(Equal(10))
		Expect(ce.Attempts).To(Equal(500))
		Expect(ce.Accepted).To(Equal(len(birds)))
		Expect(ce.Accepted).To(BeNumerically("<", 10))
	})

	It("rejects invalid parameters", func() {
		for _, p := range []ensemble.GenParams{
			{N: 0, Radius: 1},
			{N: 3, Radius: 0},
			{N: 3, Radius: 1, Speed: -1},
			{N: 3, Radius: 1, MinDistance: math.NaN()},
			{N: 3, Radius: 1, MaxAttempts: -1},
		} {
			_, err := ensemble.Sample(context.Background(), rng, p)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig), "%+v", p)
		}
	})
})

var _ = Describe("Generator", func() {
	params := ensemble.GenParams{N: 30, Radius: 1, Speed: 2, MinDistance: 0.1}

	It("generates every entry and hands it to the consumer", func() {
		q := pipe.NewQueue[ensemble.Entry]()
		g := &ensemble.Generator{Workers: 4, Seed: 7}

		sum, err := g.Generate(context.Background(), "flock", 10, params, q)
		Expect(err).NotTo(HaveOccurred())
		q.Close()

		Expect(sum.Generated).To(Equal(10))
		Expect(sum.Dropped).To(BeZero())
		Expect(sum.Workers).To(BeNumerically(">=", 1))
		Expect(sum.Workers).To(BeNumerically("<=", 4))

		entries := drain(q)
		Expect(entries).To(HaveLen(10))

		ids := make([]int, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
			Expect(e.Tag).To(Equal("flock"))
			Expect(e.Particles).To(HaveLen(30))
			Expect(e.Params).To(Equal(params))
			Expect(minSeparation(e.Particles, 1)).To(BeNumerically(">=", 0.1-1e-12))
		}
		sort.Ints(ids)
		Expect(ids).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
	})

	It("is independent of the worker count", func() {
		run := func(workers int) map[int]ensemble.Entry {
			q := pipe.NewQueue[ensemble.Entry]()
			_, err := (&ensemble.Generator{Workers: workers, Seed: 3}).Generate(context.Background(), "det", 6, params, q)
			Expect(err).NotTo(HaveOccurred())
			q.Close()
			out := map[int]ensemble.Entry{}
			for _, e := range drain(q) {
				out[e.ID] = e
			}
			return out
		}

		a, b := run(1), run(3)
		for id := range a {
			Expect(b[id].Particles).To(Equal(a[id].Particles))
		}
	})

	It("keeps generating when the consumer is gone", func() {
		q := pipe.NewQueue[ensemble.Entry]()
		q.Detach()

		sum, err := (&ensemble.Generator{Workers: 2}).Generate(context.Background(), "gone", 4, params, q)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Generated).To(Equal(4))
		Expect(sum.Dropped).To(Equal(4))
	})

	It("fails with a capacity error naming the entry", func() {
		bad := ensemble.GenParams{N: 50, Radius: 1, Speed: 1, MinDistance: 2, MaxAttempts: 200}
		done := make(chan error, 1)
		go func() {
			_, err := (&ensemble.Generator{Workers: 2}).Generate(context.Background(), "dense", 3, bad, nil)
			done <- err
		}()

		var err error
		Eventually(done).WithTimeout(10 * time.Second).Should(Receive(&err))
		Expect(err).To(MatchError(ensemble.ErrCapacityExceeded))
		var ce *ensemble.CapacityError
		Expect(err).To(BeAssignableToTypeOf(ce))
		Expect(err.(*ensemble.CapacityError).EntryID).To(BeNumerically("<", 3))
	})

	It("validates its inputs", func() {
		g := &ensemble.Generator{Workers: 0}
		_, err := g.Generate(context.Background(), "x", 1, params, nil)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))

		g.Workers = 1
		_, err = g.Generate(context.Background(), "x", 0, params, nil)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		hopeless := ensemble.GenParams{N: 50, Radius: 1, Speed: 1, MinDistance: 2, MaxAttempts: math.MaxInt32}
		_, err := (&ensemble.Generator{Workers: 1}).Generate(ctx, "x", 1, hopeless, nil)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("does not start new entries once the context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		q := pipe.NewQueue[ensemble.Entry]()

		sum, err := (&ensemble.Generator{Workers: 2}).Generate(ctx, "late", 6, params, q)
		Expect(err).To(MatchError(context.Canceled))
		Expect(sum.Generated).To(BeZero())
		q.Close()
		Expect(drain(q)).To(BeEmpty())
	})
})
