package sim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/pipe"
	"github.com/san-kum/flocksim/internal/vec"
)

func randomFlock(rng *rand.Rand, n int, radius, speed float64) []bird.Particle {
	flock := make([]bird.Particle, n)
	for i := range flock {
		theta := math.Acos(2*rng.Float64() - 1)
		flock[i] = bird.FromSpherical(radius, theta, 2*math.Pi*rng.Float64(), speed, 2*math.Pi*rng.Float64())
	}
	return flock
}

func order(flock []bird.Particle) float64 {
	var sum vec.Vec3
	for _, p := range flock {
		sum = sum.Add(p.Velocity.Normalize())
	}
	return sum.Norm() / float64(len(flock))
}

func testParams() Params {
	p := DefaultParams()
	p.Iterations = 100
	p.FrameInterval = 10
	p.Workers = 4
	return p
}

func TestNew_NoParticles(t *testing.T) {
	_, err := New(nil, testParams(), nil, nil)
	if !errors.Is(err, ErrNoParticles) {
		t.Errorf("expected ErrNoParticles, got %v", err)
	}
}

func TestNew_InvalidParams(t *testing.T) {
	flock := randomFlock(rand.New(rand.NewSource(1)), 5, 1, 1)

	tests := []struct {
		name   string
		modify func(*Params)
		field  string
	}{
		{"zero radius", func(p *Params) { p.Radius = 0 }, "radius"},
		{"negative speed", func(p *Params) { p.Speed = -1 }, "speed"},
		{"NaN noise", func(p *Params) { p.Eta = math.NaN() }, "noise"},
		{"zero dt", func(p *Params) { p.Dt = 0 }, "dt"},
		{"zero frame interval", func(p *Params) { p.FrameInterval = 0 }, "frame_interval"},
		{"zero workers", func(p *Params) { p.Workers = 0 }, "workers"},
		{"negative interaction", func(p *Params) { p.InteractionRadius = -0.1 }, "interaction_radius"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)
			_, err := New(flock, p, nil, nil)
			if !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			var ce *dynamo.ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("field = %v, want %s", err, tt.field)
			}
		})
	}
}

func TestNew_NonFiniteParticle(t *testing.T) {
	flock := randomFlock(rand.New(rand.NewSource(3)), 4, 1, 2)
	flock[2].Velocity = vec.New(math.Inf(1), 0, 0)

	_, err := New(flock, testParams(), nil, nil)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestEngine_CopiesInitialState(t *testing.T) {
	flock := randomFlock(rand.New(rand.NewSource(2)), 10, 1, 2)
	orig := flock[0]

	eng, err := New(flock, testParams(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	flock[0] = bird.Particle{}
	if got := eng.Particles()[0]; got != orig {
		t.Errorf("engine aliased caller slice: got %v, want %v", got, orig)
	}
}

func TestEngine_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := testParams()
	p.Radius = 2.5
	p.Speed = 1.5
	p.InteractionRadius = 0.8
	p.Eta = 0.3
	p.Iterations = 200

	eng, err := New(randomFlock(rng, 120, p.Radius, p.Speed), p, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	for step := 0; step < int(p.Iterations); step++ {
		eng.Step()
		for i, b := range eng.Particles() {
			if math.Abs(b.Radius()-p.Radius) > 1e-8 {
				t.Fatalf("step %d bird %d left the sphere: |r| = %.12f", step, i, b.Radius())
			}
			if d := b.Position.Dot(b.Velocity); math.Abs(d) > 1e-8 {
				t.Fatalf("step %d bird %d not tangent: dot = %g", step, i, d)
			}
			if math.Abs(b.Speed()-p.Speed) > 1e-8 {
				t.Fatalf("step %d bird %d speed drifted: %v", step, i, b.Speed())
			}
		}
	}

	if eng.StepCount() != p.Iterations {
		t.Errorf("StepCount = %d, want %d", eng.StepCount(), p.Iterations)
	}
	if want := float64(p.Iterations) * p.Dt; math.Abs(eng.Time()-want) > 1e-9 {
		t.Errorf("Time = %v, want %v", eng.Time(), want)
	}
}

func TestEngine_FlockingEmerges(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"seed 1", 1},
		{"seed 7", 7},
		{"seed 42", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.Eta = 0.01
			p.Iterations = 500
			p.Seed = tt.seed

			flock := randomFlock(rand.New(rand.NewSource(tt.seed)), 200, p.Radius, p.Speed)
			initial := order(flock)

			eng, err := New(flock, p, nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			if err := eng.Run(context.Background()); err != nil {
				t.Fatal(err)
			}

			final := order(eng.Particles())
			if final <= initial {
				t.Errorf("order did not increase: initial %.3f, final %.3f", initial, final)
			}
			if final <= 0.3 {
				t.Errorf("final order %.3f, want > 0.3", final)
			}
		})
	}
}

func TestEngine_IsolatedParticleFollowsGeodesic(t *testing.T) {
	p := testParams()
	p.InteractionRadius = 0
	p.Eta = 0
	p.Speed = 1
	p.Iterations = 50

	start := bird.FromSpherical(1, math.Pi/2, 0, 1, 0)
	eng, err := New([]bird.Particle{start}, p, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := start.Move(float64(p.Iterations)*p.Dt, 1, 1)
	got := eng.Particles()[0]
	if !got.Position.ApproxEq(want.Position, 1e-12) {
		t.Errorf("position = %v, want %v", got.Position, want.Position)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	flock := randomFlock(rand.New(rand.NewSource(8)), 60, 1, 2)
	p := testParams()
	p.Iterations = 30

	run := func() []bird.Particle {
		eng, err := New(flock, p, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := eng.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		return eng.Particles()
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bird %d differs between identical runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEngine_FrameInterval(t *testing.T) {
	p := testParams()
	p.Iterations = 95
	p.FrameInterval = 10

	frames := NewCollector()
	eng, err := New(randomFlock(rand.New(rand.NewSource(4)), 20, 1, 2), p, frames, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	snaps := frames.Snapshots()
	if len(snaps) != 9 {
		t.Fatalf("got %d frames, want 9", len(snaps))
	}
	for i, s := range snaps {
		wantStep := uint64(10 * (i + 1))
		if s.Step != wantStep {
			t.Errorf("frame %d step = %d, want %d", i, s.Step, wantStep)
		}
		if math.Abs(s.Time-float64(wantStep)*p.Dt) > 1e-9 {
			t.Errorf("frame %d time = %v", i, s.Time)
		}
		if len(s.Particles) != 20 {
			t.Errorf("frame %d has %d particles", i, len(s.Particles))
		}
	}
}

func TestEngine_SnapshotsAreCopies(t *testing.T) {
	p := testParams()
	p.Iterations = 10
	p.FrameInterval = 5

	frames := NewCollector()
	eng, err := New(randomFlock(rand.New(rand.NewSource(5)), 10, 1, 2), p, frames, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	snaps := frames.Snapshots()
	last := snaps[len(snaps)-1]
	want := eng.Particles()[0]
	last.Particles[0] = bird.Particle{}
	if eng.Particles()[0] != want {
		t.Error("mutating a snapshot changed engine state")
	}
	if snaps[0].Particles[0] == snaps[1].Particles[0] {
		t.Error("frames at different steps share particle data")
	}
}

func TestEngine_DisconnectedConsumer(t *testing.T) {
	p := testParams()
	p.Iterations = 50
	p.FrameInterval = 5

	q := pipe.NewQueue[Snapshot]()
	q.Detach()

	eng, err := New(randomFlock(rand.New(rand.NewSource(6)), 15, 1, 2), p, q, nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- eng.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("engine stalled on a disconnected consumer")
	}

	if eng.StepCount() != p.Iterations {
		t.Errorf("StepCount = %d, want %d", eng.StepCount(), p.Iterations)
	}
	if eng.Emitted() != 10 || eng.Dropped() != 10 {
		t.Errorf("emitted %d dropped %d, want 10/10", eng.Emitted(), eng.Dropped())
	}
}

func TestEngine_StopFromAnotherGoroutine(t *testing.T) {
	p := testParams()
	p.Iterations = 10_000_000
	p.FrameInterval = 1

	frames := make(chan Snapshot, 1)
	eng, err := New(randomFlock(rand.New(rand.NewSource(7)), 50, 1, 2), p, pipe.ChanSink[Snapshot](frames), nil)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		<-frames
		time.Sleep(5 * time.Millisecond)
		eng.Stop()
	}()

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("stopped run must not error: %v", err)
	}
	if !eng.Stopped() {
		t.Error("Stopped() = false after Stop")
	}
	if eng.StepCount() == 0 || eng.StepCount() >= p.Iterations {
		t.Errorf("StepCount = %d, want in (0, %d)", eng.StepCount(), p.Iterations)
	}
}

func TestEngine_StopBeforeRun(t *testing.T) {
	eng, err := New(randomFlock(rand.New(rand.NewSource(7)), 5, 1, 2), testParams(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	eng.Stop()
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if eng.StepCount() != 0 {
		t.Errorf("StepCount = %d, want 0", eng.StepCount())
	}
}

func TestEngine_ContextCancelled(t *testing.T) {
	eng, err := New(randomFlock(rand.New(rand.NewSource(9)), 5, 1, 2), testParams(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := eng.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if eng.StepCount() != 0 {
		t.Errorf("StepCount = %d, want 0", eng.StepCount())
	}
}

type countMetric struct{ n int }

func (c *countMetric) Name() string       { return "frames" }
func (c *countMetric) Observe(s Snapshot) { c.n++ }
func (c *countMetric) Value() float64     { return float64(c.n) }
func (c *countMetric) Reset()             { c.n = 0 }

func TestEngine_Metrics(t *testing.T) {
	p := testParams()
	eng, err := New(randomFlock(rand.New(rand.NewSource(10)), 5, 1, 2), p, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	eng.AddMetric(&countMetric{n: 99})
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := eng.Metrics()["frames"]; got != 10 {
		t.Errorf("frames metric = %v, want 10", got)
	}
}

func TestEngine_DivergedStateEndsRun(t *testing.T) {
	p := testParams()
	p.Eta = 0
	p.InteractionRadius = 0
	p.FrameInterval = 1

	frames := NewCollector()
	eng, err := New([]bird.Particle{bird.FromSpherical(1, 1, 1, 2, 0)}, p, frames, nil)
	if err != nil {
		t.Fatal(err)
	}
	eng.bufs[eng.cur][0].Position = vec.New(math.NaN(), 0, 0)

	err = eng.Run(context.Background())
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	var se *dynamo.StepError
	if !errors.As(err, &se) {
		t.Fatalf("expected *dynamo.StepError, got %T", err)
	}
	if se.Step != 1 {
		t.Errorf("failed at step %d, want 1", se.Step)
	}
	if frames.Len() != 0 {
		t.Errorf("diverged frame was emitted (%d frames)", frames.Len())
	}
}
