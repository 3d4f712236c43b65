package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
)

func TestBatch_Run(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := testParams()
	p.Iterations = 40
	p.FrameInterval = 20

	var reqs []Request
	for i := 0; i < 5; i++ {
		q := p
		q.Seed = int64(i)
		reqs = append(reqs, Request{
			ID:      fmt.Sprintf("run-%d", i),
			Tag:     "batch",
			Initial: randomFlock(rng, 12, p.Radius, p.Speed),
			Params:  q,
		})
	}

	b := &Batch{Parallel: 2, Metrics: func(Request) []Metric { return []Metric{&countMetric{}} }}
	results, err := b.Run(context.Background(), reqs)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}
	for i, r := range results {
		if r.ID != reqs[i].ID {
			t.Errorf("result %d id = %s, want %s", i, r.ID, reqs[i].ID)
		}
		if r.TotalSteps != 40 || r.Frames != 2 {
			t.Errorf("result %d steps=%d frames=%d", i, r.TotalSteps, r.Frames)
		}
		if math.Abs(r.DurationSeconds-40*p.Dt) > 1e-12 {
			t.Errorf("duration = %v", r.DurationSeconds)
		}
		if r.Metrics["frames"] != 2 {
			t.Errorf("metric frames = %v, want 2", r.Metrics["frames"])
		}
		if len(r.FinalState) != 12 {
			t.Errorf("final state has %d particles", len(r.FinalState))
		}
	}
}

func TestBatch_FailsOnInvalidRequest(t *testing.T) {
	reqs := []Request{
		{ID: "ok", Initial: randomFlock(rand.New(rand.NewSource(1)), 3, 1, 1), Params: testParams()},
		{ID: "empty", Params: testParams()},
	}
	_, err := (&Batch{}).Run(context.Background(), reqs)
	if !errors.Is(err, ErrNoParticles) {
		t.Errorf("expected ErrNoParticles, got %v", err)
	}
}

func TestBatch_SizeMismatch(t *testing.T) {
	reqs := []Request{{
		ID:         "short",
		EnsembleID: "flock-0",
		Initial:    randomFlock(rand.New(rand.NewSource(2)), 3, 1, 1),
		Params:     testParams(),
		Size:       5,
	}}
	_, err := (&Batch{}).Run(context.Background(), reqs)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}

type radiusMetric struct{ r float64 }

func (m radiusMetric) Name() string     { return "radius" }
func (m radiusMetric) Observe(Snapshot) {}
func (m radiusMetric) Value() float64   { return m.r }
func (m radiusMetric) Reset()           {}

func TestBatch_MetricsPerRequest(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	var reqs []Request
	for i, r := range []float64{1, 2.5, 4} {
		p := testParams()
		p.Radius = r
		p.Iterations = 10
		reqs = append(reqs, Request{
			ID:      fmt.Sprintf("r%d", i),
			Initial: randomFlock(rng, 6, r, p.Speed),
			Params:  p,
			Size:    6,
		})
	}

	b := &Batch{Metrics: func(req Request) []Metric { return []Metric{radiusMetric{req.Params.Radius}} }}
	results, err := b.Run(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	for i, res := range results {
		if got, want := res.Metrics["radius"], reqs[i].Params.Radius; got != want {
			t.Errorf("%s: metric built for radius %v, want %v", res.ID, got, want)
		}
	}
}

func TestNewResult(t *testing.T) {
	p := DefaultParams()
	p.Dt = 0.5
	req := Request{ID: "x", Tag: "t", EnsembleID: "e", Params: p}

	empty := NewResult(req, nil, nil)
	if empty.TotalSteps != 0 || empty.DurationSeconds != 0 || empty.FinalState != nil {
		t.Errorf("empty result = %+v", empty)
	}

	snaps := []Snapshot{
		{Step: 10, Particles: randomFlock(rand.New(rand.NewSource(1)), 2, 1, 1)},
		{Step: 20, Particles: randomFlock(rand.New(rand.NewSource(2)), 2, 1, 1)},
	}
	r := NewResult(req, snaps, map[string]float64{"order": 0.5})
	if r.TotalSteps != 20 {
		t.Errorf("TotalSteps = %d, want 20", r.TotalSteps)
	}
	if r.DurationSeconds != 10 {
		t.Errorf("DurationSeconds = %v, want 10", r.DurationSeconds)
	}
	if r.Particles != 2 || r.Frames != 2 {
		t.Errorf("Particles=%d Frames=%d", r.Particles, r.Frames)
	}
	if r.FinalState[0] != snaps[1].Particles[0] {
		t.Error("final state must be the last snapshot")
	}
}
