package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/vec"
)

func TestOrderParameter(t *testing.T) {
	east := bird.New(vec.XHat(), vec.YHat())
	alsoEast := bird.New(vec.ZHat(), vec.YHat().Scale(3))
	west := bird.New(vec.XHat(), vec.YHat().Neg())

	tests := []struct {
		name  string
		flock []bird.Particle
		want  float64
	}{
		{"empty", nil, 0},
		{"single", []bird.Particle{east}, 1},
		{"aligned", []bird.Particle{east, alsoEast}, 1},
		{"opposed", []bird.Particle{east, west}, 0},
		{"motionless", []bird.Particle{bird.New(vec.XHat(), vec.Zero())}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OrderParameter(tt.flock); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("OrderParameter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotationalOrder_Band(t *testing.T) {
	var band []bird.Particle
	for k := 0; k < 12; k++ {
		band = append(band, bird.FromSpherical(1, math.Pi/2, 2*math.Pi*float64(k)/12, 1, 0))
	}
	if got := OrderParameter(band); got > 1e-12 {
		t.Errorf("equatorial band velocities should cancel, got %v", got)
	}
	if got := RotationalOrder(band); math.Abs(got-1) > 1e-12 {
		t.Errorf("RotationalOrder = %v, want 1", got)
	}
}

func TestOrderSeries(t *testing.T) {
	east := bird.New(vec.XHat(), vec.YHat())
	west := bird.New(vec.ZHat(), vec.YHat().Neg())
	snaps := []sim.Snapshot{
		{Step: 1, Time: 0.1, Particles: []bird.Particle{east, west}},
		{Step: 2, Time: 0.2, Particles: []bird.Particle{east, east}},
	}
	got := OrderSeries(snaps)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("OrderSeries = %v, want [0 1]", got)
	}
	if ts := Times(snaps); ts[1] != 0.2 {
		t.Errorf("Times = %v", ts)
	}
}

func TestFindClusters(t *testing.T) {
	// two tight groups on opposite sides of the sphere
	var flock []bird.Particle
	for k := 0; k < 5; k++ {
		flock = append(flock, bird.FromSpherical(1, 0.1+0.01*float64(k), 0, 1, 0))
	}
	for k := 0; k < 3; k++ {
		flock = append(flock, bird.FromSpherical(1, math.Pi-0.1-0.01*float64(k), 0, 1, 0))
	}

	res := FindClusters(flock, 1, 0.05, -1)
	if len(res.Clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(res.Clusters))
	}
	if res.Largest != 5 {
		t.Errorf("Largest = %d, want 5", res.Largest)
	}
	if len(res.Clusters[0].Members) != 5 || len(res.Clusters[1].Members) != 3 {
		t.Errorf("cluster sizes = %d, %d", len(res.Clusters[0].Members), len(res.Clusters[1].Members))
	}
	if math.Abs(res.MeanSize-4) > 1e-12 {
		t.Errorf("MeanSize = %v, want 4", res.MeanSize)
	}
	if math.Abs(res.LargestFrac-5.0/8) > 1e-12 {
		t.Errorf("LargestFrac = %v", res.LargestFrac)
	}
}

func TestFindClusters_Alignment(t *testing.T) {
	a := bird.FromSpherical(1, math.Pi/2, 0, 1, 0)
	b := bird.FromSpherical(1, math.Pi/2, 0.01, 1, 0)
	c := bird.FromSpherical(1, math.Pi/2, 0.02, 1, math.Pi)

	byDistance := FindClusters([]bird.Particle{a, b, c}, 1, 0.05, -1)
	if len(byDistance.Clusters) != 1 {
		t.Errorf("distance-only clustering: got %d clusters, want 1", len(byDistance.Clusters))
	}

	aligned := FindClusters([]bird.Particle{a, b, c}, 1, 0.05, 0.9)
	if len(aligned.Clusters) != 2 {
		t.Errorf("aligned clustering: got %d clusters, want 2", len(aligned.Clusters))
	}
}

func TestFindClusters_Empty(t *testing.T) {
	res := FindClusters(nil, 1, 0.1, 0)
	if len(res.Clusters) != 0 || res.Largest != 0 {
		t.Errorf("empty flock result = %+v", res)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4})
	if s.Mean != 2.5 || s.Min != 1 || s.Max != 4 || s.First != 1 || s.Last != 4 {
		t.Errorf("Summarize = %+v", s)
	}
	if want := math.Sqrt(5.0 / 3.0); math.Abs(s.Std-want) > 1e-12 {
		t.Errorf("Std = %v, want %v", s.Std, want)
	}

	one := Summarize([]float64{7})
	if one.Std != 0 || one.Mean != 7 {
		t.Errorf("single-sample stats = %+v", one)
	}
	if empty := Summarize(nil); empty.N != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestTail(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := Tail(xs, 0.3); len(got) != 3 || got[0] != 8 {
		t.Errorf("Tail(0.3) = %v", got)
	}
	if got := Tail(xs, 0.01); len(got) != 1 {
		t.Errorf("Tail(0.01) = %v", got)
	}
	if got := Tail(xs, 2); len(got) != 10 {
		t.Errorf("Tail(2) = %v", got)
	}
}

func TestSusceptibility(t *testing.T) {
	if got := Susceptibility([]float64{0.5, 0.5, 0.5}, 100); got != 0 {
		t.Errorf("constant series susceptibility = %v", got)
	}
	if got := Susceptibility([]float64{0, 1}, 10); math.Abs(got-5) > 1e-12 {
		t.Errorf("Susceptibility = %v, want 5", got)
	}
}

func TestSpectrum_DominantFrequency(t *testing.T) {
	const n, dt, f = 256, 0.01, 12.5
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = 0.4 + 0.1*math.Sin(2*math.Pi*f*float64(i)*dt)
	}

	freqs, power := Spectrum(xs, dt)
	if len(freqs) != n/2+1 || len(power) != n/2+1 {
		t.Fatalf("lengths %d/%d, want %d", len(freqs), len(power), n/2+1)
	}
	if power[0] > 1e-12 {
		t.Errorf("mean not removed: DC power = %v", power[0])
	}
	if got := DominantFrequency(xs, dt); math.Abs(got-f) > 1e-9 {
		t.Errorf("DominantFrequency = %v, want %v", got, f)
	}
}

func TestSpectrum_Degenerate(t *testing.T) {
	if f, p := Spectrum([]float64{1}, 0.1); f != nil || p != nil {
		t.Error("single sample must give no spectrum")
	}
	if got := DominantFrequency([]float64{2, 2, 2, 2}, 0.1); got != 0 {
		t.Errorf("flat series dominant frequency = %v, want 0", got)
	}
}
