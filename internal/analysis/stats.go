package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SeriesStats summarizes a scalar time series.
type SeriesStats struct {
	N     int     `json:"n"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	First float64 `json:"first"`
	Last  float64 `json:"last"`
}

func Summarize(xs []float64) SeriesStats {
	s := SeriesStats{N: len(xs)}
	if len(xs) == 0 {
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		s.Std = 0
	}
	s.Min = floats.Min(xs)
	s.Max = floats.Max(xs)
	s.First = xs[0]
	s.Last = xs[len(xs)-1]
	return s
}

// Tail returns the last frac of xs, at least one element when xs is
// non-empty. It is used to drop the transient before averaging.
func Tail(xs []float64, frac float64) []float64 {
	if len(xs) == 0 {
		return xs
	}
	if frac <= 0 || frac > 1 {
		frac = 1
	}
	n := int(float64(len(xs)) * frac)
	if n < 1 {
		n = 1
	}
	return xs[len(xs)-n:]
}

// Susceptibility is N·Var(φ), the fluctuation of the order parameter
// scaled by flock size; it peaks near the transition.
func Susceptibility(series []float64, particles int) float64 {
	if len(series) < 2 {
		return 0
	}
	return float64(particles) * stat.Variance(series, nil)
}
