package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// Spectrum returns the one-sided power spectrum of xs after removing its
// mean, and the matching frequencies for sample spacing dt.
func Spectrum(xs []float64, dt float64) (freqs, power []float64) {
	n := len(xs)
	if n < 2 || dt <= 0 {
		return nil, nil
	}

	centered := make([]float64, n)
	copy(centered, xs)
	floats.AddConst(-floats.Sum(xs)/float64(n), centered)

	coeffs := fft.FFTReal(centered)
	half := n/2 + 1
	freqs = make([]float64, half)
	power = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		a := cmplx.Abs(coeffs[k])
		power[k] = a * a / float64(n)
	}
	return freqs, power
}

// DominantFrequency is the non-zero frequency with the most power, or 0
// when the series is too short or flat.
func DominantFrequency(xs []float64, dt float64) float64 {
	freqs, power := Spectrum(xs, dt)
	if len(power) < 2 {
		return 0
	}
	best := floats.MaxIdx(power[1:]) + 1
	if power[best] == 0 {
		return 0
	}
	return freqs[best]
}
