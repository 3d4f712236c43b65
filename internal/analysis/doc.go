// Package analysis post-processes flock snapshots.
//
// The package includes:
//
//   - [OrderParameter]: global alignment |Σv| / Σ|v| of a flock
//   - [RotationalOrder]: alignment of the geodesic planes particles move in
//   - [OrderSeries]: order parameter of every snapshot in a run
//   - [FindClusters]: spatially close, aligned groups via union-find
//   - [Summarize]: mean, spread and extremes of a series
//   - [Spectrum]: power spectrum of a series
//
// # Phase Transition
//
// Sweeping the noise scale and recording the late-time order parameter
// traces the order/disorder transition:
//
//	s := analysis.Summarize(analysis.OrderSeries(result.Snapshots)[burnIn:])
//	fmt.Println(eta, s.Mean, s.Std)
package analysis
