package metrics

import "math"

// Welford keeps a running mean and population standard deviation without
// storing the observations.
type Welford struct {
	count int
	mean  float64
	m2    float64 // sum of squared differences from the mean
}

// Add records one observation
func (w *Welford) Add(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (x - w.mean)
}

// Count returns the number of observations
func (w *Welford) Count() int {
	return w.count
}

// Mean returns the running mean, 0 when empty
func (w *Welford) Mean() float64 {
	return w.mean
}

// StdDev returns the population standard deviation.
// Returns 0 if fewer than 2 observations.
func (w *Welford) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count))
}
