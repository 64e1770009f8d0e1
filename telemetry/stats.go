package telemetry

import "sort"

// SimRecord holds solver health metrics sampled at a window boundary.
type SimRecord struct {
	Tick        int64   `csv:"tick"`
	SimTime     float64 `csv:"sim_time"`
	MeanAbsDiv  float64 `csv:"mean_abs_div"`
	DyeMass     float64 `csv:"dye_mass"`
	SplatsTotal int64   `csv:"splats_total"`
	Backend     string  `csv:"backend"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeTickStats calculates mean and percentiles from tick durations.
func ComputeTickStats(values []float64) (mean, p50, p90, p99 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	p99 = Percentile(sorted, 0.99)

	return mean, p50, p90, p99
}
