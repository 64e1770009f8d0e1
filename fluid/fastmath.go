package fluid

// Fast math for the per-cell hot paths. These stay in float32 end to end,
// avoiding the float64 round trips the math package requires.

// fastExp approximates exp(x) with a Padé rational, accurate to ~0.06
// absolute error on [-4, 0]. Below -4 it returns exactly 0, which gives
// splat falloff a hard edge two radii out instead of an infinite tail.
// The OpenCL kernels carry the same rational form so both backends agree
// within float tolerance.
func fastExp(x float32) float32 {
	if x > 4 {
		return 54.6
	}
	if x < -4 {
		return 0
	}
	x2 := x * x
	return (12 + 6*x + x2) / (12 - 6*x + x2)
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
