package fluid

import "math"

// computeCurl writes the scalar curl of the velocity field into the curl
// scratch buffer. Neighbor reads clamp at the border.
func (s *Sim) computeCurl() {
	vel := s.velocity.Read()
	out := s.curl
	w, h := vel.width, vel.height
	s.pool.run(h, w, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			yT := clampInt(y-1, 0, h-1)
			yB := clampInt(y+1, 0, h-1)
			for x := 0; x < w; x++ {
				xL := clampInt(x-1, 0, w-1)
				xR := clampInt(x+1, 0, w-1)
				l := vel.At(xL, y, 1)
				r := vel.At(xR, y, 1)
				t := vel.At(x, yT, 0)
				b := vel.At(x, yB, 0)
				out.data[y*w+x] = 0.5 * ((r - l) - (b - t))
			}
		}
	})
}

// applyConfinement reinforces rotational motion that advection damps out.
// The gradient of |curl| is normalized with a small bias so flat regions
// contribute nothing instead of NaN, rotated a quarter turn, and scaled by
// the local curl before being added to velocity.
func (s *Sim) applyConfinement(dt float64) {
	src := s.velocity.Read()
	dst := s.velocity.Write()
	curl := s.curl
	w, h := src.width, src.height
	strength := s.params.CurlStrength
	fdt := float32(dt)
	s.pool.run(h, w, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			yT := clampInt(y-1, 0, h-1)
			yB := clampInt(y+1, 0, h-1)
			for x := 0; x < w; x++ {
				xL := clampInt(x-1, 0, w-1)
				xR := clampInt(x+1, 0, w-1)
				t := absf(curl.data[yT*w+x])
				b := absf(curl.data[yB*w+x])
				l := absf(curl.data[y*w+xL])
				r := absf(curl.data[y*w+xR])
				c := curl.data[y*w+x]
				fx := 0.5 * (t - b)
				fy := 0.5 * (r - l)
				scale := strength * c / (float32(math.Sqrt(float64(fx*fx+fy*fy))) + 1e-4)
				base := src.base(x, y)
				dst.data[base] = src.data[base] + fx*scale*fdt
				dst.data[base+1] = src.data[base+1] - fy*scale*fdt
			}
		}
	})
	s.velocity.Swap()
}
