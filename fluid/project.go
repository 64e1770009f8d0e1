package fluid

import "gonum.org/v1/gonum/blas/blas32"

// computeDivergence writes the velocity divergence into the scratch
// buffer. A neighbor lookup that would leave the grid substitutes the
// negated center component, which models a closed container: flow cannot
// escape through the borders.
func (s *Sim) computeDivergence() {
	vel := s.velocity.Read()
	out := s.divergence
	w, h := vel.width, vel.height
	s.pool.run(h, w, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				base := vel.base(x, y)
				l := -vel.data[base]
				if x > 0 {
					l = vel.At(x-1, y, 0)
				}
				r := -vel.data[base]
				if x < w-1 {
					r = vel.At(x+1, y, 0)
				}
				t := -vel.data[base+1]
				if y > 0 {
					t = vel.At(x, y-1, 1)
				}
				b := -vel.data[base+1]
				if y < h-1 {
					b = vel.At(x, y+1, 1)
				}
				out.data[y*w+x] = 0.5 * ((r - l) + (b - t))
			}
		}
	})
}

// dampPressure scales the previous tick's pressure toward zero, keeping a
// damped warm start for the Jacobi solve instead of clearing it outright.
func (s *Sim) dampPressure() {
	src := s.pressure.Read()
	dst := s.pressure.Write()
	n := len(src.data)
	from := blas32.Vector{N: n, Inc: 1, Data: src.data}
	to := blas32.Vector{N: n, Inc: 1, Data: dst.data}
	blas32.Copy(from, to)
	blas32.Scal(s.params.PressureDamping, to)
	s.pressure.Swap()
}

// jacobiIterate runs one relaxation sweep of the pressure Poisson solve,
// averaging clamped neighbor pressures against the divergence.
func (s *Sim) jacobiIterate() {
	src := s.pressure.Read()
	dst := s.pressure.Write()
	div := s.divergence
	w, h := src.width, src.height
	s.pool.run(h, w, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			yT := clampInt(y-1, 0, h-1)
			yB := clampInt(y+1, 0, h-1)
			for x := 0; x < w; x++ {
				xL := clampInt(x-1, 0, w-1)
				xR := clampInt(x+1, 0, w-1)
				sum := src.data[y*w+xL] + src.data[y*w+xR] + src.data[yT*w+x] + src.data[yB*w+x]
				dst.data[y*w+x] = (sum - div.data[y*w+x]) * 0.25
			}
		}
	})
	s.pressure.Swap()
}

// subtractGradient removes the pressure gradient from velocity, the final
// projection step that leaves the field approximately divergence free.
func (s *Sim) subtractGradient() {
	press := s.pressure.Read()
	src := s.velocity.Read()
	dst := s.velocity.Write()
	w, h := src.width, src.height
	s.pool.run(h, w, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			yT := clampInt(y-1, 0, h-1)
			yB := clampInt(y+1, 0, h-1)
			for x := 0; x < w; x++ {
				xL := clampInt(x-1, 0, w-1)
				xR := clampInt(x+1, 0, w-1)
				l := press.data[y*w+xL]
				r := press.data[y*w+xR]
				t := press.data[yT*w+x]
				b := press.data[yB*w+x]
				base := src.base(x, y)
				dst.data[base] = src.data[base] - (r - l)
				dst.data[base+1] = src.data[base+1] - (b - t)
			}
		}
	})
	s.velocity.Swap()
}

// MeanAbsDivergence recomputes the divergence of the current velocity
// field and reports its mean magnitude, the residual diagnostic for the
// projection solve.
func (s *Sim) MeanAbsDivergence() float32 {
	s.computeDivergence()
	n := len(s.divergence.data)
	if n == 0 {
		return 0
	}
	v := blas32.Vector{N: n, Inc: 1, Data: s.divergence.data}
	return blas32.Asum(v) / float32(n)
}

// DyeMass reports the summed magnitude of every dye sample, a cheap
// conservation diagnostic for dissipation settings.
func (s *Sim) DyeMass() float32 {
	data := s.dye.Read().data
	if len(data) == 0 {
		return 0
	}
	v := blas32.Vector{N: len(data), Inc: 1, Data: data}
	return blas32.Asum(v)
}
