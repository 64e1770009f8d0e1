package fluid

import "github.com/go-gl/mathgl/mgl32"

// applySplat deposits one request into the velocity and dye fields. Each
// write lands in the Write half and is followed by a swap, so consecutive
// splats within a tick stack on each other's output.
func (s *Sim) applySplat(sp Splat) {
	radius := s.params.SplatRadius
	if s.aspect > 1 {
		radius *= s.aspect
	}
	if radius <= 0 {
		return
	}
	s.splatPass(s.velocity, radius, sp.Pos, [3]float32{sp.Force.X(), sp.Force.Y()})
	s.splatPass(s.dye, radius, sp.Pos, [3]float32{sp.Color.X(), sp.Color.Y(), sp.Color.Z()})
}

// splatPass adds a radial falloff of add[0..channels) around pos.
// Distances are measured in aspect-corrected UV space so the deposit
// stays circular on non-square viewports, and the falloff cuts to zero
// two radii out.
func (s *Sim) splatPass(db *DoubleBuffer, radius float32, pos mgl32.Vec2, add [3]float32) {
	src := db.Read()
	dst := db.Write()
	w, h, ch := src.width, src.height, src.channels
	aspect := s.aspect
	invR2 := 1 / (radius * radius)
	px, py := pos.X(), pos.Y()
	s.pool.run(h, w, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			dy := (float32(y)+0.5)/float32(h) - py
			dy2 := dy * dy
			for x := 0; x < w; x++ {
				dx := ((float32(x)+0.5)/float32(w) - px) * aspect
				weight := fastExp(-(dx*dx + dy2) * invR2)
				base := src.base(x, y)
				for c := 0; c < ch; c++ {
					dst.data[base+c] = src.data[base+c] + add[c]*weight
				}
			}
		}
	})
	db.Swap()
}
