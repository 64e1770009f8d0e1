package fluid

import "math"

// Channel counts used by the solver: 1 for pressure, divergence and curl,
// 2 for velocity, 3 for dye.
const maxChannels = 3

// Field is a rectangular buffer of float32 samples on a uniform grid.
// Storage is a single flat slice, row-major, channel-interleaved.
// Dimensions are fixed for the field's lifetime; changing resolution means
// releasing the field and allocating a new one.
type Field struct {
	width    int
	height   int
	channels int
	data     []float32
}

// Alloc returns a zero-initialized field at the given dimensions.
func Alloc(width, height, channels int) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, &AllocationError{width, height, channels, "dimensions must be positive"}
	}
	if channels < 1 || channels > maxChannels {
		return nil, &AllocationError{width, height, channels, "unsupported channel count"}
	}
	return &Field{
		width:    width,
		height:   height,
		channels: channels,
		data:     make([]float32, width*height*channels),
	}, nil
}

func (f *Field) Width() int    { return f.width }
func (f *Field) Height() int   { return f.height }
func (f *Field) Channels() int { return f.channels }

// Data exposes the backing slice for compositors and device uploads.
func (f *Field) Data() []float32 { return f.data }

// Release drops the backing buffer. Safe on nil and after a prior Release.
func (f *Field) Release() {
	if f == nil {
		return
	}
	f.data = nil
}

// At returns channel c of the sample at (x, y).
func (f *Field) At(x, y, c int) float32 {
	return f.data[(y*f.width+x)*f.channels+c]
}

// Set writes channel c of the sample at (x, y).
func (f *Field) Set(x, y, c int, v float32) {
	f.data[(y*f.width+x)*f.channels+c] = v
}

// base returns the flat index of the first channel at (x, y).
func (f *Field) base(x, y int) int {
	return (y*f.width + x) * f.channels
}

// Clear zeroes every sample.
func (f *Field) Clear() {
	for i := range f.data {
		f.data[i] = 0
	}
}

// bilinear samples channel c at UV (u, v) with texel-center alignment.
// Source texels outside the grid clamp to the border, so positions beyond
// [0,1]² read the nearest edge value.
func (f *Field) bilinear(u, v float64, c int) float32 {
	fx := u*float64(f.width) - 0.5
	fy := v*float64(f.height) - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := float32(fx - float64(x0))
	ty := float32(fy - float64(y0))
	x1 := clampInt(x0+1, 0, f.width-1)
	y1 := clampInt(y0+1, 0, f.height-1)
	x0 = clampInt(x0, 0, f.width-1)
	y0 = clampInt(y0, 0, f.height-1)
	s00 := f.At(x0, y0, c)
	s10 := f.At(x1, y0, c)
	s01 := f.At(x0, y1, c)
	s11 := f.At(x1, y1, c)
	top := s00 + (s10-s00)*tx
	bottom := s01 + (s11-s01)*tx
	return top + (bottom-top)*ty
}

// clampInt constrains v to lie within the inclusive [lo, hi] range.
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DoubleBuffer pairs two same-shaped fields. Operators read from Read and
// write into Write, then call Swap so the fresh data becomes readable; the
// two halves are never aliased within one pass.
type DoubleBuffer struct {
	read  *Field
	write *Field
}

// AllocDouble allocates a read/write pair of zeroed fields.
func AllocDouble(width, height, channels int) (*DoubleBuffer, error) {
	r, err := Alloc(width, height, channels)
	if err != nil {
		return nil, err
	}
	w, err := Alloc(width, height, channels)
	if err != nil {
		r.Release()
		return nil, err
	}
	return &DoubleBuffer{read: r, write: w}, nil
}

func (d *DoubleBuffer) Read() *Field  { return d.read }
func (d *DoubleBuffer) Write() *Field { return d.write }

// Swap exchanges the read and write halves without copying data.
func (d *DoubleBuffer) Swap() {
	d.read, d.write = d.write, d.read
}

// Clear zeroes both halves.
func (d *DoubleBuffer) Clear() {
	d.read.Clear()
	d.write.Clear()
}

// Release drops both halves. Safe on nil and after a prior Release.
func (d *DoubleBuffer) Release() {
	if d == nil {
		return
	}
	d.read.Release()
	d.write.Release()
}
