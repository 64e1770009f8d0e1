package fluid

import (
	"math"
	"testing"
)

func TestHalfRoundTrip_ExactValues(t *testing.T) {
	values := []float32{
		0, 1, -1, 0.5, 0.25, 2, 1.5, -3.75, 2048,
		65504,                 // largest finite half
		6.103515625e-05,       // smallest normal half
		5.960464477539063e-08, // smallest denormal half
	}
	for _, v := range values {
		got := halfBitsToFloat(floatToHalfBits(v))
		if got != v {
			t.Errorf("round trip of %v = %v", v, got)
		}
	}
}

func TestHalfRoundTrip_WithinHalfPrecision(t *testing.T) {
	values := []float32{0.1, 0.15, 3.14159, 123.456, 0.0007, 42000}
	for _, v := range values {
		got := halfBitsToFloat(floatToHalfBits(v))
		rel := math.Abs(float64(got-v)) / math.Abs(float64(v))
		if rel > 1.0/1024 {
			t.Errorf("round trip of %v = %v, relative error %v", v, got, rel)
		}
	}
}

func TestHalf_Overflow(t *testing.T) {
	if bits := floatToHalfBits(100000); bits != 0x7c00 {
		t.Errorf("overflow bits = %#x, want +Inf", bits)
	}
	if bits := floatToHalfBits(-100000); bits != 0xfc00 {
		t.Errorf("negative overflow bits = %#x, want -Inf", bits)
	}
	if got := halfBitsToFloat(0x7c00); !math.IsInf(float64(got), 1) {
		t.Errorf("+Inf decoded as %v", got)
	}
	if got := halfBitsToFloat(0xfc00); !math.IsInf(float64(got), -1) {
		t.Errorf("-Inf decoded as %v", got)
	}
}

func TestHalf_TinyFlushesToZero(t *testing.T) {
	if bits := floatToHalfBits(1e-30); bits != 0 {
		t.Errorf("tiny positive flushed to %#x, want 0", bits)
	}
	if bits := floatToHalfBits(-1e-30); bits != 0x8000 {
		t.Errorf("tiny negative flushed to %#x, want signed 0", bits)
	}
}

func TestHalf_NaN(t *testing.T) {
	bits := floatToHalfBits(float32(math.NaN()))
	if bits&0x7c00 != 0x7c00 || bits&0x3ff == 0 {
		t.Fatalf("NaN encoded as %#x", bits)
	}
	if got := halfBitsToFloat(bits); !math.IsNaN(float64(got)) {
		t.Errorf("NaN decoded as %v", got)
	}
}

func TestHalfBuffer_PackUnpack(t *testing.T) {
	var hb halfBuffer
	src := []float32{0, 1, -2.5, 0.125}

	bits := hb.pack(src)
	if len(bits) != len(src) {
		t.Fatalf("packed length = %d, want %d", len(bits), len(src))
	}

	dst := make([]float32, len(src))
	hb.unpack(dst)
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("value %d round trip = %v, want %v", i, dst[i], src[i])
		}
	}

	// The scratch shrinks logically but keeps its capacity.
	hb.pack(src[:2])
	if len(hb.bits) != 2 {
		t.Errorf("scratch length = %d after smaller pack, want 2", len(hb.bits))
	}
}
