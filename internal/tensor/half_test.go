package tensor

import (
	"math"
	"testing"
)

// Float16 Conversion Tests

func TestFloat16ExactValues(t *testing.T) {
	cases := []struct {
		value float32
		bits  uint16
	}{
		{0.0, 0x0000},
		{1.0, 0x3C00},
		{-1.0, 0xBC00},
		{0.5, 0x3800},
		{-2.0, 0xC000},
		{65504, 0x7BFF},    // largest finite binary16
		{6.1035156e-5, 0x0400}, // smallest normal, 2^-14
	}

	for _, tc := range cases {
		if got := Float16Bits(tc.value); got != tc.bits {
			t.Errorf("Float16Bits(%v) = 0x%04X, want 0x%04X", tc.value, got, tc.bits)
		}
		if got := Float16From(tc.bits); got != tc.value {
			t.Errorf("Float16From(0x%04X) = %v, want %v", tc.bits, got, tc.value)
		}
	}
}

func TestFloat16RoundToNearestEven(t *testing.T) {
	// 1 + 2^-11 sits halfway between 1.0 and 1 + 2^-10; the tie must
	// round to the even mantissa (1.0).
	if got := Float16Bits(1.00048828125); got != 0x3C00 {
		t.Errorf("halfway tie should round to even: got 0x%04X, want 0x3C00", got)
	}
	// 1 + 3*2^-11 is halfway between odd and even mantissas; rounds up.
	if got := Float16Bits(1.00146484375); got != 0x3C02 {
		t.Errorf("odd tie should round up: got 0x%04X, want 0x3C02", got)
	}
}

func TestFloat16Overflow(t *testing.T) {
	if got := Float16Bits(70000); got != f16ExpInf {
		t.Errorf("overflow should produce +Inf (0x7C00), got 0x%04X", got)
	}
	if got := Float16Bits(-70000); got != f16SignBit|f16ExpInf {
		t.Errorf("negative overflow should produce -Inf (0xFC00), got 0x%04X", got)
	}
	if !math.IsInf(float64(Float16From(0x7C00)), 1) {
		t.Error("0x7C00 should widen to +Inf")
	}
	if !math.IsInf(float64(Float16From(0xFC00)), -1) {
		t.Error("0xFC00 should widen to -Inf")
	}
}

func TestFloat16NaN(t *testing.T) {
	nan := float32(math.NaN())
	bits := Float16Bits(nan)
	if !math.IsNaN(float64(Float16From(bits))) {
		t.Errorf("NaN should survive narrowing, got bits 0x%04X", bits)
	}
}

func TestFloat16Subnormal(t *testing.T) {
	// Smallest denormal is 2^-24.
	want := float32(math.Pow(2, -24))
	if got := Float16From(0x0001); got != want {
		t.Errorf("Float16From(0x0001) = %g, want %g", got, want)
	}
	if got := Float16Bits(want); got != 0x0001 {
		t.Errorf("Float16Bits(2^-24) = 0x%04X, want 0x0001", got)
	}
	// Below half the smallest denormal flushes to zero.
	if got := Float16Bits(1e-9); got != 0x0000 {
		t.Errorf("tiny value should flush to zero, got 0x%04X", got)
	}
}

func TestFloat16RoundTripBits(t *testing.T) {
	// Every finite binary16 word must survive widen+narrow exactly.
	for w := 0; w <= 0xFFFF; w++ {
		bits := uint16(w)
		if (bits>>10)&0x1F == 0x1F {
			continue // Inf and NaN payloads are canonicalized
		}
		f := Float16From(bits)
		if got := Float16Bits(f); got != bits {
			t.Fatalf("round trip failed for 0x%04X: widened to %g, narrowed to 0x%04X", bits, f, got)
		}
	}
}

// BFloat16 Conversion Tests

func TestBFloat16ExactValues(t *testing.T) {
	cases := []struct {
		value float32
		bits  uint16
	}{
		{0.0, 0x0000},
		{1.0, 0x3F80},
		{-1.0, 0xBF80},
		{2.0, 0x4000},
		{3.140625, 0x4049},
	}

	for _, tc := range cases {
		if got := BFloat16Bits(tc.value); got != tc.bits {
			t.Errorf("BFloat16Bits(%v) = 0x%04X, want 0x%04X", tc.value, got, tc.bits)
		}
		if got := BFloat16From(tc.bits); got != tc.value {
			t.Errorf("BFloat16From(0x%04X) = %v, want %v", tc.bits, got, tc.value)
		}
	}
}

func TestBFloat16RoundToNearestEven(t *testing.T) {
	// 0x3F80_8000 is exactly halfway; even mantissa (0x3F80) wins.
	if got := BFloat16Bits(math.Float32frombits(0x3F808000)); got != 0x3F80 {
		t.Errorf("tie at even mantissa should truncate: got 0x%04X", got)
	}
	// 0x3F81_8000 ties at an odd mantissa; rounds up to 0x3F82.
	if got := BFloat16Bits(math.Float32frombits(0x3F818000)); got != 0x3F82 {
		t.Errorf("tie at odd mantissa should round up: got 0x%04X", got)
	}
}

func TestBFloat16Range(t *testing.T) {
	// bfloat16 keeps float32's exponent range, so huge values stay finite.
	big := float32(3e38)
	back := BFloat16From(BFloat16Bits(big))
	if math.IsInf(float64(back), 0) {
		t.Error("3e38 should stay finite in bfloat16")
	}
	if math.Abs(float64(back-big))/float64(big) > 0.01 {
		t.Errorf("bfloat16 round trip too lossy: %g -> %g", big, back)
	}
}

func TestBFloat16NaNAndInf(t *testing.T) {
	if !math.IsNaN(float64(BFloat16From(BFloat16Bits(float32(math.NaN()))))) {
		t.Error("NaN should survive bfloat16 narrowing")
	}
	inf := float32(math.Inf(1))
	if !math.IsInf(float64(BFloat16From(BFloat16Bits(inf))), 1) {
		t.Error("+Inf should survive bfloat16 narrowing")
	}
}
