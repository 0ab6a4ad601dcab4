package cpu

import (
	"math"
	"testing"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// TestCPUBackend_Sum tests full reduction.
func TestCPUBackend_Sum(t *testing.T) {
	backend := newTestBackend()

	x := tensor.RawFrom([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.Float32)

	sum := backend.Sum(x)

	if !sum.Shape().Equal(tensor.Shape{}) {
		t.Fatalf("Sum shape = %v, want scalar", sum.Shape())
	}
	if got := sum.AsFloat32()[0]; got != 10 {
		t.Errorf("Sum = %v, want 10", got)
	}
}

// TestCPUBackend_Mean tests the scalar mean.
func TestCPUBackend_Mean(t *testing.T) {
	backend := newTestBackend()

	x := tensor.RawFrom([]float32{2, 4, 6, 8}, tensor.Shape{4}, tensor.Float32)

	if got := backend.Mean(x).AsFloat32()[0]; got != 5 {
		t.Errorf("Mean = %v, want 5", got)
	}
}

// TestCPUBackend_SumDim tests reduction along a single dimension.
func TestCPUBackend_SumDim(t *testing.T) {
	backend := newTestBackend()

	x := tensor.RawFrom([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.Float32)

	t.Run("LastDim", func(t *testing.T) {
		result := backend.SumDim(x, 1, false)

		if !result.Shape().Equal(tensor.Shape{2}) {
			t.Fatalf("shape = %v, want [2]", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{6, 15}) {
			t.Errorf("SumDim(1) = %v, want [6 15]", result.AsFloat32())
		}
	})

	t.Run("FirstDimKeep", func(t *testing.T) {
		result := backend.SumDim(x, 0, true)

		if !result.Shape().Equal(tensor.Shape{1, 3}) {
			t.Fatalf("shape = %v, want [1 3]", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{5, 7, 9}) {
			t.Errorf("SumDim(0, keep) = %v, want [5 7 9]", result.AsFloat32())
		}
	})

	t.Run("Half", func(t *testing.T) {
		h := tensor.RawFrom([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.Float16)

		result := backend.SumDim(h, 1, false)

		if result.DType() != tensor.Float16 {
			t.Fatalf("dtype = %v, want Float16", result.DType())
		}
		if !float32SliceEqual(result.Float32Values(), []float32{3, 7}) {
			t.Errorf("float16 SumDim = %v, want [3 7]", result.Float32Values())
		}
	})

	t.Run("OutOfRangePanics", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("SumDim with bad dim should panic")
			}
		}()
		_ = backend.SumDim(x, 2, false)
	})
}

// TestCPUBackend_SumSquares tests squared-norm accumulation.
func TestCPUBackend_SumSquares(t *testing.T) {
	backend := newTestBackend()

	x := tensor.RawFrom([]float32{3, 4}, tensor.Shape{2}, tensor.Float32)
	if got := backend.SumSquares(x); got != 25 {
		t.Errorf("SumSquares = %v, want 25", got)
	}

	h := tensor.RawFrom([]float32{1, 2, 2}, tensor.Shape{3}, tensor.BFloat16)
	if got := backend.SumSquares(h); got != 9 {
		t.Errorf("bfloat16 SumSquares = %v, want 9", got)
	}
}

// TestCPUBackend_HasNonFinite tests the overflow scan.
func TestCPUBackend_HasNonFinite(t *testing.T) {
	backend := newTestBackend()

	t.Run("Float32", func(t *testing.T) {
		clean := tensor.RawFrom([]float32{1, 2, 3}, tensor.Shape{3}, tensor.Float32)
		if backend.HasNonFinite(clean) {
			t.Error("finite tensor flagged as non-finite")
		}

		withNaN := tensor.RawFrom([]float32{1, float32(math.NaN()), 3}, tensor.Shape{3}, tensor.Float32)
		if !backend.HasNonFinite(withNaN) {
			t.Error("NaN not detected")
		}

		withInf := tensor.RawFrom([]float32{1, 2, float32(math.Inf(1))}, tensor.Shape{3}, tensor.Float32)
		if !backend.HasNonFinite(withInf) {
			t.Error("Inf not detected")
		}
	})

	t.Run("Float16ExponentBits", func(t *testing.T) {
		x := tensor.RawZeros(tensor.Shape{4}, tensor.Float16)
		if backend.HasNonFinite(x) {
			t.Error("zeroed float16 flagged as non-finite")
		}

		// Largest finite float16 must not trip the exponent check.
		x.AsUint16()[0] = tensor.Float16Bits(65504)
		if backend.HasNonFinite(x) {
			t.Error("65504 is finite in float16")
		}

		x.AsUint16()[1] = tensor.Float16Bits(float32(math.Inf(-1)))
		if !backend.HasNonFinite(x) {
			t.Error("float16 -Inf not detected")
		}
	})

	t.Run("BFloat16ExponentBits", func(t *testing.T) {
		x := tensor.RawFrom([]float32{1, 2, 3}, tensor.Shape{3}, tensor.BFloat16)
		if backend.HasNonFinite(x) {
			t.Error("finite bfloat16 flagged as non-finite")
		}

		x.AsUint16()[2] = tensor.BFloat16Bits(float32(math.NaN()))
		if !backend.HasNonFinite(x) {
			t.Error("bfloat16 NaN not detected")
		}
	})
}
