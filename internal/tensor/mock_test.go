package tensor

import (
	"math"
	"testing"
)

// MockBackend Elementwise Tests

func TestMockBackendAdd(t *testing.T) {
	backend := NewMockBackend()
	a := RawFrom([]float32{1, 2, 3, 4}, Shape{2, 2}, Float32)
	b := RawFrom([]float32{10, 20, 30, 40}, Shape{2, 2}, Float32)

	result := backend.Add(a, b)

	expected := []float32{11, 22, 33, 44}
	for i, exp := range expected {
		assertEqualFloat32(t, exp, result.AsFloat32()[i], "Add")
	}
}

func TestMockBackendAddBroadcast(t *testing.T) {
	backend := NewMockBackend()
	a := RawFrom([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, Float32)
	b := RawFrom([]float32{10, 20, 30}, Shape{3}, Float32)

	result := backend.Add(a, b)

	assertEqualShape(t, Shape{2, 3}, result.Shape(), "Add broadcast shape")
	expected := []float32{11, 22, 33, 14, 25, 36}
	for i, exp := range expected {
		assertEqualFloat32(t, exp, result.AsFloat32()[i], "Add broadcast")
	}
}

func TestMockBackendSubMulDiv(t *testing.T) {
	backend := NewMockBackend()
	a := RawFrom([]float32{8, 6, 4, 2}, Shape{4}, Float32)
	b := RawFrom([]float32{2, 2, 2, 2}, Shape{4}, Float32)

	sub := backend.Sub(a, b)
	mul := backend.Mul(a, b)
	div := backend.Div(a, b)

	for i, exp := range []float32{6, 4, 2, 0} {
		assertEqualFloat32(t, exp, sub.AsFloat32()[i], "Sub")
	}
	for i, exp := range []float32{16, 12, 8, 4} {
		assertEqualFloat32(t, exp, mul.AsFloat32()[i], "Mul")
	}
	for i, exp := range []float32{4, 3, 2, 1} {
		assertEqualFloat32(t, exp, div.AsFloat32()[i], "Div")
	}
}

func TestMockBackendHalfArithmetic(t *testing.T) {
	backend := NewMockBackend()
	a := RawFrom([]float32{1.5, 2.5}, Shape{2}, Float16)
	b := RawFrom([]float32{0.5, 0.5}, Shape{2}, Float16)

	result := backend.Add(a, b)

	if result.DType() != Float16 {
		t.Errorf("result dtype = %v, want Float16", result.DType())
	}
	vals := result.Float32Values()
	if vals[0] != 2.0 || vals[1] != 3.0 {
		t.Errorf("float16 Add = %v, want [2 3]", vals)
	}
}

// MockBackend MatMul and Transpose Tests

func TestMockBackendMatMul(t *testing.T) {
	backend := NewMockBackend()
	// [1 2 3]   [7  8]
	// [4 5 6] @ [9  10] = [58 64; 139 154]
	//           [11 12]
	a := RawFrom([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, Float32)
	b := RawFrom([]float32{7, 8, 9, 10, 11, 12}, Shape{3, 2}, Float32)

	result := backend.MatMul(a, b)

	assertEqualShape(t, Shape{2, 2}, result.Shape(), "MatMul shape")
	expected := []float32{58, 64, 139, 154}
	for i, exp := range expected {
		assertEqualFloat32(t, exp, result.AsFloat32()[i], "MatMul")
	}
}

func TestMockBackendMatMulIncompatiblePanics(t *testing.T) {
	backend := NewMockBackend()
	a := RawZeros(Shape{2, 3}, Float32)
	b := RawZeros(Shape{2, 3}, Float32)

	defer func() {
		if r := recover(); r == nil {
			t.Error("MatMul with incompatible shapes should panic")
		}
	}()
	_ = backend.MatMul(a, b)
}

func TestMockBackendTranspose(t *testing.T) {
	backend := NewMockBackend()
	a := RawFrom([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, Float32)

	result := backend.Transpose(a)

	assertEqualShape(t, Shape{3, 2}, result.Shape(), "Transpose shape")
	expected := []float32{1, 4, 2, 5, 3, 6}
	for i, exp := range expected {
		assertEqualFloat32(t, exp, result.AsFloat32()[i], "Transpose")
	}
}

// MockBackend Scaling Tests

func TestMockBackendMulScalar(t *testing.T) {
	backend := NewMockBackend()
	x := RawFrom([]float32{1, 2, 3}, Shape{3}, Float32)

	result := backend.MulScalar(x, 2.5)

	for i, exp := range []float32{2.5, 5, 7.5} {
		assertEqualFloat32(t, exp, result.AsFloat32()[i], "MulScalar")
	}
	// Input must be untouched.
	assertEqualFloat32(t, 1, x.AsFloat32()[0], "MulScalar input")
}

func TestMockBackendScaleInPlace(t *testing.T) {
	backend := NewMockBackend()
	x := RawFrom([]float32{4, 8, 12}, Shape{3}, Float32)

	backend.Scale(x, 0.25)

	for i, exp := range []float32{1, 2, 3} {
		assertEqualFloat32(t, exp, x.AsFloat32()[i], "Scale")
	}
}

func TestMockBackendFill(t *testing.T) {
	backend := NewMockBackend()
	x := RawZeros(Shape{2, 2}, Float32)

	backend.Fill(x, 7)

	for i := range x.AsFloat32() {
		assertEqualFloat32(t, 7, x.AsFloat32()[i], "Fill")
	}
}

// MockBackend Reduction Tests

func TestMockBackendSumAndMean(t *testing.T) {
	backend := NewMockBackend()
	x := RawFrom([]float32{1, 2, 3, 4}, Shape{2, 2}, Float32)

	sum := backend.Sum(x)
	mean := backend.Mean(x)

	assertEqualShape(t, Shape{}, sum.Shape(), "Sum shape")
	assertEqualFloat32(t, 10, sum.AsFloat32()[0], "Sum")
	assertEqualFloat32(t, 2.5, mean.AsFloat32()[0], "Mean")
}

func TestMockBackendSumDim(t *testing.T) {
	backend := NewMockBackend()
	x := RawFrom([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, Float32)

	rows := backend.SumDim(x, 1, false)
	assertEqualShape(t, Shape{2}, rows.Shape(), "SumDim dim=1 shape")
	assertEqualFloat32(t, 6, rows.AsFloat32()[0], "SumDim dim=1 row 0")
	assertEqualFloat32(t, 15, rows.AsFloat32()[1], "SumDim dim=1 row 1")

	cols := backend.SumDim(x, 0, true)
	assertEqualShape(t, Shape{1, 3}, cols.Shape(), "SumDim keepDim shape")
	for i, exp := range []float32{5, 7, 9} {
		assertEqualFloat32(t, exp, cols.AsFloat32()[i], "SumDim dim=0")
	}
}

func TestMockBackendSumSquares(t *testing.T) {
	backend := NewMockBackend()
	x := RawFrom([]float32{3, 4}, Shape{2}, Float32)

	if got := backend.SumSquares(x); got != 25 {
		t.Errorf("SumSquares = %v, want 25", got)
	}
}

// MockBackend Conversion Tests

func TestMockBackendCast(t *testing.T) {
	backend := NewMockBackend()
	x := RawFrom([]float32{1.5, -2.0, 8.0}, Shape{3}, Float32)

	half := backend.Cast(x, Float16)
	if half.DType() != Float16 {
		t.Errorf("Cast dtype = %v, want Float16", half.DType())
	}
	back := backend.Cast(half, Float32)
	for i, exp := range []float32{1.5, -2.0, 8.0} {
		assertEqualFloat32(t, exp, back.AsFloat32()[i], "Cast round trip")
	}
}

func TestMockBackendCopyConverts(t *testing.T) {
	backend := NewMockBackend()
	src := RawFrom([]float32{0.5, 1.0, -4.0}, Shape{3}, Float32)
	dst := RawZeros(Shape{3}, BFloat16)

	backend.Copy(dst, src)

	vals := dst.Float32Values()
	for i, exp := range []float32{0.5, 1.0, -4.0} {
		assertEqualFloat32(t, exp, vals[i], "Copy narrow")
	}
}

func TestMockBackendCopyShapeMismatchPanics(t *testing.T) {
	backend := NewMockBackend()
	src := RawZeros(Shape{3}, Float32)
	dst := RawZeros(Shape{4}, Float32)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Copy with mismatched shapes should panic")
		}
	}()
	backend.Copy(dst, src)
}

// MockBackend Finiteness Tests

func TestMockBackendHasNonFinite(t *testing.T) {
	backend := NewMockBackend()

	clean := RawFrom([]float32{1, 2, 3}, Shape{3}, Float32)
	if backend.HasNonFinite(clean) {
		t.Error("HasNonFinite on finite values should be false")
	}

	withNaN := RawFrom([]float32{1, float32(math.NaN()), 3}, Shape{3}, Float32)
	if !backend.HasNonFinite(withNaN) {
		t.Error("HasNonFinite should detect NaN")
	}

	withInf := RawFrom([]float32{1, 2, float32(math.Inf(-1))}, Shape{3}, Float32)
	if !backend.HasNonFinite(withInf) {
		t.Error("HasNonFinite should detect Inf")
	}
}

func TestMockBackendHasNonFiniteHalf(t *testing.T) {
	backend := NewMockBackend()

	x := RawZeros(Shape{4}, Float16)
	if backend.HasNonFinite(x) {
		t.Error("zeroed float16 tensor should be finite")
	}

	// A float16 Inf bit pattern must be detected after widening.
	x.AsUint16()[2] = f16ExpInf
	if !backend.HasNonFinite(x) {
		t.Error("HasNonFinite should detect float16 Inf")
	}
}
