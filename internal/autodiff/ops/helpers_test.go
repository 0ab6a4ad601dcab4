package ops

import (
	"testing"

	"github.com/tandem-ml/tandem/internal/backend/cpu"
	"github.com/tandem-ml/tandem/internal/tensor"
)

func TestReduceBroadcast_SameShape(t *testing.T) {
	backend := cpu.New()

	grad := tensor.RawFrom([]float32{1, 2, 3}, tensor.Shape{3}, tensor.Float32)
	result := reduceBroadcast(grad, tensor.Shape{3}, backend)

	// Must be a clone, not the same buffer exposed to inplace reuse
	if result == grad {
		t.Error("reduceBroadcast should clone when shapes match")
	}
	for i, v := range result.AsFloat32() {
		if v != grad.AsFloat32()[i] {
			t.Errorf("result[%d] = %f, want %f", i, v, grad.AsFloat32()[i])
		}
	}
}

func TestReduceBroadcast_ScalarTarget(t *testing.T) {
	backend := cpu.New()

	grad := tensor.RawFrom([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.Float32)
	result := reduceBroadcast(grad, tensor.Shape{}, backend)

	if !result.Shape().Equal(tensor.Shape{}) {
		t.Fatalf("result shape = %v, want scalar", result.Shape())
	}
	if got := result.AsFloat32()[0]; got != 21 {
		t.Errorf("scalar sum = %f, want 21", got)
	}
}

func TestReduceBroadcast_LeadingDim(t *testing.T) {
	backend := cpu.New()

	// [2,3] reduced to [3]: column sums
	grad := tensor.RawFrom([]float32{
		1, 2, 3,
		4, 5, 6,
	}, tensor.Shape{2, 3}, tensor.Float32)
	result := reduceBroadcast(grad, tensor.Shape{3}, backend)

	if !result.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("result shape = %v, want [3]", result.Shape())
	}
	expected := []float32{5, 7, 9}
	for i, v := range result.AsFloat32() {
		if v != expected[i] {
			t.Errorf("result[%d] = %f, want %f", i, v, expected[i])
		}
	}
}

func TestReduceBroadcast_MultipleLeadingDims(t *testing.T) {
	backend := cpu.New()

	// [2,2,3] reduced to [3]: both leading dimensions summed away
	grad := tensor.RawFull(tensor.Shape{2, 2, 3}, 1, tensor.Float32)
	result := reduceBroadcast(grad, tensor.Shape{3}, backend)

	if !result.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("result shape = %v, want [3]", result.Shape())
	}
	for i, v := range result.AsFloat32() {
		if v != 4 {
			t.Errorf("result[%d] = %f, want 4", i, v)
		}
	}
}

func TestReduceBroadcast_InnerOne(t *testing.T) {
	backend := cpu.New()

	// [2,3] reduced to [2,1]: row sums, size-1 dimension kept
	grad := tensor.RawFrom([]float32{
		1, 2, 3,
		4, 5, 6,
	}, tensor.Shape{2, 3}, tensor.Float32)
	result := reduceBroadcast(grad, tensor.Shape{2, 1}, backend)

	if !result.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("result shape = %v, want [2,1]", result.Shape())
	}
	expected := []float32{6, 15}
	for i, v := range result.AsFloat32() {
		if v != expected[i] {
			t.Errorf("result[%d] = %f, want %f", i, v, expected[i])
		}
	}
}

func TestReduceBroadcast_Half(t *testing.T) {
	backend := cpu.New()

	// fp16 gradients from half precision training also reduce
	grad := tensor.RawFull(tensor.Shape{4, 3}, 0.5, tensor.Float16)
	result := reduceBroadcast(grad, tensor.Shape{3}, backend)

	if result.DType() != tensor.Float16 {
		t.Fatalf("result dtype = %v, want Float16", result.DType())
	}
	for i, v := range result.Float32Values() {
		if v != 2 {
			t.Errorf("result[%d] = %f, want 2", i, v)
		}
	}
}

func TestNegateGradient(t *testing.T) {
	backend := cpu.New()

	grad := tensor.RawFrom([]float32{1, -2, 0, 3.5}, tensor.Shape{4}, tensor.Float32)
	result := negateGradient(grad, backend)

	expected := []float32{-1, 2, 0, -3.5}
	for i, v := range result.AsFloat32() {
		if v != expected[i] {
			t.Errorf("result[%d] = %f, want %f", i, v, expected[i])
		}
	}
}

func TestScalarValue(t *testing.T) {
	if got := scalarValue(tensor.RawScalar(2.5, tensor.Float32)); got != 2.5 {
		t.Errorf("float32 scalar = %v, want 2.5", got)
	}
	if got := scalarValue(tensor.RawScalar(0.5, tensor.Float16)); got != 0.5 {
		t.Errorf("float16 scalar = %v, want 0.5", got)
	}

	f64 := tensor.RawZeros(tensor.Shape{}, tensor.Float64)
	f64.AsFloat64()[0] = -1.25
	if got := scalarValue(f64); got != -1.25 {
		t.Errorf("float64 scalar = %v, want -1.25", got)
	}
}

func TestUnsqueezeDim(t *testing.T) {
	input := tensor.RawFrom([]float32{1, 2, 3}, tensor.Shape{3}, tensor.Float32)

	result := unsqueezeDim(input, 0, tensor.Shape{2, 3})
	if !result.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("shape = %v, want [1,3]", result.Shape())
	}

	// Reshape is a view: same buffer, no copy
	result.AsFloat32()[0] = 42
	if input.AsFloat32()[0] != 42 {
		t.Error("unsqueezeDim should share the underlying buffer")
	}
}

func TestBroadcastTo(t *testing.T) {
	input := tensor.RawFrom([]float32{1, 2, 3}, tensor.Shape{1, 3}, tensor.Float32)

	result := broadcastTo(input, tensor.Shape{2, 3})
	if !result.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("shape = %v, want [2,3]", result.Shape())
	}

	expected := []float32{
		1, 2, 3,
		1, 2, 3,
	}
	for i, v := range result.AsFloat32() {
		if v != expected[i] {
			t.Errorf("result[%d] = %f, want %f", i, v, expected[i])
		}
	}
}
