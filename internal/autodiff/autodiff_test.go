package autodiff_test

import (
	"math"
	"testing"

	"github.com/tandem-ml/tandem/internal/autodiff"
	"github.com/tandem-ml/tandem/internal/backend/cpu"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// TestAutodiffBackend_Name tests the Name method.
func TestAutodiffBackend_Name(t *testing.T) {
	backend := autodiff.New(cpu.New())
	expected := "Autodiff(CPU)"
	if backend.Name() != expected {
		t.Errorf("Name() = %s, want %s", backend.Name(), expected)
	}
}

// TestAutodiffBackend_Device tests the Device method.
func TestAutodiffBackend_Device(t *testing.T) {
	backend := autodiff.New(cpu.New())
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want %v", backend.Device(), tensor.CPU)
	}
}

// TestTape_Recording tests tape recording on/off.
func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	// Initially not recording
	if tape.IsRecording() {
		t.Error("Tape should not be recording initially")
	}

	// Start recording
	tape.StartRecording()
	if !tape.IsRecording() {
		t.Error("Tape should be recording after StartRecording()")
	}

	// Stop recording
	tape.StopRecording()
	if tape.IsRecording() {
		t.Error("Tape should not be recording after StopRecording()")
	}
}

// TestTape_Clear tests tape clearing.
func TestTape_Clear(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// Perform some operations
	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	backend.Add(a.Raw(), b.Raw())

	if tape.NumOps() == 0 {
		t.Error("Tape should have recorded operations")
	}

	// Clear tape
	tape.Clear()

	if tape.NumOps() != 0 {
		t.Errorf("Tape should be empty after Clear(), got %d ops", tape.NumOps())
	}

	// Clear() preserves recording state so a training loop can clear
	// between iterations without stopping recording
	if !tape.IsRecording() {
		t.Error("Tape should still be recording after Clear() (recording state preserved)")
	}
}

// TestAutodiffBackend_Add_RecordsOperation tests that Add records operations.
func TestAutodiffBackend_Add_RecordsOperation(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)

	result := backend.Add(a.Raw(), b.Raw())

	// Verify forward pass
	expected := []float32{4, 6}
	actual := result.AsFloat32()
	for i, v := range expected {
		if actual[i] != v {
			t.Errorf("Add result[%d] = %f, want %f", i, actual[i], v)
		}
	}

	// Verify operation was recorded
	if tape.NumOps() != 1 {
		t.Errorf("Expected 1 operation recorded, got %d", tape.NumOps())
	}
}

// TestAutodiffBackend_NoRecording tests that operations are not recorded when tape is off.
func TestAutodiffBackend_NoRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	// Don't start recording

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)

	backend.Add(a.Raw(), b.Raw())

	// Verify no operations were recorded
	if tape.NumOps() != 0 {
		t.Errorf("Expected 0 operations recorded (tape off), got %d", tape.NumOps())
	}
}

// TestBackward_SimpleAddition tests backward pass for simple addition.
func TestBackward_SimpleAddition(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// y = a + b
	a, _ := tensor.FromSlice([]float32{2, 3}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{4, 5}, tensor.Shape{2}, backend)

	resultRaw := backend.Add(a.Raw(), b.Raw())
	result := tensor.New[float32](resultRaw, backend)

	// Compute gradients
	gradients := autodiff.Backward(result, backend, 1)

	// dy/da = 1, dy/db = 1
	gradA := gradients[a.Raw()]
	gradB := gradients[b.Raw()]

	if gradA == nil || gradB == nil {
		t.Fatal("Expected gradients for both inputs")
	}

	expectedGrad := []float32{1, 1}

	actualGradA := gradA.AsFloat32()
	actualGradB := gradB.AsFloat32()

	for i, v := range expectedGrad {
		if actualGradA[i] != v {
			t.Errorf("grad_a[%d] = %f, want %f", i, actualGradA[i], v)
		}
		if actualGradB[i] != v {
			t.Errorf("grad_b[%d] = %f, want %f", i, actualGradB[i], v)
		}
	}
}

// TestBackward_SimpleMultiplication tests backward pass for multiplication.
func TestBackward_SimpleMultiplication(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// y = a * b
	a, _ := tensor.FromSlice([]float32{2, 3}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{4, 5}, tensor.Shape{2}, backend)

	resultRaw := backend.Mul(a.Raw(), b.Raw())
	result := tensor.New[float32](resultRaw, backend)

	// Compute gradients
	gradients := autodiff.Backward(result, backend, 1)

	// dy/da = b, dy/db = a
	gradA := gradients[a.Raw()]
	gradB := gradients[b.Raw()]

	if gradA == nil || gradB == nil {
		t.Fatal("Expected gradients for both inputs")
	}

	expectedGradA := []float32{4, 5} // b values
	expectedGradB := []float32{2, 3} // a values

	actualGradA := gradA.AsFloat32()
	actualGradB := gradB.AsFloat32()

	for i, v := range expectedGradA {
		if actualGradA[i] != v {
			t.Errorf("grad_a[%d] = %f, want %f", i, actualGradA[i], v)
		}
	}

	for i, v := range expectedGradB {
		if actualGradB[i] != v {
			t.Errorf("grad_b[%d] = %f, want %f", i, actualGradB[i], v)
		}
	}
}

// TestBackward_ChainRule tests gradient computation with chain rule.
func TestBackward_ChainRule(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// y = (x + 2) * 3
	// dy/dx = 3
	x, _ := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)
	two, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
	three, _ := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)

	temp := backend.Add(x.Raw(), two.Raw())
	resultRaw := backend.Mul(temp, three.Raw())
	result := tensor.New[float32](resultRaw, backend)

	// Compute gradients
	gradients := autodiff.Backward(result, backend, 1)

	gradX := gradients[x.Raw()]
	if gradX == nil {
		t.Fatal("Expected gradient for x")
	}

	actualGrad := gradX.AsFloat32()[0]
	expectedGrad := float32(3.0)

	if math.Abs(float64(actualGrad-expectedGrad)) > 1e-6 {
		t.Errorf("grad_x = %f, want %f", actualGrad, expectedGrad)
	}
}

// TestBackward_GradientAccumulation tests that gradients accumulate correctly.
func TestBackward_GradientAccumulation(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// y = x + x (x used twice)
	// dy/dx = 2
	x, _ := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)

	resultRaw := backend.Add(x.Raw(), x.Raw())
	result := tensor.New[float32](resultRaw, backend)

	// Compute gradients
	gradients := autodiff.Backward(result, backend, 1)

	gradX := gradients[x.Raw()]
	if gradX == nil {
		t.Fatal("Expected gradient for x")
	}

	actualGrad := gradX.AsFloat32()[0]
	expectedGrad := float32(2.0)

	if math.Abs(float64(actualGrad-expectedGrad)) > 1e-6 {
		t.Errorf("grad_x = %f, want %f (gradient should accumulate)", actualGrad, expectedGrad)
	}
}

// TestBackward_Seed tests that the seed value scales every gradient.
func TestBackward_Seed(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// y = a * b, seeded with 2.5
	// dy/da = 2.5 * b, dy/db = 2.5 * a
	a, _ := tensor.FromSlice([]float32{2, 3}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{4, 5}, tensor.Shape{2}, backend)

	resultRaw := backend.Mul(a.Raw(), b.Raw())
	result := tensor.New[float32](resultRaw, backend)

	gradients := autodiff.Backward(result, backend, 2.5)

	gradA := gradients[a.Raw()]
	if gradA == nil {
		t.Fatal("Expected gradient for a")
	}

	expectedGradA := []float32{10, 12.5} // 2.5 * b
	actualGradA := gradA.AsFloat32()
	for i, v := range expectedGradA {
		if actualGradA[i] != v {
			t.Errorf("grad_a[%d] = %f, want %f", i, actualGradA[i], v)
		}
	}
}

// TestBackward_PreservesTape tests that the backward pass leaves the tape usable.
func TestBackward_PreservesTape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)

	sum := backend.Add(a.Raw(), b.Raw())
	resultRaw := backend.Mul(sum, b.Raw())
	result := tensor.New[float32](resultRaw, backend)

	opsBefore := tape.NumOps()
	autodiff.Backward(result, backend, 1)

	// Gradient computations must not land on the tape
	if tape.NumOps() != opsBefore {
		t.Errorf("Tape grew during backward: %d ops, want %d", tape.NumOps(), opsBefore)
	}
	if !tape.IsRecording() {
		t.Error("Recording state should be restored after backward")
	}
}

// TestScaleLoss_GradientsCarryScale tests that scaling the loss scales every gradient.
func TestScaleLoss_GradientsCarryScale(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// loss = mean(x * w), scaled by 1024
	// d(scale*loss)/dx = scale * w / n
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4}, backend)
	w, _ := tensor.FromSlice([]float32{0.5, 0.5, 0.5, 0.5}, tensor.Shape{4}, backend)

	prod := backend.Mul(x.Raw(), w.Raw())
	loss := backend.Mean(prod)

	const scale = 1024.0
	scaledRaw := backend.ScaleLoss(loss, scale)

	// Forward value carries the scale
	wantLoss := float32((1 + 2 + 3 + 4) * 0.5 / 4 * scale)
	if got := scaledRaw.AsFloat32()[0]; got != wantLoss {
		t.Errorf("scaled loss = %f, want %f", got, wantLoss)
	}

	scaled := tensor.New[float32](scaledRaw, backend)
	gradients := autodiff.Backward(scaled, backend, 1)

	gradX := gradients[x.Raw()]
	if gradX == nil {
		t.Fatal("Expected gradient for x")
	}

	expected := float32(scale * 0.5 / 4)
	for i, v := range gradX.AsFloat32() {
		if math.Abs(float64(v-expected)) > 1e-3 {
			t.Errorf("grad_x[%d] = %f, want %f", i, v, expected)
		}
	}
}

// TestMatMul_Backward tests MatMul backward pass.
func TestMatMul_Backward(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// C = A @ B
	// A: 2x3, B: 3x2 -> C: 2x2
	A, _ := tensor.FromSlice([]float32{
		1, 2, 3,
		4, 5, 6,
	}, tensor.Shape{2, 3}, backend)

	B, _ := tensor.FromSlice([]float32{
		7, 8,
		9, 10,
		11, 12,
	}, tensor.Shape{3, 2}, backend)

	resultRaw := backend.MatMul(A.Raw(), B.Raw())
	result := tensor.New[float32](resultRaw, backend)

	// Compute gradients
	gradients := autodiff.Backward(result, backend, 1)

	gradA := gradients[A.Raw()]
	gradB := gradients[B.Raw()]

	if gradA == nil || gradB == nil {
		t.Fatal("Expected gradients for both matrices")
	}

	// With a ones seed: grad_A = ones @ B^T, grad_B = A^T @ ones
	expectedGradA := []float32{
		15, 19, 23,
		15, 19, 23,
	}
	expectedGradB := []float32{
		5, 5,
		7, 7,
		9, 9,
	}

	if !gradA.Shape().Equal(A.Shape()) {
		t.Errorf("grad_A shape = %v, want %v", gradA.Shape(), A.Shape())
	}
	if !gradB.Shape().Equal(B.Shape()) {
		t.Errorf("grad_B shape = %v, want %v", gradB.Shape(), B.Shape())
	}

	actualGradA := gradA.AsFloat32()
	for i, v := range expectedGradA {
		if actualGradA[i] != v {
			t.Errorf("grad_A[%d] = %f, want %f", i, actualGradA[i], v)
		}
	}
	actualGradB := gradB.AsFloat32()
	for i, v := range expectedGradB {
		if actualGradB[i] != v {
			t.Errorf("grad_B[%d] = %f, want %f", i, actualGradB[i], v)
		}
	}
}

// TestTranspose_Backward tests that gradients flow back through Transpose.
func TestTranspose_Backward(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// y = x^T * c (elementwise), dy/dx = c^T
	x, _ := tensor.FromSlice([]float32{
		1, 2, 3,
		4, 5, 6,
	}, tensor.Shape{2, 3}, backend)
	c, _ := tensor.FromSlice([]float32{
		10, 40,
		20, 50,
		30, 60,
	}, tensor.Shape{3, 2}, backend)

	xT := backend.Transpose(x.Raw())
	resultRaw := backend.Mul(xT, c.Raw())
	result := tensor.New[float32](resultRaw, backend)

	gradients := autodiff.Backward(result, backend, 1)

	gradX := gradients[x.Raw()]
	if gradX == nil {
		t.Fatal("Expected gradient for x (original, not the transposed view)")
	}
	if !gradX.Shape().Equal(x.Shape()) {
		t.Fatalf("grad_x shape = %v, want %v", gradX.Shape(), x.Shape())
	}

	// grad wrt x^T is c, so grad wrt x is c^T
	expected := []float32{
		10, 20, 30,
		40, 50, 60,
	}
	actual := gradX.AsFloat32()
	for i, v := range expected {
		if actual[i] != v {
			t.Errorf("grad_x[%d] = %f, want %f", i, actual[i], v)
		}
	}
}

// TestBackward_MeanSpreadsSeed tests Mean backward distributing the seed.
func TestBackward_MeanSpreadsSeed(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4}, backend)

	resultRaw := backend.Mean(x.Raw())
	result := tensor.New[float32](resultRaw, backend)

	gradients := autodiff.Backward(result, backend, 8)

	gradX := gradients[x.Raw()]
	if gradX == nil {
		t.Fatal("Expected gradient for x")
	}

	// d(mean)/dx_i = 1/n, seeded with 8 -> 2 each
	for i, v := range gradX.AsFloat32() {
		if v != 2 {
			t.Errorf("grad_x[%d] = %f, want 2", i, v)
		}
	}
}

// TestBackward_SumDim tests that SumDim gradients broadcast back to the input shape.
func TestBackward_SumDim(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	x, _ := tensor.FromSlice([]float32{
		1, 2, 3,
		4, 5, 6,
	}, tensor.Shape{2, 3}, backend)

	resultRaw := backend.SumDim(x.Raw(), 0, false)
	result := tensor.New[float32](resultRaw, backend)

	if !resultRaw.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("SumDim result shape = %v, want [3]", resultRaw.Shape())
	}

	gradients := autodiff.Backward(result, backend, 1)

	gradX := gradients[x.Raw()]
	if gradX == nil {
		t.Fatal("Expected gradient for x")
	}
	if !gradX.Shape().Equal(x.Shape()) {
		t.Fatalf("grad_x shape = %v, want %v", gradX.Shape(), x.Shape())
	}

	for i, v := range gradX.AsFloat32() {
		if v != 1 {
			t.Errorf("grad_x[%d] = %f, want 1", i, v)
		}
	}
}

// TestBackward_HalfPrecision tests the raw tape path with float16 tensors.
func TestBackward_HalfPrecision(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()

	// y = x * w in fp16; gradients come out fp16 too
	x := tensor.RawFrom([]float32{1, 2, 4, 8}, tensor.Shape{4}, tensor.Float16)
	w := tensor.RawFrom([]float32{0.5, 0.25, 0.125, 2}, tensor.Shape{4}, tensor.Float16)

	y := backend.Mul(x, w)
	if y.DType() != tensor.Float16 {
		t.Fatalf("forward dtype = %v, want Float16", y.DType())
	}

	seed, err := tensor.NewRaw(y.Shape(), y.DType(), backend.Device())
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	backend.Fill(seed, 1)

	gradients := tape.Backward(seed, backend)

	gradX := gradients[x]
	if gradX == nil {
		t.Fatal("Expected gradient for x")
	}
	if gradX.DType() != tensor.Float16 {
		t.Errorf("grad dtype = %v, want Float16", gradX.DType())
	}

	// All values are exactly representable in fp16
	expected := []float32{0.5, 0.25, 0.125, 2}
	actual := gradX.Float32Values()
	for i, v := range expected {
		if actual[i] != v {
			t.Errorf("grad_x[%d] = %f, want %f", i, actual[i], v)
		}
	}
}

// TestBackward_NoOps_Panics tests that an empty tape is a programmer error.
func TestBackward_NoOps_Panics(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for backward on an empty tape")
		}
	}()
	autodiff.Backward(x, backend, 1)
}
