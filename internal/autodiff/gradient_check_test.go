package autodiff_test

import (
	"math"
	"testing"

	"github.com/tandem-ml/tandem/internal/autodiff"
	"github.com/tandem-ml/tandem/internal/backend/cpu"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// numericalGradient computes the gradient using finite differences.
// f: function that takes a float32 and returns a float32.
// x: point at which to compute the gradient.
// epsilon: small value for finite difference.
func numericalGradient(f func(float32) float32, x, epsilon float32) float32 {
	return (f(x+epsilon) - f(x-epsilon)) / (2 * epsilon)
}

// TestNumericalGradient_SimpleSquare tests f(x) = x².
func TestNumericalGradient_SimpleSquare(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	epsilon := float32(1e-4)
	testPoint := float32(3.0)

	// Autodiff gradient
	tape.Clear()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float32{testPoint}, tensor.Shape{1}, backend)
	y := backend.Mul(x.Raw(), x.Raw()) // y = x²

	result := tensor.New[float32](y, backend)
	gradients := autodiff.Backward(result, backend, 1)

	autodiffGrad := gradients[x.Raw()].AsFloat32()[0]

	// Numerical gradient
	f := func(val float32) float32 { return val * val }
	numericalGrad := numericalGradient(f, testPoint, epsilon)

	// Expected: df/dx = 2x = 6.0
	expected := float32(6.0)

	// Compare
	if math.Abs(float64(autodiffGrad-expected)) > 1e-5 {
		t.Errorf("Autodiff gradient = %f, want %f", autodiffGrad, expected)
	}

	if math.Abs(float64(numericalGrad-expected)) > 1e-3 {
		t.Errorf("Numerical gradient = %f, want %f", numericalGrad, expected)
	}

	// Numerical gradients have inherent error from finite differences
	// 1% tolerance is reasonable (0.01)
	if math.Abs(float64(autodiffGrad-numericalGrad)) > 0.01 {
		t.Errorf("Autodiff grad (%f) differs from numerical grad (%f) by %f",
			autodiffGrad, numericalGrad, autodiffGrad-numericalGrad)
	}
}

// TestNumericalGradient_Composite tests f(x) = (x + 2) * 3.
func TestNumericalGradient_Composite(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	epsilon := float32(1e-4)
	testPoint := float32(5.0)

	// Autodiff gradient
	tape.Clear()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float32{testPoint}, tensor.Shape{1}, backend)
	two, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)

	temp := backend.Add(x.Raw(), two.Raw())
	y := backend.MulScalar(temp, 3) // y = (x + 2) * 3

	result := tensor.New[float32](y, backend)
	gradients := autodiff.Backward(result, backend, 1)

	autodiffGrad := gradients[x.Raw()].AsFloat32()[0]

	// Numerical gradient
	f := func(val float32) float32 { return (val + 2) * 3 }
	numericalGrad := numericalGradient(f, testPoint, epsilon)

	// Expected: df/dx = 3
	expected := float32(3.0)

	if math.Abs(float64(autodiffGrad-expected)) > 1e-5 {
		t.Errorf("Autodiff gradient = %f, want %f", autodiffGrad, expected)
	}

	// Numerical gradients have inherent error from finite differences
	// 1% tolerance is reasonable (0.01)
	if math.Abs(float64(autodiffGrad-numericalGrad)) > 0.01 {
		t.Errorf("Autodiff grad (%f) differs from numerical grad (%f) by %f",
			autodiffGrad, numericalGrad, autodiffGrad-numericalGrad)
	}
}

// TestNumericalGradient_Polynomial tests f(x) = x³ - 2x² + x.
func TestNumericalGradient_Polynomial(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	epsilon := float32(1e-4)
	testPoint := float32(2.0)

	// Autodiff gradient: f(x) = x³ - 2x² + x
	tape.Clear()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float32{testPoint}, tensor.Shape{1}, backend)

	x2 := backend.Mul(x.Raw(), x.Raw()) // x²
	x3 := backend.Mul(x2, x.Raw())      // x³
	twoX2 := backend.MulScalar(x2, 2)   // 2x²
	term1 := backend.Sub(x3, twoX2)     // x³ - 2x²
	y := backend.Add(term1, x.Raw())    // x³ - 2x² + x

	result := tensor.New[float32](y, backend)
	gradients := autodiff.Backward(result, backend, 1)

	autodiffGrad := gradients[x.Raw()].AsFloat32()[0]

	// Numerical gradient
	f := func(val float32) float32 {
		return val*val*val - 2*val*val + val
	}
	numericalGrad := numericalGradient(f, testPoint, epsilon)

	// Expected: df/dx = 3x² - 4x + 1 = 3*4 - 4*2 + 1 = 12 - 8 + 1 = 5
	expected := float32(5.0)

	if math.Abs(float64(autodiffGrad-expected)) > 1e-4 {
		t.Errorf("Autodiff gradient = %f, want %f", autodiffGrad, expected)
	}

	// Numerical gradients have inherent error from finite differences
	// 1% tolerance is reasonable (0.01)
	if math.Abs(float64(autodiffGrad-numericalGrad)) > 0.01 {
		t.Errorf("Autodiff grad (%f) differs from numerical grad (%f) by %f",
			autodiffGrad, numericalGrad, autodiffGrad-numericalGrad)
	}
}

// TestNumericalGradient_Division tests f(x) = 1/x.
func TestNumericalGradient_Division(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	epsilon := float32(1e-4)
	testPoint := float32(2.0)

	// Autodiff gradient: f(x) = 1/x
	tape.Clear()
	tape.StartRecording()

	one, _ := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)
	x, _ := tensor.FromSlice([]float32{testPoint}, tensor.Shape{1}, backend)

	y := backend.Div(one.Raw(), x.Raw()) // y = 1/x

	result := tensor.New[float32](y, backend)
	gradients := autodiff.Backward(result, backend, 1)

	gradX := gradients[x.Raw()]
	if gradX == nil {
		t.Fatal("Expected gradient for x")
	}

	autodiffGrad := gradX.AsFloat32()[0]

	// Numerical gradient
	f := func(val float32) float32 { return 1 / val }
	numericalGrad := numericalGradient(f, testPoint, epsilon)

	// Expected: df/dx = -1/x² = -1/4 = -0.25
	expected := float32(-0.25)

	if math.Abs(float64(autodiffGrad-expected)) > 1e-4 {
		t.Errorf("Autodiff gradient = %f, want %f", autodiffGrad, expected)
	}

	// Numerical gradients have inherent error from finite differences
	// 1% tolerance is reasonable (0.01)
	if math.Abs(float64(autodiffGrad-numericalGrad)) > 0.01 {
		t.Errorf("Autodiff grad (%f) differs from numerical grad (%f) by %f",
			autodiffGrad, numericalGrad, autodiffGrad-numericalGrad)
	}
}

// TestNumericalGradient_Mean tests f(x) = mean(x²) for one perturbed element.
func TestNumericalGradient_Mean(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	epsilon := float32(1e-3)
	values := []float32{1.5, -2.0, 3.0}

	// Autodiff gradient
	tape.Clear()
	tape.StartRecording()

	x, _ := tensor.FromSlice(values, tensor.Shape{3}, backend)
	squared := backend.Mul(x.Raw(), x.Raw())
	y := backend.Mean(squared)

	result := tensor.New[float32](y, backend)
	gradients := autodiff.Backward(result, backend, 1)

	gradX := gradients[x.Raw()]
	if gradX == nil {
		t.Fatal("Expected gradient for x")
	}
	autodiffGrad := gradX.AsFloat32()[0]

	// Numerical gradient wrt x[0]
	f := func(val float32) float32 {
		return (val*val + values[1]*values[1] + values[2]*values[2]) / 3
	}
	numericalGrad := numericalGradient(f, values[0], epsilon)

	// Expected: df/dx_0 = 2*x_0/n = 1.0
	expected := float32(1.0)

	if math.Abs(float64(autodiffGrad-expected)) > 1e-5 {
		t.Errorf("Autodiff gradient = %f, want %f", autodiffGrad, expected)
	}

	if math.Abs(float64(autodiffGrad-numericalGrad)) > 0.01 {
		t.Errorf("Autodiff grad (%f) differs from numerical grad (%f) by %f",
			autodiffGrad, numericalGrad, autodiffGrad-numericalGrad)
	}
}

// TestNumericalGradient_MatMul tests MatMul gradient with numerical check.
func TestNumericalGradient_MatMul(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	epsilon := float32(1e-4)

	// Test: C = A @ B, where A = [[a]], B = [[b]] (1x1 matrices)
	// dC/da = b, dC/db = a
	aVal := float32(3.0)
	bVal := float32(4.0)

	// Autodiff gradient
	tape.Clear()
	tape.StartRecording()

	A, _ := tensor.FromSlice([]float32{aVal}, tensor.Shape{1, 1}, backend)
	B, _ := tensor.FromSlice([]float32{bVal}, tensor.Shape{1, 1}, backend)

	C := backend.MatMul(A.Raw(), B.Raw())

	result := tensor.New[float32](C, backend)
	gradients := autodiff.Backward(result, backend, 1)

	autodiffGradA := gradients[A.Raw()].AsFloat32()[0]
	autodiffGradB := gradients[B.Raw()].AsFloat32()[0]

	// Numerical gradient for A
	fA := func(val float32) float32 {
		// C = A @ B = [[val]] @ [[bVal]] = [[val * bVal]]
		return val * bVal
	}
	numericalGradA := numericalGradient(fA, aVal, epsilon)

	// Numerical gradient for B
	fB := func(val float32) float32 {
		// C = A @ B = [[aVal]] @ [[val]] = [[aVal * val]]
		return aVal * val
	}
	numericalGradB := numericalGradient(fB, bVal, epsilon)

	// Expected: dC/dA = B = 4, dC/dB = A = 3
	expectedGradA := bVal
	expectedGradB := aVal

	if math.Abs(float64(autodiffGradA-expectedGradA)) > 1e-5 {
		t.Errorf("Autodiff grad_A = %f, want %f", autodiffGradA, expectedGradA)
	}

	if math.Abs(float64(autodiffGradB-expectedGradB)) > 1e-5 {
		t.Errorf("Autodiff grad_B = %f, want %f", autodiffGradB, expectedGradB)
	}

	if math.Abs(float64(autodiffGradA-numericalGradA)) > 1e-3 {
		t.Errorf("Autodiff grad_A (%f) differs from numerical (%f) by %f",
			autodiffGradA, numericalGradA, autodiffGradA-numericalGradA)
	}

	if math.Abs(float64(autodiffGradB-numericalGradB)) > 1e-3 {
		t.Errorf("Autodiff grad_B (%f) differs from numerical (%f) by %f",
			autodiffGradB, numericalGradB, autodiffGradB-numericalGradB)
	}
}

// TestNumericalGradient_LinearModel tests a linear regression loss end to end.
func TestNumericalGradient_LinearModel(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	epsilon := float32(1e-3)

	// loss = mean((x @ W^T + b - target)²)
	// W shape: (1, 2), b shape: (1)
	xVal := []float32{1.0, 2.0}
	wVal := []float32{0.5, -0.3}
	bVal := float32(0.1)
	targetVal := float32(1.0)

	// Autodiff gradient
	tape.Clear()
	tape.StartRecording()

	x, _ := tensor.FromSlice(xVal, tensor.Shape{1, 2}, backend)
	W, _ := tensor.FromSlice(wVal, tensor.Shape{1, 2}, backend)
	b, _ := tensor.FromSlice([]float32{bVal}, tensor.Shape{1}, backend)
	target, _ := tensor.FromSlice([]float32{targetVal}, tensor.Shape{1, 1}, backend)

	WT := backend.Transpose(W.Raw())
	xW := backend.MatMul(x.Raw(), WT) // (1, 2) @ (2, 1) = (1, 1)

	// b broadcasts over the trailing dimension
	pred := backend.Add(xW, b.Raw())
	diff := backend.Sub(pred, target.Raw())
	squared := backend.Mul(diff, diff)
	loss := backend.Mean(squared)

	result := tensor.New[float32](loss, backend)
	gradients := autodiff.Backward(result, backend, 1)

	// Gradient flows back through Transpose to the original W, and through
	// the broadcast Add back to b's own shape
	gradW := gradients[W.Raw()]
	gradB := gradients[b.Raw()]

	if gradW == nil || gradB == nil {
		t.Fatal("Expected gradients for W and b")
	}
	if !gradW.Shape().Equal(W.Shape()) {
		t.Fatalf("grad_W shape = %v, want %v", gradW.Shape(), W.Shape())
	}
	if !gradB.Shape().Equal(b.Shape()) {
		t.Fatalf("grad_b shape = %v, want %v", gradB.Shape(), b.Shape())
	}

	lossAt := func(w0, w1, bv float32) float32 {
		pred := xVal[0]*w0 + xVal[1]*w1 + bv
		d := pred - targetVal
		return d * d
	}

	// Numerical gradients
	numericalGradW0 := numericalGradient(func(v float32) float32 {
		return lossAt(v, wVal[1], bVal)
	}, wVal[0], epsilon)
	numericalGradB := numericalGradient(func(v float32) float32 {
		return lossAt(wVal[0], wVal[1], v)
	}, bVal, epsilon)

	autodiffGradW0 := gradW.AsFloat32()[0]
	autodiffGradB := gradB.AsFloat32()[0]

	if math.Abs(float64(autodiffGradW0-numericalGradW0)) > 1e-2 {
		t.Errorf("Autodiff grad_W[0] (%f) differs from numerical (%f) by %f",
			autodiffGradW0, numericalGradW0, autodiffGradW0-numericalGradW0)
	}
	if math.Abs(float64(autodiffGradB-numericalGradB)) > 1e-2 {
		t.Errorf("Autodiff grad_b (%f) differs from numerical (%f) by %f",
			autodiffGradB, numericalGradB, autodiffGradB-numericalGradB)
	}

	// Verify forward pass is correct
	expectedLoss := lossAt(wVal[0], wVal[1], bVal)
	actualLoss := loss.AsFloat32()[0]
	if math.Abs(float64(actualLoss-expectedLoss)) > 1e-6 {
		t.Errorf("Forward pass: loss = %f, want %f", actualLoss, expectedLoss)
	}
}

// TestNumericalGradient_Float64 tests gradient checking with float64.
func TestNumericalGradient_Float64(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	epsilon := float64(1e-8)
	testPoint := float64(3.0)

	// Autodiff gradient: f(x) = x²
	tape.Clear()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float64{testPoint}, tensor.Shape{1}, backend)
	y := backend.Mul(x.Raw(), x.Raw())

	result := tensor.New[float64](y, backend)
	gradients := autodiff.Backward(result, backend, 1)

	autodiffGrad := gradients[x.Raw()].AsFloat64()[0]

	// Numerical gradient
	f := func(val float64) float64 { return val * val }
	numericalGrad := (f(testPoint+epsilon) - f(testPoint-epsilon)) / (2 * epsilon)

	// Expected: df/dx = 2x = 6.0
	expected := float64(6.0)

	if math.Abs(autodiffGrad-expected) > 1e-9 {
		t.Errorf("Autodiff gradient = %f, want %f", autodiffGrad, expected)
	}

	if math.Abs(autodiffGrad-numericalGrad) > 1e-6 {
		t.Errorf("Autodiff grad (%f) differs from numerical grad (%f) by %e",
			autodiffGrad, numericalGrad, autodiffGrad-numericalGrad)
	}
}
