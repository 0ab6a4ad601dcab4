// Package autodiff implements automatic differentiation using the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation (CPU, WebGPU) and adds
// gradient tracking capabilities through a GradientTape.
//
// Architecture:
//   - Decorator pattern: AutodiffBackend[B] wraps any Backend implementation
//   - GradientTape: Records operations during forward pass
//   - Operation interface: Each op (Add, MatMul, Mean) implements backward pass
//   - Reverse-mode AD: Computes gradients efficiently using chain rule
//
// The mixed precision training loop drives this package indirectly: it calls
// ScaleLoss so the recorded graph ends with the scaled loss, seeds the
// backward pass with ones, and hands the scale-carrying gradient map to the
// optimizer, which divides the scale back out against the fp32 masters.
//
// Usage:
//
//	// Wrap any backend with autodiff
//	cpuBackend := cpu.New()
//	autodiffBackend := autodiff.New(cpuBackend)
//
//	// Use with tensors
//	x := tensor.FromSlice([]float32{2.0}, tensor.Shape{1}, autodiffBackend)
//	y := x.Mul(x) // y = x²
//
//	// Compute gradients
//	grads := autodiff.Backward(y, autodiffBackend, 1)
//	fmt.Println(grads[x.Raw()]) // dy/dx = 2x = 4.0
package autodiff

import (
	"github.com/tandem-ml/tandem/internal/autodiff/ops"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a GradientTape.
//
// Type parameter B must satisfy the tensor.Backend interface.
type AutodiffBackend[B tensor.Backend] struct {
	inner B             // Wrapped backend (CPU, WebGPU, etc.)
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
// Useful for:
//   - Starting/stopping recording
//   - Clearing tape between iterations
//   - Inspecting recorded operations
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	// CRITICAL: Prevent inplace modification that would corrupt autodiff graph.
	// Temporarily increase refCount so IsUnique() returns false.
	// This forces CPU backend to allocate new result instead of inplace modification.
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	// Forward pass using wrapped backend
	result := b.inner.Add(a, c)

	// Record operation if tape is recording
	if b.tape.IsRecording() {
		op := ops.NewAddOp(a, c, result)
		b.tape.Record(op)
	}

	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Sub(a, c)

	if b.tape.IsRecording() {
		op := ops.NewSubOp(a, c, result)
		b.tape.Record(op)
	}

	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Mul(a, c)

	if b.tape.IsRecording() {
		op := ops.NewMulOp(a, c, result)
		b.tape.Record(op)
	}

	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Div(a, c)

	if b.tape.IsRecording() {
		op := ops.NewDivOp(a, c, result)
		b.tape.Record(op)
	}

	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.MatMul(a, c)

	if b.tape.IsRecording() {
		op := ops.NewMatMulOp(a, c, result)
		b.tape.Record(op)
	}

	return result
}

// Transpose transposes a 2D tensor and records the operation.
//
// CRITICAL: Even though conceptually transpose is a "view", the underlying
// backend creates a new tensor. We MUST record this operation so gradients
// flow back correctly.
//
// For example, in Linear layer:
//
//	w = weight parameter
//	wT = w.Transpose()  // Creates NEW tensor!
//	output = input @ wT  // MatMul records operation with wT
//
// Without recording Transpose:
//   - Backward computes grad for wT (new tensor)
//   - Optimizer looks for grad of w (original parameter)
//   - NO GRADIENT FOUND! Parameters don't update!
//
// With TransposeOp:
//   - Backward computes grad for wT
//   - TransposeOp.Backward propagates grad back to w
//   - Optimizer finds grad for w ✓
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	defer t.ForceNonUnique()()

	result := b.inner.Transpose(t)

	if b.tape.IsRecording() {
		op := ops.NewTransposeOp(t, result)
		b.tape.Record(op)
	}

	return result
}

// MulScalar multiplies every element by alpha and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, alpha float64) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.MulScalar(x, alpha)

	if b.tape.IsRecording() {
		op := ops.NewMulScalarOp(x, result, alpha)
		b.tape.Record(op)
	}

	return result
}

// Sum reduces to a scalar and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Sum(x)

	if b.tape.IsRecording() {
		op := ops.NewSumOp(x, result)
		b.tape.Record(op)
	}

	return result
}

// Mean reduces to a scalar mean and records the operation.
func (b *AutodiffBackend[B]) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Mean(x)

	if b.tape.IsRecording() {
		op := ops.NewMeanOp(x, result)
		b.tape.Record(op)
	}

	return result
}

// SumDim sums along a dimension and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.SumDim(x, dim, keepDim)

	if b.tape.IsRecording() {
		op := ops.NewSumDimOp(x, result, dim, keepDim)
		b.tape.Record(op)
	}

	return result
}

// ScaleLoss multiplies the loss by the current loss scale, recording the
// operation. The scaled loss becomes the last recorded op, so seeding the
// backward pass with ones produces gradients that all carry the scale
// factor. Small half precision gradients stay representable; the optimizer
// divides the factor back out before the update.
func (b *AutodiffBackend[B]) ScaleLoss(loss *tensor.RawTensor, scale float64) *tensor.RawTensor {
	return b.MulScalar(loss, scale)
}

// Cast converts x to a different element format.
//
// Cast is not recorded: a recorded graph runs in one dtype, with conversions
// at the boundaries. The optimizer casts fp32 masters into the half
// precision live parameters between steps, never inside the graph.
func (b *AutodiffBackend[B]) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	return b.inner.Cast(x, dtype)
}

// Scale multiplies t by alpha in place.
//
// In-place kernels are not differentiable and are never recorded. They
// exist for optimizer and scaler state updates, which run outside recorded
// regions.
func (b *AutodiffBackend[B]) Scale(t *tensor.RawTensor, alpha float64) {
	b.inner.Scale(t, alpha)
}

// Fill sets every element of t to value in place.
func (b *AutodiffBackend[B]) Fill(t *tensor.RawTensor, value float64) {
	b.inner.Fill(t, value)
}

// Copy copies src into dst, converting the element format if needed.
func (b *AutodiffBackend[B]) Copy(dst, src *tensor.RawTensor) {
	b.inner.Copy(dst, src)
}

// SumSquares returns the sum of squared elements, accumulated in float64.
func (b *AutodiffBackend[B]) SumSquares(x *tensor.RawTensor) float64 {
	return b.inner.SumSquares(x)
}

// HasNonFinite reports whether any element of x is NaN or infinite.
func (b *AutodiffBackend[B]) HasNonFinite(x *tensor.RawTensor) bool {
	return b.inner.HasNonFinite(x)
}
