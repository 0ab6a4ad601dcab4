package tensor

// Backend defines the compute kernels the training stack relies on.
//
// The mixed-precision optimizer treats these as primitives: it never walks
// element loops itself, it asks the backend to scale, convert, copy and
// scan buffers. Implementations:
//   - cpu: pure Go kernels with worker-pool chunking
//   - webgpu: WGSL compute shaders (windows builds)
//
// Functional kernels allocate their result; in-place kernels mutate their
// first argument. All kernels panic on shape or dtype misuse, which is a
// programmer error, not a runtime condition.
type Backend interface {
	// Element-wise binary operations with trailing-dimension broadcasting.
	// The result takes the dtype of a.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations (2D).
	MatMul(a, b *RawTensor) *RawTensor
	Transpose(t *RawTensor) *RawTensor

	// MulScalar returns x * alpha as a new tensor.
	MulScalar(x *RawTensor, alpha float64) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor                           // scalar result
	Mean(x *RawTensor) *RawTensor                          // scalar result
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // sum along dimension

	// Cast converts x to a different element format (new tensor).
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// In-place kernels used by the mixed-precision step.
	Scale(t *RawTensor, alpha float64) // t *= alpha
	Fill(t *RawTensor, value float64)  // t[i] = value
	Copy(dst, src *RawTensor)          // element copy with format conversion; shapes must match

	// Measurements.
	SumSquares(x *RawTensor) float64 // sum of x[i]^2, accumulated in float64
	HasNonFinite(x *RawTensor) bool  // true if any element is NaN or ±Inf

	// Metadata.
	Name() string
	Device() Device
}
