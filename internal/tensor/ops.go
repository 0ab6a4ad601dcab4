package tensor

import "fmt"

// Add performs element-wise addition with broadcasting.
//
// Example:
//
//	c := a.Add(b) // a[3,1] + b[3,5] -> c[3,5]
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	result := t.backend.Add(t.raw, other.raw)
	return New[T, B](result, t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	result := t.backend.Sub(t.raw, other.raw)
	return New[T, B](result, t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) *Tensor[T, B] {
	result := t.backend.Mul(t.raw, other.raw)
	return New[T, B](result, t.backend)
}

// Div performs element-wise division with broadcasting.
func (t *Tensor[T, B]) Div(other *Tensor[T, B]) *Tensor[T, B] {
	result := t.backend.Div(t.raw, other.raw)
	return New[T, B](result, t.backend)
}

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
//
// Example:
//
//	a := tensor.FromSlice(..., Shape{3, 4}, backend)
//	b := tensor.FromSlice(..., Shape{4, 5}, backend)
//	c := a.MatMul(b) // Shape: [3, 5]
func (t *Tensor[T, B]) MatMul(other *Tensor[T, B]) *Tensor[T, B] {
	result := t.backend.MatMul(t.raw, other.raw)
	return New[T, B](result, t.backend)
}

// Reshape returns a tensor with the same data but a different shape.
// The new shape must have the same number of elements. The data buffer
// is shared, not copied.
func (t *Tensor[T, B]) Reshape(newShape ...int) *Tensor[T, B] {
	result, err := t.raw.Reshape(Shape(newShape))
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return New[T, B](result, t.backend)
}

// Transpose swaps the rows and columns of a 2D tensor.
func (t *Tensor[T, B]) Transpose() *Tensor[T, B] {
	result := t.backend.Transpose(t.raw)
	return New[T, B](result, t.backend)
}

// T is a shortcut for Transpose.
func (t *Tensor[T, B]) T() *Tensor[T, B] {
	return t.Transpose()
}

// MulScalar multiplies each element of the tensor by a scalar value.
//
// Example:
//
//	y := x.MulScalar(2.5) // multiply all elements by 2.5
func (t *Tensor[T, B]) MulScalar(alpha float64) *Tensor[T, B] {
	result := t.backend.MulScalar(t.raw, alpha)
	return New[T, B](result, t.backend)
}

// Sum computes the sum of all elements, returning a scalar tensor.
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	result := t.backend.Sum(t.raw)
	return New[T, B](result, t.backend)
}

// Mean computes the mean of all elements, returning a scalar tensor.
func (t *Tensor[T, B]) Mean() *Tensor[T, B] {
	result := t.backend.Mean(t.raw)
	return New[T, B](result, t.backend)
}

// SumDim sums tensor elements along the specified dimension.
// keepDim retains the reduced dimension as size 1.
func (t *Tensor[T, B]) SumDim(dim int, keepDim bool) *Tensor[T, B] {
	result := t.backend.SumDim(t.raw, dim, keepDim)
	return New[T, B](result, t.backend)
}

// Int32 casts the tensor to int32 dtype.
func (t *Tensor[T, B]) Int32() *Tensor[int32, B] {
	result := t.backend.Cast(t.raw, Int32)
	return New[int32, B](result, t.backend)
}

// Float32 casts the tensor to float32 dtype.
func (t *Tensor[T, B]) Float32() *Tensor[float32, B] {
	result := t.backend.Cast(t.raw, Float32)
	return New[float32, B](result, t.backend)
}

// Float64 casts the tensor to float64 dtype.
func (t *Tensor[T, B]) Float64() *Tensor[float64, B] {
	result := t.backend.Cast(t.raw, Float64)
	return New[float64, B](result, t.backend)
}

// Int64 casts the tensor to int64 dtype.
func (t *Tensor[T, B]) Int64() *Tensor[int64, B] {
	result := t.backend.Cast(t.raw, Int64)
	return New[int64, B](result, t.backend)
}

// Half casts the tensor to the given 16-bit float format and returns the
// raw result. Half formats have no Go element type, so the generic front
// end cannot carry them; training code keeps half parameters as RawTensors.
func (t *Tensor[T, B]) Half(dtype DataType) *RawTensor {
	if !dtype.IsHalf() {
		panic(fmt.Sprintf("half: %s is not a 16-bit float format", dtype))
	}
	return t.backend.Cast(t.raw, dtype)
}
