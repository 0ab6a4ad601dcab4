//go:build windows

package webgpu

import (
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Add performs element-wise addition on GPU.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runBinaryOp("add", a, other)
	if err != nil {
		panic("webgpu: Add: " + err.Error())
	}
	return result
}

// Sub performs element-wise subtraction on GPU.
func (b *Backend) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runBinaryOp("sub", a, other)
	if err != nil {
		panic("webgpu: Sub: " + err.Error())
	}
	return result
}

// Mul performs element-wise multiplication on GPU.
func (b *Backend) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runBinaryOp("mul", a, other)
	if err != nil {
		panic("webgpu: Mul: " + err.Error())
	}
	return result
}

// Div performs element-wise division on GPU.
func (b *Backend) Div(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runBinaryOp("div", a, other)
	if err != nil {
		panic("webgpu: Div: " + err.Error())
	}
	return result
}

// MatMul performs matrix multiplication on GPU.
func (b *Backend) MatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runMatMul(a, other)
	if err != nil {
		panic("webgpu: MatMul: " + err.Error())
	}
	return result
}

// Transpose transposes a 2D matrix on GPU.
func (b *Backend) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runTranspose(t)
	if err != nil {
		panic("webgpu: Transpose: " + err.Error())
	}
	return result
}

// MulScalar multiplies each element by alpha into a fresh tensor on GPU.
func (b *Backend) MulScalar(x *tensor.RawTensor, alpha float64) *tensor.RawTensor {
	result, err := b.runMulScalar(x, alpha)
	if err != nil {
		panic("webgpu: MulScalar: " + err.Error())
	}
	return result
}

// Sum reduces the tensor to a scalar, accumulating partials in float64.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	total, err := b.runSum(x)
	if err != nil {
		panic("webgpu: Sum: " + err.Error())
	}
	result, err := scalarResult(x, total)
	if err != nil {
		panic("webgpu: Sum: " + err.Error())
	}
	return result
}

// Mean reduces the tensor to its scalar mean.
func (b *Backend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	total, err := b.runSum(x)
	if err != nil {
		panic("webgpu: Mean: " + err.Error())
	}
	result, err := scalarResult(x, total/float64(x.NumElements()))
	if err != nil {
		panic("webgpu: Mean: " + err.Error())
	}
	return result
}

// SumDim sums tensor elements along the specified dimension.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result, err := b.runSumDim(x, dim, keepDim)
	if err != nil {
		panic("webgpu: SumDim: " + err.Error())
	}
	return result
}

// Cast converts the tensor to a different element format.
func (b *Backend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	result, err := b.runCast(x, dtype)
	if err != nil {
		panic("webgpu: Cast: " + err.Error())
	}
	return result
}

// Scale multiplies the tensor by alpha in place.
func (b *Backend) Scale(t *tensor.RawTensor, alpha float64) {
	if err := b.runScale(t, alpha); err != nil {
		panic("webgpu: Scale: " + err.Error())
	}
}

// Fill sets every element to value in place.
func (b *Backend) Fill(t *tensor.RawTensor, value float64) {
	b.fillHost(t, value)
}

// Copy writes src's elements into dst, converting element formats as
// needed.
func (b *Backend) Copy(dst, src *tensor.RawTensor) {
	b.copyHost(dst, src)
}

// SumSquares returns the sum of squared elements in float64.
func (b *Backend) SumSquares(x *tensor.RawTensor) float64 {
	total, err := b.runSumSquares(x)
	if err != nil {
		panic("webgpu: SumSquares: " + err.Error())
	}
	return total
}

// HasNonFinite reports whether any element is NaN or infinite.
func (b *Backend) HasNonFinite(x *tensor.RawTensor) bool {
	found, err := b.runHasNonFinite(x)
	if err != nil {
		panic("webgpu: HasNonFinite: " + err.Error())
	}
	return found
}
