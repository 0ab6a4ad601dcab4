package cpu

import (
	"fmt"
	"math"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// Sum reduces the tensor to a scalar, accumulating in float64.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.scalarResult("sum", x, sumFloat64(x))
}

// Mean reduces the tensor to its scalar mean.
func (cpu *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.scalarResult("mean", x, sumFloat64(x)/float64(x.NumElements()))
}

func (cpu *CPUBackend) scalarResult(name string, x *tensor.RawTensor, value float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch x.DType() {
	case tensor.Float64:
		result.AsFloat64()[0] = value
	default:
		if err := result.SetFloat32Values([]float32{float32(value)}); err != nil {
			panic(fmt.Sprintf("%s: %v", name, err))
		}
	}
	return result
}

func sumFloat64(x *tensor.RawTensor) float64 {
	total := 0.0
	switch x.DType() {
	case tensor.Float32:
		for _, v := range x.AsFloat32() {
			total += float64(v)
		}
	case tensor.Float64:
		for _, v := range x.AsFloat64() {
			total += v
		}
	case tensor.Float16, tensor.BFloat16:
		for _, v := range x.Float32Values() {
			total += float64(v)
		}
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return total
}

// SumDim sums tensor elements along the specified dimension.
// dim must be in [0, ndim); keepDim retains the reduced dimension as size 1.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, ndim-1)
		for i := 0; i < ndim; i++ {
			if i != dim {
				outShape = append(outShape, shape[i])
			}
		}
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sumdim: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		sumDimFloat32(x.AsFloat32(), result.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumDimFloat64(x.AsFloat64(), result.AsFloat64(), shape, dim)
	case tensor.Float16, tensor.BFloat16:
		dst := make([]float32, outShape.NumElements())
		sumDimFloat32(x.Float32Values(), dst, shape, dim)
		if err := result.SetFloat32Values(dst); err != nil {
			panic(err)
		}
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}

	return result
}

// sumDimFloat32 accumulates along dim by dropping its coordinate from the
// flat index.
func sumDimFloat32(data, result []float32, shape tensor.Shape, dim int) {
	for i := range result {
		result[i] = 0
	}

	strides := shape.ComputeStrides()

	outShape := shape.Clone()
	outShape[dim] = 1
	outStrides := outShape.ComputeStrides()

	for i, v := range data {
		outIdx := 0
		temp := i
		for d := 0; d < len(shape); d++ {
			coord := temp / strides[d]
			temp %= strides[d]
			if d != dim {
				outIdx += coord * outStrides[d]
			}
		}
		result[outIdx] += v
	}
}

func sumDimFloat64(data, result []float64, shape tensor.Shape, dim int) {
	for i := range result {
		result[i] = 0
	}

	strides := shape.ComputeStrides()

	outShape := shape.Clone()
	outShape[dim] = 1
	outStrides := outShape.ComputeStrides()

	for i, v := range data {
		outIdx := 0
		temp := i
		for d := 0; d < len(shape); d++ {
			coord := temp / strides[d]
			temp %= strides[d]
			if d != dim {
				outIdx += coord * outStrides[d]
			}
		}
		result[outIdx] += v
	}
}

// SumSquares returns the sum of squared elements in float64.
// Gradient norms accumulate through here, so precision matters more
// than speed.
func (cpu *CPUBackend) SumSquares(x *tensor.RawTensor) float64 {
	total := 0.0
	switch x.DType() {
	case tensor.Float32:
		for _, v := range x.AsFloat32() {
			total += float64(v) * float64(v)
		}
	case tensor.Float64:
		for _, v := range x.AsFloat64() {
			total += v * v
		}
	case tensor.Float16, tensor.BFloat16:
		for _, v := range x.Float32Values() {
			total += float64(v) * float64(v)
		}
	default:
		panic(fmt.Sprintf("sumsquares: unsupported dtype %s", x.DType()))
	}
	return total
}

// HasNonFinite reports whether any element is NaN or infinite.
// Half formats are checked on the raw exponent bits without decoding;
// the scan stops at the first hit.
func (cpu *CPUBackend) HasNonFinite(x *tensor.RawTensor) bool {
	switch x.DType() {
	case tensor.Float32:
		for _, v := range x.AsFloat32() {
			if v != v || math.IsInf(float64(v), 0) {
				return true
			}
		}
	case tensor.Float64:
		for _, v := range x.AsFloat64() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	case tensor.Float16:
		// Exponent all ones means Inf or NaN.
		for _, w := range x.AsUint16() {
			if w&0x7C00 == 0x7C00 {
				return true
			}
		}
	case tensor.BFloat16:
		for _, w := range x.AsUint16() {
			if w&0x7F80 == 0x7F80 {
				return true
			}
		}
	default:
		panic(fmt.Sprintf("hasnonfinite: unsupported dtype %s", x.DType()))
	}
	return false
}
