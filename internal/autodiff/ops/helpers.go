package ops

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// If shapes already match, clone to avoid aliasing issues
	// (prevents inplace operations from modifying shared gradients)
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// Handle scalar target (empty shape)
	if len(targetShape) == 0 {
		return sumAll(grad, backend)
	}

	// Handle broadcasting reduction
	// NumPy broadcasting aligns shapes from the right
	result := grad
	offset := len(gradShape) - len(targetShape)

	// Sum away leading dimensions the target does not have. The summed
	// dimension is kept as size 1, so the offset stays stable.
	for i := 0; i < offset; i++ {
		result = sumAlongDimension(result, i)
	}

	// Sum along dimensions where the target is 1
	for i := 0; i < len(targetShape); i++ {
		if targetShape[i] == 1 && result.Shape()[i+offset] > 1 {
			result = sumAlongDimension(result, i+offset)
		}
	}

	// Reshape if necessary to match target shape exactly
	if !result.Shape().Equal(targetShape) {
		reshaped, err := result.Reshape(targetShape)
		if err != nil {
			panic(fmt.Sprintf("reduceBroadcast: %v", err))
		}
		result = reshaped
	}

	return result
}

// sumAll sums all elements of a tensor to a scalar.
func sumAll(t *tensor.RawTensor, _ tensor.Backend) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAll: failed to create result: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		var sum float32
		for _, v := range t.AsFloat32() {
			sum += v
		}
		result.AsFloat32()[0] = sum

	case tensor.Float64:
		var sum float64
		for _, v := range t.AsFloat64() {
			sum += v
		}
		result.AsFloat64()[0] = sum

	case tensor.Float16, tensor.BFloat16:
		var sum float32
		for _, v := range t.Float32Values() {
			sum += v
		}
		if err := result.SetFloat32Values([]float32{sum}); err != nil {
			panic(fmt.Sprintf("sumAll: %v", err))
		}

	default:
		panic(fmt.Sprintf("sumAll: unsupported dtype %s", t.DType()))
	}

	return result
}

// sumAlongDimension sums a tensor along the specified dimension,
// keeping it as size 1.
func sumAlongDimension(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDimension: invalid dimension %d for shape %v", dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = 1

	result, err := tensor.NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDimension: failed to create result: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		sumFloat32AlongDimension(t.AsFloat32(), result.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumFloat64AlongDimension(t.AsFloat64(), result.AsFloat64(), shape, dim)
	case tensor.Float16, tensor.BFloat16:
		dst := make([]float32, outShape.NumElements())
		sumFloat32AlongDimension(t.Float32Values(), dst, shape, dim)
		if err := result.SetFloat32Values(dst); err != nil {
			panic(fmt.Sprintf("sumAlongDimension: %v", err))
		}
	default:
		panic(fmt.Sprintf("sumAlongDimension: unsupported dtype %s", t.DType()))
	}

	return result
}

// sumFloat32AlongDimension accumulates along dim by dropping its
// coordinate from the flat index.
func sumFloat32AlongDimension(data, result []float32, shape tensor.Shape, dim int) {
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

func sumFloat64AlongDimension(data, result []float64, shape tensor.Shape, dim int) {
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

// negateGradient returns -grad.
func negateGradient(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	zeros := tensor.RawZeros(grad.Shape(), grad.DType())
	return backend.Sub(zeros, grad)
}

// scalarValue reads the single element of a 0-D tensor in float64.
func scalarValue(t *tensor.RawTensor) float64 {
	if t.DType() == tensor.Float64 {
		return t.AsFloat64()[0]
	}
	return float64(t.Float32Values()[0])
}
