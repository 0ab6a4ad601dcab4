//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// globalSumShaders maps dtype -> partial sum kernel source.
var globalSumShaders = map[tensor.DataType]string{
	tensor.Float32:  globalSumShader,
	tensor.Float16:  globalSumShaderF16,
	tensor.BFloat16: globalSumShaderBF16,
}

// sumSquaresShaders maps dtype -> partial sum of squares kernel source.
var sumSquaresShaders = map[tensor.DataType]string{
	tensor.Float32:  sumSquaresShader,
	tensor.Float16:  sumSquaresShaderF16,
	tensor.BFloat16: sumSquaresShaderBF16,
}

// sumDimShaders maps dtype -> dimension sum kernel source.
var sumDimShaders = map[tensor.DataType]string{
	tensor.Float32:  sumDimShader,
	tensor.Float16:  sumDimShaderF16,
	tensor.BFloat16: sumDimShaderBF16,
}

// nonFiniteShaders maps dtype -> NaN/Inf detection kernel source.
var nonFiniteShaders = map[tensor.DataType]string{
	tensor.Float32:  nonFiniteShader,
	tensor.Float16:  nonFiniteShaderF16,
	tensor.BFloat16: nonFiniteShaderBF16,
}

// runGlobalReduce dispatches a shared-memory reduction kernel producing
// one float32 partial per workgroup and adds the partials in float64 on
// the host. Gradient norms flow through here, so the final accumulation
// keeps the cpu backend's precision.
func (b *Backend) runGlobalReduce(name string, shaders map[tensor.DataType]string, x *tensor.RawTensor) (float64, error) {
	code, ok := shaders[x.DType()]
	if !ok {
		return 0, fmt.Errorf("webgpu: %s: only float32, float16, and bfloat16 are supported, got %s", name, x.DType())
	}

	numElements := x.NumElements()
	if numElements == 0 {
		return 0, nil
	}

	bufferInput, sizeInput := b.uploadBuffer(x.Data())
	defer b.releaseBuffer(bufferInput, sizeInput)

	// One invocation per element, one partial per workgroup.
	numWorkgroups := workgroups1D(numElements)
	partialsSize := uint64(numWorkgroups) * 4
	bufferPartials, paddedPartials := b.newResultBuffer(partialsSize)
	defer b.releaseBuffer(bufferPartials, paddedPartials)

	//nolint:gosec // G115: Safe conversion, NumElements() returns non-negative int
	bufferParams := b.createUniformBuffer(params16(uint32(numElements)))
	defer bufferParams.Release()

	kernel := name + "_" + x.DType().String()
	b.dispatch(kernel, code, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferInput, 0, sizeInput),
		wgpu.BufferBindingEntry(1, bufferPartials, 0, paddedPartials),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	}, numWorkgroups, 1, 1)

	data, err := b.readBuffer(bufferPartials, partialsSize)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for i := uint32(0); i < numWorkgroups; i++ {
		total += float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return total, nil
}

// runSum reduces the tensor to a float64 total.
func (b *Backend) runSum(x *tensor.RawTensor) (float64, error) {
	return b.runGlobalReduce("global_sum", globalSumShaders, x)
}

// runSumSquares reduces the tensor to the float64 sum of squared elements.
func (b *Backend) runSumSquares(x *tensor.RawTensor) (float64, error) {
	return b.runGlobalReduce("sum_squares", sumSquaresShaders, x)
}

// scalarResult wraps a reduction value in a zero-dimensional tensor of
// x's element format.
func scalarResult(x *tensor.RawTensor, value float64) (*tensor.RawTensor, error) {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	if err := result.SetFloat32Values([]float32{float32(value)}); err != nil {
		return nil, err
	}
	return result, nil
}

// runSumDim sums tensor elements along the specified dimension.
// The tensor is viewed as [outer, dim, inner]; one kernel invocation
// accumulates one output element (or one packed word for half formats).
func (b *Backend) runSumDim(x *tensor.RawTensor, dim int, keepDim bool) (*tensor.RawTensor, error) {
	code, ok := sumDimShaders[x.DType()]
	if !ok {
		return nil, fmt.Errorf("webgpu: sumdim: only float32, float16, and bfloat16 are supported, got %s", x.DType())
	}

	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 || dim >= ndim {
		return nil, fmt.Errorf("webgpu: sumdim: dimension %d out of range for %dD tensor", dim, ndim)
	}

	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < ndim; i++ {
		inner *= shape[i]
	}
	dimSize := shape[dim]

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

	bufferInput, sizeInput := b.uploadBuffer(x.Data())
	defer b.releaseBuffer(bufferInput, sizeInput)

	result, err := tensor.NewRaw(outShape, x.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G115: Safe conversion, ByteSize() returns non-negative int
	resultSize := uint64(result.ByteSize())
	bufferResult, paddedResult := b.newResultBuffer(resultSize)
	defer b.releaseBuffer(bufferResult, paddedResult)

	//nolint:gosec // G115: Safe conversions, shape dimensions are non-negative
	bufferParams := b.createUniformBuffer(params16(uint32(outer), uint32(dimSize), uint32(inner)))
	defer bufferParams.Release()

	threads := outer * inner
	if x.DType().IsHalf() {
		threads = wordCount(threads)
	}

	kernel := "sum_dim_" + x.DType().String()
	b.dispatch(kernel, code, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferInput, 0, sizeInput),
		wgpu.BufferBindingEntry(1, bufferResult, 0, paddedResult),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	}, workgroups1D(threads), 1, 1)

	resultData, err := b.readBuffer(bufferResult, resultSize)
	if err != nil {
		return nil, err
	}
	copy(result.Data(), resultData)

	return result, nil
}

// runHasNonFinite reports whether any element is NaN or infinite, checked
// on the raw exponent bits by an atomic counter kernel. Overflow checks
// after every backward pass run through here.
func (b *Backend) runHasNonFinite(x *tensor.RawTensor) (bool, error) {
	code, ok := nonFiniteShaders[x.DType()]
	if !ok {
		return false, fmt.Errorf("webgpu: hasnonfinite: only float32, float16, and bfloat16 are supported, got %s", x.DType())
	}

	numElements := x.NumElements()
	if numElements == 0 {
		return false, nil
	}

	bufferInput, sizeInput := b.uploadBuffer(x.Data())
	defer b.releaseBuffer(bufferInput, sizeInput)

	// Counter starts at zero; pooled buffers hold stale data, so it is
	// uploaded rather than acquired.
	bufferCount, sizeCount := b.uploadBuffer([]byte{0, 0, 0, 0})
	defer b.releaseBuffer(bufferCount, sizeCount)

	//nolint:gosec // G115: Safe conversion, NumElements() returns non-negative int
	bufferParams := b.createUniformBuffer(params16(uint32(numElements)))
	defer bufferParams.Release()

	threads := numElements
	if x.DType().IsHalf() {
		threads = wordCount(numElements)
	}

	kernel := "non_finite_" + x.DType().String()
	b.dispatch(kernel, code, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferInput, 0, sizeInput),
		wgpu.BufferBindingEntry(1, bufferCount, 0, sizeCount),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	}, workgroups1D(threads), 1, 1)

	data, err := b.readBuffer(bufferCount, 4)
	if err != nil {
		return false, err
	}

	return binary.LittleEndian.Uint32(data) > 0, nil
}
