//go:build windows

package webgpu

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// castKernel returns the kernel for a format pair with a dedicated GPU
// path. The float32/half pairs carry gradient unscaling and master
// weight reads, so they get kernels; everything else falls back to the
// host interchange.
func castKernel(from, to tensor.DataType) (name, code string, ok bool) {
	switch {
	case from == tensor.Float16 && to == tensor.Float32:
		return "cast_f16_f32", castF16ToF32Shader, true
	case from == tensor.BFloat16 && to == tensor.Float32:
		return "cast_bf16_f32", castBF16ToF32Shader, true
	case from == tensor.Float32 && to == tensor.Float16:
		return "cast_f32_f16", castF32ToF16Shader, true
	case from == tensor.Float32 && to == tensor.BFloat16:
		return "cast_f32_bf16", castF32ToBF16Shader, true
	}
	return "", "", false
}

// runCast converts the tensor to a different element format.
// The result is always a fresh tensor, including same-format casts, so
// callers may freely mutate it without aliasing the input.
func (b *Backend) runCast(x *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	result, err := tensor.NewRaw(x.Shape(), dtype, tensor.WebGPU)
	if err != nil {
		return nil, fmt.Errorf("webgpu: cast: %w", err)
	}

	if x.DType() == dtype {
		copy(result.Data(), x.Data())
		return result, nil
	}

	kernel, code, ok := castKernel(x.DType(), dtype)
	if !ok {
		castViaFloat64(result, x)
		return result, nil
	}

	numElements := x.NumElements()

	bufferInput, sizeInput := b.uploadBuffer(x.Data())
	defer b.releaseBuffer(bufferInput, sizeInput)

	//nolint:gosec // G115: Safe conversion, ByteSize() returns non-negative int
	resultSize := uint64(result.ByteSize())
	bufferResult, paddedResult := b.newResultBuffer(resultSize)
	defer b.releaseBuffer(bufferResult, paddedResult)

	//nolint:gosec // G115: Safe conversion, NumElements() returns non-negative int
	bufferParams := b.createUniformBuffer(params16(uint32(numElements)))
	defer bufferParams.Release()

	// Widening kernels own one output element; narrowing kernels own one
	// packed output word.
	threads := numElements
	if dtype.IsHalf() {
		threads = wordCount(numElements)
	}

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

// castViaFloat64 handles the remaining format pairs through a float64
// interchange on the host. Slower, but every pair works.
func castViaFloat64(result, x *tensor.RawTensor) {
	n := x.NumElements()
	vals := make([]float64, n)

	switch x.DType() {
	case tensor.Float32:
		for i, v := range x.AsFloat32() {
			vals[i] = float64(v)
		}
	case tensor.Float64:
		copy(vals, x.AsFloat64())
	case tensor.Float16, tensor.BFloat16:
		for i, v := range x.Float32Values() {
			vals[i] = float64(v)
		}
	case tensor.Int32:
		for i, v := range x.AsInt32() {
			vals[i] = float64(v)
		}
	case tensor.Int64:
		for i, v := range x.AsInt64() {
			vals[i] = float64(v)
		}
	default:
		panic(fmt.Sprintf("webgpu: cast: unsupported source dtype %s", x.DType()))
	}

	switch result.DType() {
	case tensor.Float32:
		dst := result.AsFloat32()
		for i, v := range vals {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		copy(result.AsFloat64(), vals)
	case tensor.Float16:
		dst := result.AsUint16()
		for i, v := range vals {
			dst[i] = tensor.Float16Bits(float32(v))
		}
	case tensor.BFloat16:
		dst := result.AsUint16()
		for i, v := range vals {
			dst[i] = tensor.BFloat16Bits(float32(v))
		}
	case tensor.Int32:
		dst := result.AsInt32()
		for i, v := range vals {
			dst[i] = int32(v)
		}
	case tensor.Int64:
		dst := result.AsInt64()
		for i, v := range vals {
			dst[i] = int64(v)
		}
	default:
		panic(fmt.Sprintf("webgpu: cast: unsupported target dtype %s", result.DType()))
	}
}
