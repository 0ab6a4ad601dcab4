//go:build windows

package webgpu

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// matmulShaders maps dtype -> matmul kernel source.
var matmulShaders = map[tensor.DataType]string{
	tensor.Float32:  matmulShader,
	tensor.Float16:  matmulShaderF16,
	tensor.BFloat16: matmulShaderBF16,
}

// transposeShaders maps dtype -> transpose kernel source.
var transposeShaders = map[tensor.DataType]string{
	tensor.Float32:  transposeShader,
	tensor.Float16:  transposeShaderF16,
	tensor.BFloat16: transposeShaderBF16,
}

// runMatMul executes C = A @ B on GPU.
// A is [M, K], B is [K, N], C is [M, N]. Half inputs accumulate in
// float32 inside the kernel, matching the cpu backend.
func (b *Backend) runMatMul(a, other *tensor.RawTensor) (*tensor.RawTensor, error) {
	code, ok := matmulShaders[a.DType()]
	if !ok {
		return nil, fmt.Errorf("webgpu: matmul: only float32, float16, and bfloat16 are supported, got %s", a.DType())
	}
	if other.DType() != a.DType() {
		return nil, fmt.Errorf("webgpu: matmul: dtype mismatch: %s vs %s", a.DType(), other.DType())
	}
	if len(a.Shape()) != 2 || len(other.Shape()) != 2 {
		return nil, fmt.Errorf("webgpu: matmul requires 2D tensors, got %v and %v", a.Shape(), other.Shape())
	}

	m, k := a.Shape()[0], a.Shape()[1]
	kAlt, n := other.Shape()[0], other.Shape()[1]
	if k != kAlt {
		return nil, fmt.Errorf("webgpu: matmul shape mismatch: [%d,%d] @ [%d,%d]", m, k, kAlt, n)
	}

	bufferA, sizeA := b.uploadBuffer(a.Data())
	defer b.releaseBuffer(bufferA, sizeA)

	bufferOther, sizeOther := b.uploadBuffer(other.Data())
	defer b.releaseBuffer(bufferOther, sizeOther)

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G115: Safe conversion, ByteSize() returns non-negative int
	resultSize := uint64(result.ByteSize())
	bufferResult, paddedResult := b.newResultBuffer(resultSize)
	defer b.releaseBuffer(bufferResult, paddedResult)

	//nolint:gosec // G115: Safe conversions, matrix dimensions are non-negative
	bufferParams := b.createUniformBuffer(params16(uint32(m), uint32(k), uint32(n)))
	defer bufferParams.Release()

	kernel := "matmul_" + a.DType().String()
	entries := []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferA, 0, sizeA),
		wgpu.BufferBindingEntry(1, bufferOther, 0, sizeOther),
		wgpu.BufferBindingEntry(2, bufferResult, 0, paddedResult),
		wgpu.BufferBindingEntry(3, bufferParams, 0, 16),
	}

	if a.DType() == tensor.Float32 {
		// 16x16 2D dispatch, one invocation per output element.
		//nolint:gosec // G115: Safe conversions, matrix dimensions are non-negative
		b.dispatch(kernel, code, entries, uint32((n+15)/16), uint32((m+15)/16), 1)
	} else {
		// 1D dispatch, one invocation per packed output word.
		b.dispatch(kernel, code, entries, workgroups1D(wordCount(m*n)), 1, 1)
	}

	resultData, err := b.readBuffer(bufferResult, resultSize)
	if err != nil {
		return nil, err
	}
	copy(result.Data(), resultData)

	return result, nil
}

// runTranspose transposes a 2D matrix on GPU.
func (b *Backend) runTranspose(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	code, ok := transposeShaders[t.DType()]
	if !ok {
		return nil, fmt.Errorf("webgpu: transpose: only float32, float16, and bfloat16 are supported, got %s", t.DType())
	}
	if len(t.Shape()) != 2 {
		return nil, fmt.Errorf("webgpu: transpose requires a 2D tensor, got %v", t.Shape())
	}

	rows, cols := t.Shape()[0], t.Shape()[1]

	bufferInput, sizeInput := b.uploadBuffer(t.Data())
	defer b.releaseBuffer(bufferInput, sizeInput)

	result, err := tensor.NewRaw(tensor.Shape{cols, rows}, t.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G115: Safe conversion, ByteSize() returns non-negative int
	resultSize := uint64(result.ByteSize())
	bufferResult, paddedResult := b.newResultBuffer(resultSize)
	defer b.releaseBuffer(bufferResult, paddedResult)

	//nolint:gosec // G115: Safe conversions, matrix dimensions are non-negative
	bufferParams := b.createUniformBuffer(params16(uint32(rows), uint32(cols)))
	defer bufferParams.Release()

	kernel := "transpose_" + t.DType().String()
	entries := []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferInput, 0, sizeInput),
		wgpu.BufferBindingEntry(1, bufferResult, 0, paddedResult),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	}

	if t.DType() == tensor.Float32 {
		//nolint:gosec // G115: Safe conversions, matrix dimensions are non-negative
		b.dispatch(kernel, code, entries, uint32((cols+15)/16), uint32((rows+15)/16), 1)
	} else {
		b.dispatch(kernel, code, entries, workgroups1D(wordCount(rows*cols)), 1, 1)
	}

	resultData, err := b.readBuffer(bufferResult, resultSize)
	if err != nil {
		return nil, err
	}
	copy(result.Data(), resultData)

	return result, nil
}
