//go:build windows

package webgpu

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// binaryShaders maps op name -> dtype -> kernel source.
var binaryShaders = map[string]map[tensor.DataType]string{
	"add": {
		tensor.Float32:  addShader,
		tensor.Float16:  addShaderF16,
		tensor.BFloat16: addShaderBF16,
	},
	"sub": {
		tensor.Float32:  subShader,
		tensor.Float16:  subShaderF16,
		tensor.BFloat16: subShaderBF16,
	},
	"mul": {
		tensor.Float32:  mulShader,
		tensor.Float16:  mulShaderF16,
		tensor.BFloat16: mulShaderBF16,
	},
	"div": {
		tensor.Float32:  divShader,
		tensor.Float16:  divShaderF16,
		tensor.BFloat16: divShaderBF16,
	},
}

// runBinaryOp executes an element-wise binary kernel with NumPy-style
// broadcasting. Broadcast operands are expanded host side before upload,
// so the kernels only see aligned shapes.
func (b *Backend) runBinaryOp(name string, a, other *tensor.RawTensor) (*tensor.RawTensor, error) {
	variants, ok := binaryShaders[name]
	if !ok {
		return nil, fmt.Errorf("webgpu: unknown binary op %q", name)
	}
	code, ok := variants[a.DType()]
	if !ok {
		return nil, fmt.Errorf("webgpu: %s: only float32, float16, and bfloat16 are supported, got %s", name, a.DType())
	}
	if other.DType() != a.DType() {
		return nil, fmt.Errorf("webgpu: %s: dtype mismatch: %s vs %s", name, a.DType(), other.DType())
	}

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), other.Shape())
	if err != nil {
		return nil, fmt.Errorf("webgpu: %s: %w", name, err)
	}

	left, err := expandHost(a, outShape)
	if err != nil {
		return nil, err
	}
	right, err := expandHost(other, outShape)
	if err != nil {
		return nil, err
	}

	numElements := outShape.NumElements()

	bufferA, sizeA := b.uploadBuffer(left.Data())
	defer b.releaseBuffer(bufferA, sizeA)

	bufferOther, sizeOther := b.uploadBuffer(right.Data())
	defer b.releaseBuffer(bufferOther, sizeOther)

	result, err := tensor.NewRaw(outShape, a.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G115: Safe conversion, ByteSize() returns non-negative int
	resultSize := uint64(result.ByteSize())
	bufferResult, paddedResult := b.newResultBuffer(resultSize)
	defer b.releaseBuffer(bufferResult, paddedResult)

	//nolint:gosec // G115: Safe conversion, NumElements() returns non-negative int
	bufferParams := b.createUniformBuffer(params16(uint32(numElements)))
	defer bufferParams.Release()

	// Half kernels own one packed word (two elements) per invocation.
	threads := numElements
	if a.DType().IsHalf() {
		threads = wordCount(numElements)
	}

	kernel := name + "_" + a.DType().String()
	b.dispatch(kernel, code, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferA, 0, sizeA),
		wgpu.BufferBindingEntry(1, bufferOther, 0, sizeOther),
		wgpu.BufferBindingEntry(2, bufferResult, 0, paddedResult),
		wgpu.BufferBindingEntry(3, bufferParams, 0, 16),
	}, workgroups1D(threads), 1, 1)

	resultData, err := b.readBuffer(bufferResult, resultSize)
	if err != nil {
		return nil, err
	}
	copy(result.Data(), resultData)

	return result, nil
}

// expandHost materializes x broadcast to outShape. Returns x unchanged
// when the shapes already match.
func expandHost(x *tensor.RawTensor, outShape tensor.Shape) (*tensor.RawTensor, error) {
	if x.Shape().Equal(outShape) {
		return x, nil
	}

	out, err := tensor.NewRaw(outShape, x.DType(), x.Device())
	if err != nil {
		return nil, err
	}

	elemSize := x.DType().Size()
	srcStrides := broadcastStrides(x.Shape(), outShape)
	outStrides := outShape.ComputeStrides()
	src := x.Data()
	dst := out.Data()

	for i := 0; i < outShape.NumElements(); i++ {
		srcIdx := flatIndex(i, outStrides, srcStrides)
		copy(dst[i*elemSize:(i+1)*elemSize], src[srcIdx*elemSize:(srcIdx+1)*elemSize])
	}

	return out, nil
}

// broadcastStrides computes strides for broadcasting inShape to outShape.
// Dimensions of size 1 and left-padded dimensions get stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	inDim := len(inShape)
	offset := outDim - inDim
	origStrides := inShape.ComputeStrides()

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		switch {
		case inIdx < 0 || inIdx >= inDim:
			strides[i] = 0
		case inShape[inIdx] == 1:
			strides[i] = 0
		default:
			strides[i] = origStrides[inIdx]
		}
	}

	return strides
}

// flatIndex maps a flat output index onto the source array through
// broadcast-adjusted strides.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	flatIdx := 0
	for i := 0; i < len(outStrides); i++ {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		flatIdx += coord * inStrides[i]
	}
	return flatIdx
}
