//go:build windows

package webgpu

import (
	"fmt"
	"math"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// scalarMulShaders maps dtype -> scalar multiply kernel source.
var scalarMulShaders = map[tensor.DataType]string{
	tensor.Float32:  scalarMulShader,
	tensor.Float16:  scalarMulShaderF16,
	tensor.BFloat16: scalarMulShaderBF16,
}

// scaleShaders maps dtype -> in-place scale kernel source.
var scaleShaders = map[tensor.DataType]string{
	tensor.Float32:  scaleShader,
	tensor.Float16:  scaleShaderF16,
	tensor.BFloat16: scaleShaderBF16,
}

// runMulScalar multiplies each element by alpha into a fresh tensor.
func (b *Backend) runMulScalar(x *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	code, ok := scalarMulShaders[x.DType()]
	if !ok {
		return nil, fmt.Errorf("webgpu: mulScalar: only float32, float16, and bfloat16 are supported, got %s", x.DType())
	}

	numElements := x.NumElements()

	bufferInput, sizeInput := b.uploadBuffer(x.Data())
	defer b.releaseBuffer(bufferInput, sizeInput)

	result, err := tensor.NewRaw(x.Shape(), x.DType(), tensor.WebGPU)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G115: Safe conversion, ByteSize() returns non-negative int
	resultSize := uint64(result.ByteSize())
	bufferResult, paddedResult := b.newResultBuffer(resultSize)
	defer b.releaseBuffer(bufferResult, paddedResult)

	//nolint:gosec // G115: Safe conversion, NumElements() returns non-negative int
	bufferParams := b.createUniformBuffer(params16(uint32(numElements), math.Float32bits(float32(alpha))))
	defer bufferParams.Release()

	threads := numElements
	if x.DType().IsHalf() {
		threads = wordCount(numElements)
	}

	kernel := "scalar_mul_" + x.DType().String()
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

// runScale multiplies t by alpha in place. The buffer is uploaded, scaled
// in a read_write kernel, and written back over t's host data.
func (b *Backend) runScale(t *tensor.RawTensor, alpha float64) error {
	code, ok := scaleShaders[t.DType()]
	if !ok {
		return fmt.Errorf("webgpu: scale: only float32, float16, and bfloat16 are supported, got %s", t.DType())
	}

	numElements := t.NumElements()

	bufferData, sizeData := b.uploadBuffer(t.Data())
	defer b.releaseBuffer(bufferData, sizeData)

	//nolint:gosec // G115: Safe conversion, NumElements() returns non-negative int
	bufferParams := b.createUniformBuffer(params16(uint32(numElements), math.Float32bits(float32(alpha))))
	defer bufferParams.Release()

	threads := numElements
	if t.DType().IsHalf() {
		threads = wordCount(numElements)
	}

	kernel := "scale_" + t.DType().String()
	b.dispatch(kernel, code, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferData, 0, sizeData),
		wgpu.BufferBindingEntry(1, bufferParams, 0, 16),
	}, workgroups1D(threads), 1, 1)

	//nolint:gosec // G115: Safe conversion, ByteSize() returns non-negative int
	resultData, err := b.readBuffer(bufferData, uint64(t.ByteSize()))
	if err != nil {
		return err
	}
	copy(t.Data(), resultData)

	return nil
}

// fillHost sets every element to value. Host memory is the source of
// truth between dispatches, so constant fills skip the GPU round trip.
// The loss scaler's overflow flag needs the int32 path.
func (b *Backend) fillHost(t *tensor.RawTensor, value float64) {
	switch t.DType() {
	case tensor.Float32:
		data := t.AsFloat32()
		v := float32(value)
		for i := range data {
			data[i] = v
		}
	case tensor.Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] = value
		}
	case tensor.Float16:
		data := t.AsUint16()
		w := tensor.Float16Bits(float32(value))
		for i := range data {
			data[i] = w
		}
	case tensor.BFloat16:
		data := t.AsUint16()
		w := tensor.BFloat16Bits(float32(value))
		for i := range data {
			data[i] = w
		}
	case tensor.Int32:
		data := t.AsInt32()
		v := int32(value)
		for i := range data {
			data[i] = v
		}
	case tensor.Int64:
		data := t.AsInt64()
		v := int64(value)
		for i := range data {
			data[i] = v
		}
	default:
		panic(fmt.Sprintf("webgpu: fill: unsupported dtype %s", t.DType()))
	}
}

// copyHost writes src's elements into dst, converting element formats as
// needed. Shapes must match exactly.
func (b *Backend) copyHost(dst, src *tensor.RawTensor) {
	if !dst.Shape().Equal(src.Shape()) {
		panic(fmt.Sprintf("webgpu: copy: shape mismatch %v vs %v", dst.Shape(), src.Shape()))
	}

	if dst.DType() == src.DType() {
		copy(dst.Data(), src.Data())
		return
	}

	// Cross-format copy. Master weight updates flow fp32 -> fp16 here.
	if err := dst.SetFloat32Values(src.Float32Values()); err != nil {
		panic(fmt.Sprintf("webgpu: copy: %v", err))
	}
}
