package cpu

import (
	"github.com/tandem-ml/tandem/internal/parallel"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// binOp identifies an element-wise arithmetic kernel.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

func (op binOp) apply32(x, y float32) float32 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	default:
		return x / y
	}
}

func (op binOp) apply64(x, y float64) float64 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	default:
		return x / y
	}
}

// vectorized runs the same-shape fast path.
// Requires: a.Shape().Equal(b.Shape()).
func (cpu *CPUBackend) vectorized(name string, result, a, b *tensor.RawTensor, op binOp) {
	switch a.DType() {
	case tensor.Float32:
		vectorizedFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), op, cpu.cfg)
	case tensor.Float64:
		vectorizedFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), op, cpu.cfg)
	case tensor.Float16, tensor.BFloat16:
		cpu.halfBinary(result, a, b, func(dst, av, bv []float32) {
			vectorizedFloat32(dst, av, bv, op, cpu.cfg)
		})
	default:
		panic(name + ": unsupported dtype " + a.DType().String())
	}
}

// withBroadcast runs the general path with stride-based index mapping.
func (cpu *CPUBackend) withBroadcast(name string, result, a, b *tensor.RawTensor, outShape tensor.Shape, op binOp) {
	switch a.DType() {
	case tensor.Float32:
		broadcastFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, op, cpu.cfg)
	case tensor.Float64:
		broadcastFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, op, cpu.cfg)
	case tensor.Float16, tensor.BFloat16:
		cpu.halfBinary(result, a, b, func(dst, av, bv []float32) {
			broadcastFloat32(dst, av, bv, a.Shape(), b.Shape(), outShape, op, cpu.cfg)
		})
	default:
		panic(name + ": unsupported dtype " + a.DType().String())
	}
}

// halfBinary widens half precision operands to float32, runs the float32
// kernel, and narrows the result back into place.
func (cpu *CPUBackend) halfBinary(result, a, b *tensor.RawTensor, kernel func(dst, a, b []float32)) {
	dst := make([]float32, result.NumElements())
	kernel(dst, a.Float32Values(), b.Float32Values())
	if err := result.SetFloat32Values(dst); err != nil {
		panic(err)
	}
}

func vectorizedFloat32(dst, a, b []float32, op binOp, cfg parallel.Config) {
	switch op {
	case opAdd:
		parallel.For(len(dst), func(i int) { dst[i] = a[i] + b[i] }, cfg)
	case opSub:
		parallel.For(len(dst), func(i int) { dst[i] = a[i] - b[i] }, cfg)
	case opMul:
		parallel.For(len(dst), func(i int) { dst[i] = a[i] * b[i] }, cfg)
	default:
		parallel.For(len(dst), func(i int) { dst[i] = a[i] / b[i] }, cfg)
	}
}

func vectorizedFloat64(dst, a, b []float64, op binOp, cfg parallel.Config) {
	switch op {
	case opAdd:
		parallel.For(len(dst), func(i int) { dst[i] = a[i] + b[i] }, cfg)
	case opSub:
		parallel.For(len(dst), func(i int) { dst[i] = a[i] - b[i] }, cfg)
	case opMul:
		parallel.For(len(dst), func(i int) { dst[i] = a[i] * b[i] }, cfg)
	default:
		parallel.For(len(dst), func(i int) { dst[i] = a[i] / b[i] }, cfg)
	}
}

func broadcastFloat32(dst, a, b []float32, aShape, bShape, outShape tensor.Shape, op binOp, cfg parallel.Config) {
	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	parallel.For(outShape.NumElements(), func(i int) {
		aIdx := flatIndex(i, outStrides, aStrides)
		bIdx := flatIndex(i, outStrides, bStrides)
		dst[i] = op.apply32(a[aIdx], b[bIdx])
	}, cfg)
}

func broadcastFloat64(dst, a, b []float64, aShape, bShape, outShape tensor.Shape, op binOp, cfg parallel.Config) {
	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	parallel.For(outShape.NumElements(), func(i int) {
		aIdx := flatIndex(i, outStrides, aStrides)
		bIdx := flatIndex(i, outStrides, bStrides)
		dst[i] = op.apply64(a[aIdx], b[bIdx])
	}, cfg)
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
