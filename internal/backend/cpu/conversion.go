package cpu

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/parallel"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Cast converts the tensor to a different element format.
// The result is always a fresh tensor, including same-format casts, so
// callers may freely mutate it without aliasing the input.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cast: %v", err))
	}

	if x.DType() == dtype {
		copy(result.Data(), x.Data())
		return result
	}

	from, to := x.DType(), dtype
	switch {
	case from == tensor.Float32 && to == tensor.Float16:
		src := x.AsFloat32()
		dst := result.AsUint16()
		parallel.For(len(src), func(i int) { dst[i] = tensor.Float16Bits(src[i]) }, cpu.cfg)
	case from == tensor.Float16 && to == tensor.Float32:
		src := x.AsUint16()
		dst := result.AsFloat32()
		parallel.For(len(src), func(i int) { dst[i] = tensor.Float16From(src[i]) }, cpu.cfg)
	case from == tensor.Float32 && to == tensor.BFloat16:
		src := x.AsFloat32()
		dst := result.AsUint16()
		parallel.For(len(src), func(i int) { dst[i] = tensor.BFloat16Bits(src[i]) }, cpu.cfg)
	case from == tensor.BFloat16 && to == tensor.Float32:
		src := x.AsUint16()
		dst := result.AsFloat32()
		parallel.For(len(src), func(i int) { dst[i] = tensor.BFloat16From(src[i]) }, cpu.cfg)
	default:
		castViaFloat64(result, x)
	}

	return result
}

// castViaFloat64 handles the remaining format pairs through a float64
// interchange. Slower, but every pair works.
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
		panic(fmt.Sprintf("cast: unsupported source dtype %s", x.DType()))
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
		panic(fmt.Sprintf("cast: unsupported target dtype %s", result.DType()))
	}
}
