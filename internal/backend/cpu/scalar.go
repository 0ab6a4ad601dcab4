package cpu

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/parallel"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Scalar and in-place operations.

// MulScalar multiplies each element by alpha into a fresh tensor.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, alpha float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mulScalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		a := float32(alpha)
		parallel.For(len(src), func(i int) { dst[i] = src[i] * a }, cpu.cfg)
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		parallel.For(len(src), func(i int) { dst[i] = src[i] * alpha }, cpu.cfg)
	case tensor.Float16, tensor.BFloat16:
		vals := x.Float32Values()
		a := float32(alpha)
		for i := range vals {
			vals[i] *= a
		}
		if err := result.SetFloat32Values(vals); err != nil {
			panic(err)
		}
	default:
		panic(fmt.Sprintf("mulScalar: unsupported dtype %s", x.DType()))
	}

	return result
}

// Scale multiplies the tensor by alpha in place.
// Gradient unscaling runs through here, so the half path stays exact
// for power-of-two factors.
func (cpu *CPUBackend) Scale(t *tensor.RawTensor, alpha float64) {
	switch t.DType() {
	case tensor.Float32:
		data := t.AsFloat32()
		a := float32(alpha)
		parallel.For(len(data), func(i int) { data[i] *= a }, cpu.cfg)
	case tensor.Float64:
		data := t.AsFloat64()
		parallel.For(len(data), func(i int) { data[i] *= alpha }, cpu.cfg)
	case tensor.Float16, tensor.BFloat16:
		vals := t.Float32Values()
		a := float32(alpha)
		for i := range vals {
			vals[i] *= a
		}
		if err := t.SetFloat32Values(vals); err != nil {
			panic(err)
		}
	default:
		panic(fmt.Sprintf("scale: unsupported dtype %s", t.DType()))
	}
}

// Fill sets every element to value in place.
func (cpu *CPUBackend) Fill(t *tensor.RawTensor, value float64) {
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
		panic(fmt.Sprintf("fill: unsupported dtype %s", t.DType()))
	}
}

// Copy writes src's elements into dst, converting element formats as
// needed. Shapes must match exactly.
func (cpu *CPUBackend) Copy(dst, src *tensor.RawTensor) {
	if !dst.Shape().Equal(src.Shape()) {
		panic(fmt.Sprintf("copy: shape mismatch %v vs %v", dst.Shape(), src.Shape()))
	}

	if dst.DType() == src.DType() {
		copy(dst.Data(), src.Data())
		return
	}

	// Cross-format copy. Master weight updates flow fp32 -> fp16 here.
	if err := dst.SetFloat32Values(src.Float32Values()); err != nil {
		panic(err)
	}
}
