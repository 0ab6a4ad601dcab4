package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Raw tensor constructors. These allocate host-resident tensors; backends
// tag their own device on operation results.

// RawZeros creates a zero-filled RawTensor.
//
// Example:
//
//	grad := tensor.RawZeros(tensor.Shape{128, 64}, tensor.Float32)
func RawZeros(shape Shape, dtype DataType) *RawTensor {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	// Data is already zero-initialized by make()
	return raw
}

// RawFull creates a RawTensor filled with a single value, narrowed to the
// element format.
func RawFull(shape Shape, value float64, dtype DataType) *RawTensor {
	raw := RawZeros(shape, dtype)
	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i := range data {
			data[i] = float32(value)
		}
	case Float64:
		data := raw.AsFloat64()
		for i := range data {
			data[i] = value
		}
	case Float16:
		w := Float16Bits(float32(value))
		data := raw.AsUint16()
		for i := range data {
			data[i] = w
		}
	case BFloat16:
		w := BFloat16Bits(float32(value))
		data := raw.AsUint16()
		for i := range data {
			data[i] = w
		}
	case Int32:
		data := raw.AsInt32()
		for i := range data {
			data[i] = int32(value)
		}
	case Int64:
		data := raw.AsInt64()
		for i := range data {
			data[i] = int64(value)
		}
	}
	return raw
}

// RawFrom creates a RawTensor from float32 values, narrowing to the element
// format. Panics if the value count does not match the shape.
func RawFrom(values []float32, shape Shape, dtype DataType) *RawTensor {
	raw := RawZeros(shape, dtype)
	if err := raw.SetFloat32Values(values); err != nil {
		panic(fmt.Sprintf("RawFrom: %v", err))
	}
	return raw
}

// RawScalar creates a zero-dimensional tensor holding one value.
func RawScalar(value float32, dtype DataType) *RawTensor {
	return RawFrom([]float32{value}, Shape{}, dtype)
}

// RawRandn creates a RawTensor with values drawn from a standard normal
// distribution using the Box-Muller transform. Float formats only.
// Note: uses math/rand (not crypto/rand), appropriate for ML initialization.
func RawRandn(shape Shape, dtype DataType) *RawTensor {
	if !dtype.IsFloat() {
		panic("RawRandn only supports float formats")
	}
	n := shape.NumElements()
	vals := make([]float32, n)
	for i := 0; i < n; i += 2 {
		u1 := rand.Float64() //nolint:gosec // G404: ML uses math/rand intentionally for reproducibility
		u2 := rand.Float64() //nolint:gosec // G404: ML uses math/rand intentionally for reproducibility
		r := math.Sqrt(-2.0 * math.Log(u1))
		vals[i] = float32(r * math.Cos(2.0*math.Pi*u2))
		if i+1 < n {
			vals[i+1] = float32(r * math.Sin(2.0*math.Pi*u2))
		}
	}
	return RawFrom(vals, shape, dtype)
}
