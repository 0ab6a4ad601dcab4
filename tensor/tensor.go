// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor storage and backend
// dispatch in the Tandem training stack.
//
// The package defines the core types shared by every component:
//   - RawTensor: dtype-erased storage with copy-on-write buffers
//   - Tensor[T, B]: typed view over a RawTensor bound to a backend
//   - Backend: interface for device-specific compute implementations
//   - Shape, DataType, Device: core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.RawFrom([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.Float16)
//	y := backend.MulScalar(x, 2)
package tensor

import (
	"github.com/tandem-ml/tandem/internal/tensor"
)

// DType is the constraint for typed tensor element types.
// Supported types: float32, float64, int32, int64.
type DType = tensor.DType

// DataType represents the underlying element format of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32  DataType = tensor.Float32
	Float64  DataType = tensor.Float64
	Float16  DataType = tensor.Float16
	BFloat16 DataType = tensor.BFloat16
	Int32    DataType = tensor.Int32
	Int64    DataType = tensor.Int64
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a typed view over a RawTensor bound to a backend.
//
// T is the element type (float32, float64, int32, int64).
// B is the backend implementation (CPU, WebGPU, autodiff wrapper).
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Creation functions

// NewRaw creates a raw tensor with the given shape, element format, and
// device. The buffer starts zeroed.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// RawZeros creates a CPU raw tensor filled with zeros.
//
// Example:
//
//	x := tensor.RawZeros(tensor.Shape{2, 3}, tensor.BFloat16)
func RawZeros(shape Shape, dtype DataType) *RawTensor {
	return tensor.RawZeros(shape, dtype)
}

// RawFull creates a CPU raw tensor filled with value, narrowed to dtype.
func RawFull(shape Shape, value float64, dtype DataType) *RawTensor {
	return tensor.RawFull(shape, value, dtype)
}

// RawFrom creates a CPU raw tensor from float32 values, narrowed to dtype.
//
// Example:
//
//	x := tensor.RawFrom([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.Float16)
func RawFrom(values []float32, shape Shape, dtype DataType) *RawTensor {
	return tensor.RawFrom(values, shape, dtype)
}

// RawScalar creates a zero-dimensional CPU raw tensor holding value.
func RawScalar(value float32, dtype DataType) *RawTensor {
	return tensor.RawScalar(value, dtype)
}

// RawRandn creates a CPU raw tensor with values drawn from N(0, 1).
func RawRandn(shape Shape, dtype DataType) *RawTensor {
	return tensor.RawRandn(shape, dtype)
}

// New creates a typed tensor from a raw tensor.
//
// This is a low-level function. Most users should use FromSlice or the Raw
// creation functions instead.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// FromSlice creates a typed tensor from a Go slice.
//
// Example:
//
//	backend := cpu.New()
//	data := []float32{1, 2, 3, 4, 5, 6}
//	x, err := tensor.FromSlice(data, tensor.Shape{2, 3}, backend)
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// Utility functions

// BroadcastShapes computes the broadcast shape for two shapes following
// NumPy broadcasting rules. Returns the resulting shape and a flag
// indicating whether either operand needs expansion.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}

// Half precision conversions

// Float16From returns the float32 value of an IEEE 754 binary16 word.
func Float16From(h uint16) float32 {
	return tensor.Float16From(h)
}

// Float16Bits narrows a float32 to binary16 with round-to-nearest-even.
func Float16Bits(f float32) uint16 {
	return tensor.Float16Bits(f)
}

// BFloat16From returns the float32 value of a bfloat16 word.
func BFloat16From(b uint16) float32 {
	return tensor.BFloat16From(b)
}

// BFloat16Bits narrows a float32 to bfloat16 with round-to-nearest-even.
func BFloat16Bits(f float32) uint16 {
	return tensor.BFloat16Bits(f)
}
