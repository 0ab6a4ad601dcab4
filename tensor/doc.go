// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides tensor storage and backend dispatch for the
// Tandem training stack.
//
// # Overview
//
// Tensors are the fundamental data structure in Tandem. This package
// provides:
//   - Dtype-erased raw tensors with copy-on-write buffers
//   - Typed generic views (Tensor[T, B])
//   - Half precision storage (float16, bfloat16) with round-to-nearest-even
//     conversions
//   - Device abstraction (CPU, WebGPU)
//
// # Basic Usage
//
//	import (
//	    "github.com/tandem-ml/tandem/backend/cpu"
//	    "github.com/tandem-ml/tandem/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    // Half precision storage with float32 interchange
//	    x := tensor.RawFrom([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.Float16)
//	    y := tensor.RawRandn(tensor.Shape{2, 2}, tensor.Float16)
//
//	    // Kernels dispatch through the backend
//	    z := backend.Add(x, y)
//	    _ = z.Float32Values()
//	}
//
// # Element Formats
//
// RawTensor stores elements in one of six formats:
//   - float32, float64 (full precision)
//   - float16, bfloat16 (half precision, used for parameters and
//     activations in mixed precision training)
//   - int32, int64 (counters and index data)
//
// Half precision values are held as packed 16-bit words. Reads widen to
// float32; writes narrow with round-to-nearest-even, so storing and
// re-reading a value rounds exactly once.
//
// # Broadcasting
//
// Element-wise operations follow NumPy broadcasting rules:
//
//	a := tensor.RawZeros(tensor.Shape{3, 1}, tensor.Float32)    // (3, 1)
//	b := tensor.RawZeros(tensor.Shape{3, 4}, tensor.Float32)    // (3, 4)
//	c := backend.Add(a, b)                                      // (3, 4)
//
// # Memory Management
//
// RawTensors share buffers on Clone and detach lazily: writing to a shared
// buffer first copies it. Release returns the buffer once the last
// reference drops.
//
// # Mixed Precision
//
// The amp package keeps float32 master copies of half precision parameters
// and moves values across formats with Backend.Cast and Backend.Copy.
// HasNonFinite is the overflow scan that decides whether a training step
// commits or skips.
package tensor
