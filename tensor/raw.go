// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/tandem-ml/tandem/internal/tensor"
)

// RawTensor is the low-level, dtype-erased tensor representation.
//
// RawTensor provides:
//   - Shape and format information via Shape(), DType(), Device()
//   - Typed data access via AsFloat32(), AsUint16(), AsInt64()
//   - Float32 interchange for any format via Float32Values()
//   - Copy-on-write semantics via Clone()
//   - Reference counting via Release()
//
// All backend kernels and the mixed precision machinery operate on
// RawTensors; the element format travels in DType() rather than the Go
// type system, so a float16 parameter and its float32 master share one
// representation.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float16, tensor.CPU)
//	words := raw.AsUint16()   // packed binary16 storage
//	vals := raw.Float32Values() // widened interchange copy
type RawTensor = tensor.RawTensor
