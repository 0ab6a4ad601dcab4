// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go kernels (no CGO)
//   - Worker-pool chunking across runtime.NumCPU() goroutines
//   - Native half precision arithmetic: float16 and bfloat16 operands are
//     widened to float32 per element, computed, and narrowed back with
//     round-to-nearest-even
//   - Float64 accumulation for reductions, so overflow scans and gradient
//     norms stay exact even over half precision buffers
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
//	    x := tensor.RawRandn(tensor.Shape{32, 8}, tensor.Float16)
//	    w := tensor.RawRandn(tensor.Shape{8, 4}, tensor.Float16)
//	    y := backend.MatMul(x, w)
//
//	    if backend.HasNonFinite(y) {
//	        // overflow: the mixed precision step skips and backs off
//	    }
//	}
//
// # Thread Safety
//
// The backend itself is stateless apart from its worker pool and is safe
// for concurrent use. Concurrent kernels on the same RawTensor follow the
// usual rule: any number of readers, or one writer.
package cpu
