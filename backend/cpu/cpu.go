// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/tandem-ml/tandem/internal/backend/cpu"
	"github.com/tandem-ml/tandem/tensor"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend provides pure Go implementations of all tensor kernels
// with worker-pool chunking for large buffers.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend that fans large kernels out across
// runtime.NumCPU() workers.
//
// Example:
//
//	import (
//	    "github.com/tandem-ml/tandem/backend/cpu"
//	    "github.com/tandem-ml/tandem/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.RawRandn(tensor.Shape{2, 3}, tensor.Float16)
//	    y := backend.MulScalar(x, 2)
//	    _ = y
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that runs every kernel on the calling
// goroutine. Useful for deterministic single-threaded profiling and for
// tests that must not spawn workers.
func NewSequential() *Backend {
	return internalcpu.NewSequential()
}
