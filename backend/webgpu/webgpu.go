//go:build windows

// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated tensor
// operations.
//
// Half precision tensors are bound to WGSL kernels as packed 32-bit words:
// float16 pairs go through pack2x16float/unpack2x16float, bfloat16 pairs
// through bit shifts with round-to-nearest-even on the way back. Results
// match the CPU backend's narrowing exactly.
//
// Example:
//
//	import (
//	    "github.com/tandem-ml/tandem/backend/cpu"
//	    "github.com/tandem-ml/tandem/backend/webgpu"
//	    "github.com/tandem-ml/tandem/tensor"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    x := tensor.RawRandn(tensor.Shape{1024, 1024}, tensor.Float16)
//	    y := gpu.MatMul(x, x)
//	    _ = y
//	}
package webgpu

import (
	internalwebgpu "github.com/tandem-ml/tandem/internal/backend/webgpu"
	"github.com/tandem-ml/tandem/tensor"
)

// Backend represents the WebGPU backend implementation for GPU-accelerated
// tensor operations.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a WebGPU backend.
//
// This function initializes the WebGPU device and returns a backend ready
// for tensor operations. Call Release when done to free GPU resources.
//
// Returns an error if WebGPU initialization fails (no compatible adapter,
// missing wgpu-native runtime).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter can be initialized on this
// system. Useful for graceful fallback to the CPU backend.
//
// Example:
//
//	var backend tensor.Backend = cpu.New()
//	if webgpu.IsAvailable() {
//	    gpu, err := webgpu.New()
//	    if err == nil {
//	        backend = gpu
//	    }
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
