// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// The package wraps any tensor backend with a gradient tape: forward
// operations are recorded while the tape is on, and Backward walks the
// tape in reverse to produce gradients. The mixed precision optimizer is a
// consumer, not a dependency; any training loop that produces gradients
// can feed it.
//
// Example:
//
//	import (
//	    "github.com/tandem-ml/tandem/autodiff"
//	    "github.com/tandem-ml/tandem/backend/cpu"
//	    "github.com/tandem-ml/tandem/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    backend.Tape().StartRecording()
//
//	    x := tensor.RawFrom([]float32{2}, tensor.Shape{1}, tensor.Float32)
//	    y := backend.Mul(x, x) // y = x^2, recorded
//
//	    ones, _ := tensor.NewRaw(y.Shape(), y.DType(), backend.Device())
//	    backend.Fill(ones, 1)
//	    grads := backend.Tape().Backward(ones, backend)
//	    _ = grads[x] // dy/dx = 4
//	}
package autodiff

import (
	"github.com/tandem-ml/tandem/internal/autodiff"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Backend is the autodiff-enabled backend decorator.
//
// ScaleLoss records the loss-scale multiply so the backward pass produces
// scaled gradients; Cast, Scale, Fill and Copy are never recorded, keeping
// optimizer bookkeeping off the tape.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates an autodiff backend wrapping base.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
func New[B tensor.Backend](base B) *Backend[B] {
	return autodiff.New(base)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a standalone gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is the interface for backends that support a backward
// pass. Backend implements it.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients for t by walking the backend's tape in
// reverse. seed is filled into the output gradient; use 1 for a plain
// backward pass.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B, seed float64) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend, seed)
}
