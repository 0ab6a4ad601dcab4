// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network building blocks for training.
//
// # Overview
//
// This package contains:
//   - Parameter: trainable tensors with process-unique identities
//   - Linear: fully connected layer with dtype-selectable weights
//   - Sequential: module chaining container
//   - AssignGrads: bridge from autodiff tape output to parameters
//
// # Basic Usage
//
//	import (
//	    "github.com/tandem-ml/tandem/autodiff"
//	    "github.com/tandem-ml/tandem/backend/cpu"
//	    "github.com/tandem-ml/tandem/nn"
//	    "github.com/tandem-ml/tandem/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//
//	    model := nn.NewSequential(
//	        nn.NewLinear(8, 16, tensor.Float16, backend),
//	        nn.NewLinear(16, 1, tensor.Float16, backend),
//	    )
//
//	    backend.Tape().StartRecording()
//	    input := tensor.RawRandn(tensor.Shape{32, 8}, tensor.Float16)
//	    output := model.Forward(input)
//	    _ = output
//	}
//
// # Half Precision Parameters
//
// A Linear built with tensor.Float16 or tensor.BFloat16 stores genuinely
// narrow weights. The amp package pairs each half precision parameter with
// a float32 master copy for the update; Parameter.NewMaster performs that
// widening clone.
//
// # Gradients
//
// Gradients are allocated on first assignment and keyed to the parameter,
// not the tape. After the tape's backward pass:
//
//	grads := backend.Tape().Backward(ones, backend)
//	nn.AssignGrads(model.Parameters(), grads, backend)
package nn
