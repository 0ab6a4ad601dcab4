// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training neural networks.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Parameter groups with per-group learning rates and weight decay
//   - Optimizer interface for custom optimizers
//   - ClipGradNorm for global gradient norm clipping
//
// # Basic Usage
//
//	import (
//	    "github.com/tandem-ml/tandem/backend/cpu"
//	    "github.com/tandem-ml/tandem/nn"
//	    "github.com/tandem-ml/tandem/optim"
//	    "github.com/tandem-ml/tandem/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    model := nn.NewLinear(784, 10, tensor.Float32, backend)
//
//	    // Create optimizer
//	    opt := optim.NewAdam(
//	        []*optim.Group{optim.NewGroup(model.Parameters(), 0.001)},
//	        optim.AdamConfig{Beta1: 0.9, Beta2: 0.999},
//	    )
//
//	    // Training loop
//	    for step := range 100 {
//	        // Forward pass, backward pass, then:
//	        if err := opt.Step(); err != nil {
//	            log.Fatal(err)
//	        }
//	        opt.ZeroGrad()
//	    }
//	}
//
// # Parameter Groups
//
// Each group carries its own learning rate and weight decay. Split a model
// into groups to decay weights but not biases:
//
//	decay := optim.NewGroup(weights, 0.001)
//	decay.WeightDecay = 0.01
//	noDecay := optim.NewGroup(biases, 0.001)
//	opt := optim.NewAdam([]*optim.Group{decay, noDecay}, optim.AdamConfig{})
//
// # Gradient Clipping
//
// ClipGradNorm rescales all gradients in place when the global L2 norm
// exceeds the threshold:
//
//	norm, err := optim.ClipGradNorm(model.Parameters(), 1.0)
//
// # Checkpointing
//
// StateDict captures momentum buffers and step counts for exact resume:
//
//	dict, err := opt.StateDict()
//	// ... save, restore, then:
//	err = opt.LoadStateDict(dict)
//
// Optimizer state lives in float32 regardless of the parameter dtype, so a
// checkpoint taken during float16 training restores bit-exactly.
//
// # Mixed Precision
//
// Wrap any Optimizer with amp.NewMixedPrecisionOptimizer to train float16 or
// bfloat16 models against float32 master weights. The wrapper owns loss
// scaling and overflow handling; the inner optimizer only ever sees float32.
package optim
