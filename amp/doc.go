// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package amp provides automatic mixed precision training.
//
// # Overview
//
// This package contains:
//   - MixedPrecisionOptimizer: wraps any optimizer so half precision
//     parameters are updated through float32 master copies
//   - DynamicGradScaler: loss scaling that grows on clean steps and backs
//     off on overflow
//   - ConstGradScaler: fixed loss scale, including scale 1 for bfloat16
//   - Distributed overflow agreement so every rank skips the same steps
//
// # Basic Usage
//
//	import (
//	    "github.com/tandem-ml/tandem/amp"
//	    "github.com/tandem-ml/tandem/backend/cpu"
//	    "github.com/tandem-ml/tandem/nn"
//	    "github.com/tandem-ml/tandem/optim"
//	    "github.com/tandem-ml/tandem/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    model := nn.NewLinear(784, 10, tensor.Float16, backend)
//	    params := model.Parameters()
//
//	    base := optim.NewSGD(
//	        []*optim.Group{optim.NewGroup(params, 0.01)},
//	        optim.SGDConfig{Momentum: 0.9},
//	    )
//	    scaler, _ := amp.NewDynamicGradScaler(amp.DefaultScalerConfig())
//	    opt, err := amp.NewMixedPrecisionOptimizer(base, scaler, backend, amp.Config{
//	        ClipGradNorm: 1.0,
//	        Backward: func(loss *tensor.RawTensor, scale float64) error {
//	            scaled := backend.ScaleLoss(loss, scale)
//	            // seed the tape with ones and assign gradients
//	            return runBackward(scaled)
//	        },
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    for step := range 100 {
//	        loss := forwardPass(model, batch(step))
//	        opt.Backward(loss)
//	        res, err := opt.Step(context.Background())
//	        if err != nil {
//	            log.Fatal(err)
//	        }
//	        if !res.Stepped {
//	            // overflow: scale backed off, no parameters changed
//	        }
//	        opt.ZeroGrad()
//	    }
//	}
//
// # How a Step Works
//
// Each Step moves the scaled half precision gradients onto the float32
// masters, unscales them in full precision, and checks every gradient for
// Inf or NaN. The overflow flag is max-reduced across the data parallel
// group and then the model parallel group, so all ranks agree. On a clean
// step the base optimizer runs against the masters and the results are
// narrowed back into the live parameters; on overflow nothing is applied
// anywhere and the scaler backs off. A skipped step is atomic: parameters,
// optimizer state, and step counts are all untouched.
//
// # Scaler Behavior
//
// The dynamic scaler doubles the scale after GrowthInterval consecutive
// clean steps and multiplies by BackoffFactor after Hysteresis consecutive
// overflows. Transient single-step spikes cost a skipped step but leave the
// scale alone. Scale 1 with a ConstGradScaler disables scaling for bfloat16
// runs, whose exponent range matches float32.
//
// # Checkpointing
//
// StateDict captures the masters, the inner optimizer state, and the scaler
// snapshot in one structure:
//
//	dict, err := opt.StateDict()
//	// persist with the serialization package, later:
//	err = opt.LoadStateDict(dict)
//
// Restoring reproduces training bit-for-bit, including the scale growth
// countdown and overflow hysteresis.
package amp
