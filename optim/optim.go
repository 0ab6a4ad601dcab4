// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/tandem-ml/tandem/internal/nn"
	"github.com/tandem-ml/tandem/internal/optim"
)

// Optimizer is the base interface for all optimization algorithms. The amp
// package wraps any Optimizer for mixed precision training.
type Optimizer = optim.Optimizer

// Group is a set of parameters sharing hyperparameters.
type Group = optim.Group

// NewGroup creates a parameter group with the given learning rate and no
// weight decay.
func NewGroup(params []*nn.Parameter, lr float64) *Group {
	return optim.NewGroup(params, lr)
}

// State stores per-parameter slot tensors keyed by parameter ID.
type State = optim.State

// StateDict is a deep snapshot of optimizer state for checkpointing.
type StateDict = optim.StateDict

// GroupState is the per-group portion of a StateDict.
type GroupState = optim.GroupState

// SGD (Stochastic Gradient Descent)

// SGD implements stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig holds SGD hyperparameters.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
//
// Example:
//
//	model := nn.NewLinear(784, 10, tensor.Float32, backend)
//	opt := optim.NewSGD(
//	    []*optim.Group{optim.NewGroup(model.Parameters(), 0.01)},
//	    optim.SGDConfig{Momentum: 0.9},
//	)
func NewSGD(groups []*Group, config SGDConfig) *SGD {
	return optim.NewSGD(groups, config)
}

// Adam (Adaptive Moment Estimation)

// Adam implements the Adam optimizer with bias correction.
type Adam = optim.Adam

// AdamConfig holds Adam hyperparameters. Zero values fall back to the
// conventional defaults.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer.
//
// Example:
//
//	opt := optim.NewAdam(
//	    []*optim.Group{optim.NewGroup(model.Parameters(), 0.001)},
//	    optim.AdamConfig{Beta1: 0.9, Beta2: 0.999, Eps: 1e-8},
//	)
func NewAdam(groups []*Group, config AdamConfig) *Adam {
	return optim.NewAdam(groups, config)
}

// ClipGradNorm scales every gradient so the global L2 norm does not exceed
// maxNorm. Returns the norm measured before clipping.
func ClipGradNorm(params []*nn.Parameter, maxNorm float64) (float64, error) {
	return optim.ClipGradNorm(params, maxNorm)
}
