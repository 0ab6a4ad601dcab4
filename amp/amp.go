// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package amp

import (
	"github.com/tandem-ml/tandem/internal/amp"
	"github.com/tandem-ml/tandem/internal/optim"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Loss scaling

// GradScaler is the interface shared by dynamic and constant loss scalers.
type GradScaler = amp.GradScaler

// ScalerConfig holds dynamic scaler hyperparameters.
type ScalerConfig = amp.ScalerConfig

// ScalerSnapshot is a point-in-time copy of scaler state for checkpointing.
type ScalerSnapshot = amp.ScalerSnapshot

// DefaultScalerConfig returns the conventional dynamic scaling settings:
// initial scale 65536, growth factor 2 every 1000 clean steps, backoff
// factor 0.5, and hysteresis 2.
func DefaultScalerConfig() ScalerConfig {
	return amp.DefaultScalerConfig()
}

// DynamicGradScaler adjusts the loss scale from observed overflows.
type DynamicGradScaler = amp.DynamicGradScaler

// NewDynamicGradScaler creates a dynamic loss scaler.
//
// Example:
//
//	scaler, err := amp.NewDynamicGradScaler(amp.DefaultScalerConfig())
func NewDynamicGradScaler(cfg ScalerConfig) (*DynamicGradScaler, error) {
	return amp.NewDynamicGradScaler(cfg)
}

// ConstGradScaler applies a fixed loss scale and never adjusts it.
type ConstGradScaler = amp.ConstGradScaler

// NewConstGradScaler creates a constant scaler. Use scale 1 to disable loss
// scaling entirely, as bfloat16 training typically does.
func NewConstGradScaler(scale float64) (*ConstGradScaler, error) {
	return amp.NewConstGradScaler(scale)
}

// Mixed precision optimizer

// BackwardFunc computes gradients for a loss scaled by the given factor.
type BackwardFunc = amp.BackwardFunc

// Config configures a MixedPrecisionOptimizer.
type Config = amp.Config

// StepResult reports what a Step call did.
type StepResult = amp.StepResult

// StateDict is a deep snapshot of the wrapper, its scaler, the master
// weights, and the inner optimizer state.
type StateDict = amp.StateDict

// MixedPrecisionOptimizer wraps an optimizer to train low precision
// parameters against float32 master copies.
type MixedPrecisionOptimizer = amp.MixedPrecisionOptimizer

// NewMixedPrecisionOptimizer wraps base so that updates apply to float32
// master weights, with loss scaling and overflow skipping handled by scaler.
//
// Example:
//
//	base := optim.NewSGD([]*optim.Group{optim.NewGroup(params, 0.01)}, optim.SGDConfig{})
//	scaler, _ := amp.NewDynamicGradScaler(amp.DefaultScalerConfig())
//	opt, err := amp.NewMixedPrecisionOptimizer(base, scaler, backend, amp.Config{
//	    ClipGradNorm: 1.0,
//	})
func NewMixedPrecisionOptimizer(base optim.Optimizer, scaler GradScaler, backend tensor.Backend, cfg Config) (*MixedPrecisionOptimizer, error) {
	return amp.NewMixedPrecisionOptimizer(base, scaler, backend, cfg)
}
