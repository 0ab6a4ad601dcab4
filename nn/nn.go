// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/tandem-ml/tandem/internal/nn"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Module is the interface implemented by all network building blocks.
type Module = nn.Module

// Parameter represents a trainable parameter. Every parameter carries an
// integer ID unique for the process lifetime; optimizer state is keyed by
// that ID, never by tensor identity, which is what makes the master-weight
// substitution in the amp package transparent.
type Parameter = nn.Parameter

// ParallelMeta describes how a parameter is partitioned across a model
// parallel group. The zero value means the parameter is replicated.
type ParallelMeta = nn.ParallelMeta

// NewParameter creates a trainable parameter around value.
func NewParameter(name string, value *tensor.RawTensor) *Parameter {
	return nn.NewParameter(name, value)
}

// Linear is a fully connected layer computing y = x @ W.T + b. Weights are
// stored in the requested dtype, so a float16 Linear holds genuinely
// narrow weights.
type Linear = nn.Linear

// NewLinear creates a Linear layer with parameters in dtype.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(784, 128, tensor.Float16, backend)
//
//	input := tensor.RawRandn(tensor.Shape{32, 784}, tensor.Float16)
//	output := layer.Forward(input) // shape: [32, 128]
func NewLinear(inFeatures, outFeatures int, dtype tensor.DataType, backend tensor.Backend) *Linear {
	return nn.NewLinear(inFeatures, outFeatures, dtype, backend)
}

// Sequential chains modules, feeding each output to the next module.
type Sequential = nn.Sequential

// NewSequential creates a Sequential container from modules in call order.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(8, 16, tensor.Float16, backend),
//	    nn.NewLinear(16, 1, tensor.Float16, backend),
//	)
func NewSequential(modules ...Module) *Sequential {
	return nn.NewSequential(modules...)
}

// Xavier returns a tensor initialized with Xavier/Glorot uniform values
// for the given fan-in and fan-out, stored in dtype.
func Xavier(fanIn, fanOut int, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	return nn.Xavier(fanIn, fanOut, shape, dtype)
}

// AssignGrads moves tape gradients onto their parameters. Parameters whose
// value has no entry in grads are left untouched; parameters reached more
// than once accumulate.
func AssignGrads(params []*Parameter, grads map[*tensor.RawTensor]*tensor.RawTensor, backend tensor.Backend) {
	nn.AssignGrads(params, grads, backend)
}
