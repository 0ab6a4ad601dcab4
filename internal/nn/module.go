// Package nn implements neural network modules for the Tandem training core.
//
// This package provides the building blocks the mixed precision optimizer
// operates on:
//   - Module interface: Base interface for all NN components
//   - Parameter: Trainable parameters with gradient tracking and stable IDs
//   - Linear: Fully connected layer
//   - Sequential: Container for stacking layers
//
// Design inspired by PyTorch's nn.Module, with the backend passed
// explicitly instead of captured in type parameters.
package nn

import (
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Modules can be composed to build networks:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, tensor.Float16, backend),
//	    nn.NewLinear(128, 10, tensor.Float16, backend),
//	)
type Module interface {
	// Forward computes the output of the module given an input tensor.
	//
	// The input should have the appropriate shape for this module.
	// For example, Linear expects [batch_size, in_features].
	Forward(input *tensor.RawTensor) *tensor.RawTensor

	// Parameters returns all trainable parameters of this module.
	//
	// This includes weights, biases, and any nested module parameters.
	// Returns an empty slice for modules without trainable parameters.
	Parameters() []*Parameter
}

// AssignGrads routes gradients produced by a backward pass onto the
// parameters whose value tensors they belong to, accumulating into any
// gradient already present. Parameters without an entry keep their
// current gradient.
func AssignGrads(params []*Parameter, grads map[*tensor.RawTensor]*tensor.RawTensor, backend tensor.Backend) {
	for _, p := range params {
		if g, ok := grads[p.Value()]; ok {
			p.AccumulateGrad(g, backend)
		}
	}
}
