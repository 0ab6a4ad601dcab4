package ops

import "github.com/tandem-ml/tandem/internal/tensor"

// TransposeOp represents a 2D transpose operation.
//
// Forward:
//
//	output = input^T
//
// Backward:
//
//	∂L/∂input = (∂L/∂output)^T
//
// A 2D transpose is its own inverse, so the gradient is just the
// transposed output gradient.
type TransposeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(input, output *tensor.RawTensor) *TransposeOp {
	return &TransposeOp{
		input:  input,
		output: output,
	}
}

// Backward computes the input gradient for transpose.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Transpose(outputGrad)}
}

// Inputs returns the input tensors.
func (op *TransposeOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *TransposeOp) Output() *tensor.RawTensor {
	return op.output
}
