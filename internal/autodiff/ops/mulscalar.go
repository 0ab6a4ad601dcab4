package ops

import "github.com/tandem-ml/tandem/internal/tensor"

// MulScalarOp represents a scalar multiplication operation: output = x * alpha.
//
// Backward pass:
//
//	d(x*alpha)/dx = alpha, so grad_x = outputGrad * alpha
//
// Loss scaling records through here: scaling the loss by the current loss
// scale makes every parameter gradient carry the same factor.
type MulScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	alpha  float64
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(x, output *tensor.RawTensor, alpha float64) *MulScalarOp {
	return &MulScalarOp{
		input:  x,
		output: output,
		alpha:  alpha,
	}
}

// Backward computes the input gradient for scalar multiplication.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.alpha)}
}

// Inputs returns the input tensors [x].
func (op *MulScalarOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor x * alpha.
func (op *MulScalarOp) Output() *tensor.RawTensor {
	return op.output
}
