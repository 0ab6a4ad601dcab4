package ops

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// SumOp represents a full reduction sum: output = sum(x), a scalar.
//
// Backward:
//
//	grad_x[i] = grad_y for every i
//
// Each input element contributes 1.0 to the output, so the scalar output
// gradient is broadcast to the input shape.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		input:  x,
		output: output,
	}
}

// Backward computes the input gradient for the scalar sum.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.input
	gradX, err := tensor.NewRaw(x.Shape(), x.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("sum backward: %v", err))
	}
	backend.Fill(gradX, scalarValue(outputGrad))
	return []*tensor.RawTensor{gradX}
}

// Inputs returns the input tensors [x].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the scalar output tensor.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}
