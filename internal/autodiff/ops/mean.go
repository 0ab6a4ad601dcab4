package ops

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// MeanOp represents a full reduction mean: output = mean(x), a scalar.
//
// Backward:
//
//	grad_x[i] = grad_y / N for every i
//
// where N is the number of input elements. Training losses reduce through
// here, which makes the seed gradient of a scaled loss spread evenly.
type MeanOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(x, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{
		input:  x,
		output: output,
	}
}

// Backward computes the input gradient for the scalar mean.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.input
	gradX, err := tensor.NewRaw(x.Shape(), x.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("mean backward: %v", err))
	}
	backend.Fill(gradX, scalarValue(outputGrad)/float64(x.NumElements()))
	return []*tensor.RawTensor{gradX}
}

// Inputs returns the input tensors [x].
func (op *MeanOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the scalar output tensor.
func (op *MeanOp) Output() *tensor.RawTensor {
	return op.output
}
