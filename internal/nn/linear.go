package nn

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization and stored in
// the requested dtype, so a float16 Linear holds genuinely narrow weights.
// Biases are initialized to zeros.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(784, 128, tensor.Float16, backend)
//
//	input := tensor.RawRandn(tensor.Shape{32, 784}, tensor.Float16)
//	output := layer.Forward(input) // shape: [32, 128]
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]
	backend     tensor.Backend
}

// NewLinear creates a new Linear layer with parameters in dtype.
func NewLinear(inFeatures, outFeatures int, dtype tensor.DataType, backend tensor.Backend) *Linear {
	// Weight: [out_features, in_features]
	weightShape := tensor.Shape{outFeatures, inFeatures}
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, weightShape, dtype))

	// Bias: [out_features]
	bias := NewParameter("bias", tensor.RawZeros(tensor.Shape{outFeatures}, dtype))

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes y = x @ W.T + b.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	// [batch, in] @ [in, out] = [batch, out]
	wT := l.backend.Transpose(l.weight.Value())
	output := l.backend.MatMul(input, wT)

	if l.bias != nil {
		// [batch, out] + [out] broadcasts over rows.
		output = l.backend.Add(output, l.bias.Value())
	}

	return output
}

// Parameters returns the trainable parameters of this layer.
//
// Returns [weight, bias] if bias is present, otherwise [weight].
func (l *Linear) Parameters() []*Parameter {
	if l.bias != nil {
		return []*Parameter{l.weight, l.bias}
	}
	return []*Parameter{l.weight}
}

// InFeatures returns the input width.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output width.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter, or nil when the layer has none.
func (l *Linear) Bias() *Parameter {
	return l.bias
}
