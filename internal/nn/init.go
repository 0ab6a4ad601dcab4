package nn

import (
	"math"
	"math/rand"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// This initialization helps maintain variance of activations across layers.
// Values are sampled in float32 and narrowed when dtype is half precision.
func Xavier(fanIn, fanOut int, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	// Xavier/Glorot bound: sqrt(6 / (fan_in + fan_out))
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	vals := make([]float32, shape.NumElements())
	for i := range vals {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		vals[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}

	return tensor.RawFrom(vals, shape, dtype)
}
