package optim

import (
	"fmt"
	"math"

	"github.com/tandem-ml/tandem/internal/nn"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// ClipGradNorm scales the gradients of params so that their global L2 norm
// does not exceed maxNorm. It returns the norm measured before clipping.
//
// Parameters without a gradient are skipped. The squared norms accumulate
// in float64 regardless of tensor size.
func ClipGradNorm(params []*nn.Parameter, maxNorm float64) (float64, error) {
	if maxNorm <= 0 {
		return 0, fmt.Errorf("optim: max norm must be positive, got %v", maxNorm)
	}

	var totalSq float64
	var grads [][]float32
	for _, p := range params {
		g := p.Grad()
		if g == nil {
			continue
		}
		if g.DType() != tensor.Float32 {
			return 0, fmt.Errorf("optim: gradient for %q has dtype %s, want float32", p.Name(), g.DType())
		}
		data := g.AsFloat32()
		for _, v := range data {
			totalSq += float64(v) * float64(v)
		}
		grads = append(grads, data)
	}

	norm := math.Sqrt(totalSq)
	if norm <= maxNorm {
		return norm, nil
	}

	factor := float32(maxNorm / (norm + 1e-6))
	for _, data := range grads {
		for i := range data {
			data[i] *= factor
		}
	}
	return norm, nil
}
