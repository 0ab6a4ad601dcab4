package amp

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/tandem-ml/tandem/internal/parallel"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// StepResult reports the outcome of one optimization step.
type StepResult struct {
	// Stepped reports whether the base optimizer ran and the live
	// parameters were refreshed from their masters. False means the step
	// was skipped after group-wide overflow agreement; gradients are
	// released and nothing was updated.
	Stepped bool

	// GradNorm is the global gradient norm measured before clipping.
	// Only meaningful when HasGradNorm is true, which requires a
	// successful step with clipping configured.
	GradNorm float64

	// HasGradNorm reports whether GradNorm carries a value.
	HasGradNorm bool
}

// copyPool fans the batched master-to-live copy out across tensors. One
// index is one whole tensor, so chunking below a single pair makes no
// sense.
var copyPool = parallel.Config{
	Enabled:      runtime.NumCPU() > 1,
	NumWorkers:   runtime.NumCPU(),
	MinChunkSize: 1,
}

// Step runs one mixed precision optimization step:
//
//  1. move each live gradient onto its master, widened to float32,
//  2. unscale every gradient in place,
//  3. agree on the overflow flag across the data parallel and model
//     parallel groups,
//  4. advance the scaler with the agreed flag,
//  5. on overflow release all gradients and skip,
//  6. otherwise clip, run the base optimizer, and narrow the updated
//     masters back into the lives.
//
// ctx bounds only the reduction rendezvous; the rest of the step does not
// block. A reduction error aborts the step before any parameter changed.
func (o *MixedPrecisionOptimizer) Step(ctx context.Context) (StepResult, error) {
	o.assignGradsToMasters()
	o.unscaleGrads()

	overflow, err := o.checkOverflow(ctx)
	if err != nil {
		return StepResult{}, err
	}

	// The scaler observes every step, skipped or not, so its growth and
	// hysteresis bookkeeping stays aligned across ranks.
	o.scaler.Update(overflow)

	if overflow {
		o.ZeroGrad()
		if o.verbose {
			o.log.Info("step skipped on gradient overflow", "scale", o.scaler.Scale())
		}
		return StepResult{Stepped: false}, nil
	}

	result := StepResult{Stepped: true}
	if o.clipGradNorm > 0 {
		norm, err := o.clipGradients(ctx)
		if err != nil {
			return StepResult{}, err
		}
		result.GradNorm = norm
		result.HasGradNorm = true
	}

	if err := o.base.Step(); err != nil {
		return StepResult{}, fmt.Errorf("amp: base optimizer step: %w", err)
	}

	o.updateLivesFromMasters()
	return result, nil
}

// Backward multiplies the loss by the current scale and runs the configured
// backward pass. Scaling before backpropagation is what lifts small true
// gradients into half precision's representable range.
func (o *MixedPrecisionOptimizer) Backward(loss *tensor.RawTensor) error {
	if o.backward == nil {
		return fmt.Errorf("amp: Backward called without a backward function configured")
	}
	return o.backward(loss, o.scaler.Scale())
}

// ZeroGrad releases every gradient to nil across the masters, the float32
// parameters and the half precision lives, reclaiming the memory rather
// than zero-filling it.
func (o *MixedPrecisionOptimizer) ZeroGrad() {
	for _, group := range o.masterGroups {
		for _, p := range group {
			o.tracer.ReleaseTensor(p.Grad())
		}
	}
	o.base.ZeroGrad()
	for _, group := range o.halfGroups {
		for _, p := range group {
			p.ZeroGrad()
		}
	}
}

// assignGradsToMasters moves each live parameter's accumulated gradient to
// its master as a float32 copy and clears the live gradient, which would
// otherwise double the gradient residency for the rest of the step.
func (o *MixedPrecisionOptimizer) assignGradsToMasters() {
	for g := range o.halfGroups {
		for i, live := range o.halfGroups[g] {
			grad := live.Grad()
			if grad == nil {
				continue
			}
			master := o.masterGroups[g][i]
			wide := o.backend.Cast(grad, tensor.Float32)
			o.tracer.AddTensor(wide)
			master.SetGrad(wide)
			live.ZeroGrad()
		}
	}
}

// unscaleGrads multiplies every master and standalone float32 gradient in
// place by the inverse scale, recovering true-magnitude gradients from the
// scaled-loss backward pass.
func (o *MixedPrecisionOptimizer) unscaleGrads() {
	inv := o.scaler.InvScale()
	for g := range o.masterGroups {
		for _, p := range o.masterGroups[g] {
			if grad := p.Grad(); grad != nil {
				o.backend.Scale(grad, inv)
			}
		}
		for _, p := range o.fullGroups[g] {
			if grad := p.Grad(); grad != nil {
				o.backend.Scale(grad, inv)
			}
		}
	}
}

// checkOverflow scans every gradient the base optimizer can see for a
// non-finite value and combines the result across the data parallel group,
// then the model parallel group, by max reduction. The flag after both
// reductions is authoritative: every rank observes the same value, so every
// rank takes the same branch.
func (o *MixedPrecisionOptimizer) checkOverflow(ctx context.Context) (bool, error) {
	var flag float32
	for _, group := range o.base.Groups() {
		for _, p := range group.Params {
			grad := p.Grad()
			if grad == nil {
				continue
			}
			if o.backend.HasNonFinite(grad) {
				flag = 1
				break
			}
		}
	}

	if o.dpGroup != nil {
		if err := o.dpGroup.AllReduceMax(ctx, &flag); err != nil {
			return false, fmt.Errorf("amp: overflow reduction over data parallel group: %w", err)
		}
	}
	if o.mpGroup != nil {
		if err := o.mpGroup.AllReduceMax(ctx, &flag); err != nil {
			return false, fmt.Errorf("amp: overflow reduction over model parallel group: %w", err)
		}
	}
	return flag > 0, nil
}

// clipGradients caps the global gradient norm at the configured maximum and
// returns the norm measured before clipping. The squared norm is summed
// over the model parallel group first, so partitioned parameters clip
// against the true global norm rather than each partition's share.
func (o *MixedPrecisionOptimizer) clipGradients(ctx context.Context) (float64, error) {
	var grads []*tensor.RawTensor
	var sumSq float64
	for _, group := range o.base.Groups() {
		for _, p := range group.Params {
			grad := p.Grad()
			if grad == nil {
				continue
			}
			sumSq += o.backend.SumSquares(grad)
			grads = append(grads, grad)
		}
	}

	if o.mpGroup != nil {
		if err := o.mpGroup.AllReduceSum(ctx, &sumSq); err != nil {
			return 0, fmt.Errorf("amp: gradient norm reduction over model parallel group: %w", err)
		}
	}

	norm := math.Sqrt(sumSq)
	if norm > o.clipGradNorm {
		factor := o.clipGradNorm / (norm + 1e-6)
		for _, grad := range grads {
			o.backend.Scale(grad, factor)
		}
	}
	return norm, nil
}

// updateLivesFromMasters narrows every master's updated value back into its
// paired live parameter.
func (o *MixedPrecisionOptimizer) updateLivesFromMasters() {
	var src, dst []*tensor.RawTensor
	for g := range o.halfGroups {
		for i := range o.halfGroups[g] {
			dst = append(dst, o.halfGroups[g][i].Value())
			src = append(src, o.masterGroups[g][i].Value())
		}
	}
	multiCopy(o.backend, src, dst, o.overflowBuf)
}

// multiCopy copies values position for position. With a scratch overflow
// buffer present the pairs are swept in one parallel batch; without one
// they fall back to sequential per-pair copies. Both paths produce
// identical values.
func multiCopy(b tensor.Backend, src, dst []*tensor.RawTensor, overflowBuf *tensor.RawTensor) {
	if overflowBuf != nil {
		b.Fill(overflowBuf, 0)
		parallel.For(len(src), func(i int) {
			b.Copy(dst[i], src[i])
		}, copyPool)
		return
	}
	for i := range src {
		b.Copy(dst[i], src[i])
	}
}
