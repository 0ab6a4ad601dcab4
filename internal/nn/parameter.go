package nn

import (
	"fmt"
	"sync/atomic"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// paramIDs hands out process-unique parameter identities.
var paramIDs atomic.Int64

// ParallelMeta describes how a parameter is partitioned across a model
// parallel group. The zero value means the parameter is replicated.
type ParallelMeta struct {
	TensorParallel bool // Whether the parameter is split across ranks.
	PartitionDim   int  // Dimension along which it is split.
	NumPartitions  int  // Number of ranks holding a slice.
}

// Parameter represents a trainable parameter in a neural network.
//
// Parameters are tensors that require gradient computation during training.
// They typically represent weights and biases of layers. Every parameter
// carries an integer ID that is unique for the process lifetime; optimizer
// state is keyed by that ID, never by tensor identity.
//
// Example:
//
//	// Create a weight parameter
//	weight := nn.NewParameter("weight", weightTensor)
//
//	// Access the value tensor
//	w := weight.Value()
//
//	// Get gradient after backward pass
//	grad := weight.Grad()
type Parameter struct {
	id           int
	name         string            // Parameter name (e.g., "weight", "bias")
	value        *tensor.RawTensor // The parameter tensor
	grad         *tensor.RawTensor // Gradient tensor (computed during backward pass)
	requiresGrad bool
	meta         ParallelMeta
}

// NewParameter creates a new trainable parameter.
//
// The value tensor should be initialized before creating the Parameter.
// Gradient is allocated during the first backward pass.
func NewParameter(name string, value *tensor.RawTensor) *Parameter {
	return &Parameter{
		id:           int(paramIDs.Add(1)),
		name:         name,
		value:        value,
		grad:         nil, // Gradient allocated on first backward pass
		requiresGrad: true,
	}
}

// ID returns the process-unique parameter identity.
func (p *Parameter) ID() int {
	return p.id
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter tensor.
func (p *Parameter) Value() *tensor.RawTensor {
	return p.value
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been computed yet (before backward pass).
func (p *Parameter) Grad() *tensor.RawTensor {
	return p.grad
}

// SetGrad sets the gradient tensor.
//
// This is typically called by the backward pass or when gradients for a
// master copy are derived from its half precision twin.
func (p *Parameter) SetGrad(grad *tensor.RawTensor) {
	p.grad = grad
}

// AccumulateGrad adds g into the parameter's gradient, taking ownership
// of g. The first call after ZeroGrad adopts g directly; subsequent calls
// sum through the backend, so a parameter reached more than once per step
// (shared weights, gradient accumulation across microbatches) keeps the
// running total.
func (p *Parameter) AccumulateGrad(g *tensor.RawTensor, backend tensor.Backend) {
	if p.grad == nil {
		p.grad = g
		return
	}
	sum := backend.Add(p.grad, g)
	p.grad.Release()
	g.Release()
	p.grad = sum
}

// ZeroGrad clears the gradient tensor.
//
// This should be called before each training iteration to avoid
// accumulating gradients from previous iterations.
func (p *Parameter) ZeroGrad() {
	if p.grad != nil {
		p.grad.Release()
		p.grad = nil
	}
}

// RequiresGrad reports whether the parameter participates in training.
func (p *Parameter) RequiresGrad() bool {
	return p.requiresGrad
}

// SetRequiresGrad freezes or unfreezes the parameter.
func (p *Parameter) SetRequiresGrad(v bool) {
	p.requiresGrad = v
}

// ParallelMeta returns the partitioning descriptor.
func (p *Parameter) ParallelMeta() ParallelMeta {
	return p.meta
}

// SetParallelMeta attaches a partitioning descriptor.
func (p *Parameter) SetParallelMeta(meta ParallelMeta) {
	p.meta = meta
}

// NewMaster creates a float32 master copy of a half precision parameter.
//
// The master gets its own buffer (later in-place updates to either side
// never leak across), its own fresh ID, and a copy of the parallel
// metadata. Gradients are not copied; they are reassigned every step.
func (p *Parameter) NewMaster() (*Parameter, error) {
	if !p.value.DType().IsHalf() {
		return nil, fmt.Errorf("parameter %q: master copies are only created for half precision values, got %s",
			p.name, p.value.DType())
	}

	master, err := tensor.NewRaw(p.value.Shape(), tensor.Float32, p.value.Device())
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", p.name, err)
	}
	if err := master.SetFloat32Values(p.value.Float32Values()); err != nil {
		return nil, fmt.Errorf("parameter %q: %w", p.name, err)
	}

	m := NewParameter(p.name, master)
	m.requiresGrad = p.requiresGrad
	m.meta = p.meta
	return m, nil
}
