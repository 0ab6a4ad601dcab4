// Package amp implements mixed precision training: a wrapper that lets any
// base optimizer update half precision (float16/bfloat16) parameters
// through float32 master copies, with a dynamic loss scale and distributed
// overflow agreement.
//
// The wrapper maintains three parallel views of each parameter group:
//
//   - the half precision live parameters the model computes with,
//   - their float32 masters, substituted into the base optimizer in place
//     of the lives at construction,
//   - the group's float32 parameters, which need no master.
//
// Lives and masters are paired one-to-one by position and the pairing never
// changes after construction. Each Step moves the live gradients onto the
// masters in full precision, unscales them, agrees on an overflow flag
// across the data parallel and model parallel groups, and either applies
// the base optimizer and narrows the masters back into the lives, or skips
// the step everywhere. A single non-finite gradient on any rank skips the
// step on every rank; no partial update ever lands.
package amp

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/dist"
	"github.com/tandem-ml/tandem/internal/logger"
	"github.com/tandem-ml/tandem/internal/memtrace"
	"github.com/tandem-ml/tandem/internal/nn"
	"github.com/tandem-ml/tandem/internal/optim"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// BackwardFunc runs the automatic differentiation backward pass for a loss
// tensor, seeding it with the given loss scale. The function is expected to
// leave scaled gradients attached to the model's parameters; the optimizer
// removes the scale again during Step.
type BackwardFunc func(loss *tensor.RawTensor, scale float64) error

// Config carries the optimizer's collaborators and knobs. Backend and the
// scaler are required and passed to the constructor directly; everything
// here has a usable zero value.
type Config struct {
	// ClipGradNorm caps the global gradient norm before the update.
	// Zero disables clipping.
	ClipGradNorm float64

	// Groups resolves the data parallel and model parallel process
	// groups. Nil means single process: reductions are local no-ops.
	Groups dist.Provider

	// Backward is invoked by Backward with the current loss scale.
	// Optional; training loops that drive their own backward pass and
	// only call Step can leave it unset.
	Backward BackwardFunc

	// Tracer accounts master and gradient memory. Nil disables.
	Tracer *memtrace.Tracer

	// Logger receives diagnostics when Verbose is set. Nil discards.
	Logger logger.Logger

	// Verbose enables step skip and scale adjustment logging. It has no
	// behavioral effect.
	Verbose bool
}

// MixedPrecisionOptimizer wraps a base optimizer for mixed precision
// training. It owns the base optimizer's parameter group contents between
// steps: callers must not mutate live parameter values or the group slices
// while the wrapper is in use.
type MixedPrecisionOptimizer struct {
	base    optim.Optimizer
	scaler  GradScaler
	backend tensor.Backend

	clipGradNorm float64
	dpGroup      dist.Group
	mpGroup      dist.Group
	backward     BackwardFunc
	tracer       *memtrace.Tracer
	log          logger.Logger
	verbose      bool

	// Parallel group views, indexed together with base.Groups().
	// halfGroups[g][i] is the live parameter paired with
	// masterGroups[g][i]; fullGroups[g] holds the group's float32
	// parameters, which the base optimizer updates directly.
	halfGroups   [][]*nn.Parameter
	masterGroups [][]*nn.Parameter
	fullGroups   [][]*nn.Parameter

	// overflowBuf is the scratch buffer for the batched master-to-live
	// copy. Allocated once at construction.
	overflowBuf *tensor.RawTensor
}

// NewMixedPrecisionOptimizer wraps base for mixed precision training.
//
// For every half precision parameter in the base optimizer's groups a
// float32 master is cloned from the current values, the master replaces the
// live parameter in the base optimizer's slot, and any per-parameter state
// moves from the live parameter's ID to the master's. Parameters that are
// neither half precision nor float32 are a configuration error. The base
// optimizer's state is round-tripped through its own snapshot at the end so
// internal caches observe the substitution.
func NewMixedPrecisionOptimizer(base optim.Optimizer, scaler GradScaler, backend tensor.Backend, cfg Config) (*MixedPrecisionOptimizer, error) {
	if base == nil {
		return nil, fmt.Errorf("amp: base optimizer is required")
	}
	if scaler == nil {
		return nil, fmt.Errorf("amp: grad scaler is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("amp: backend is required")
	}
	if cfg.ClipGradNorm < 0 {
		return nil, fmt.Errorf("amp: clip grad norm must not be negative, got %v", cfg.ClipGradNorm)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	o := &MixedPrecisionOptimizer{
		base:         base,
		scaler:       scaler,
		backend:      backend,
		clipGradNorm: cfg.ClipGradNorm,
		backward:     cfg.Backward,
		tracer:       cfg.Tracer,
		log:          log,
		verbose:      cfg.Verbose,
	}
	if cfg.Groups != nil {
		o.dpGroup = cfg.Groups.Group(dist.RoleData)
		o.mpGroup = cfg.Groups.Group(dist.RoleModel)
	}

	if err := o.buildMasterGroups(); err != nil {
		return nil, err
	}

	// Round-trip the base optimizer's own state so anything it derives
	// from its state dict is rebuilt against the re-keyed parameters.
	snap, err := base.StateDict()
	if err != nil {
		return nil, fmt.Errorf("amp: snapshot base optimizer: %w", err)
	}
	if err := base.LoadStateDict(snap); err != nil {
		return nil, fmt.Errorf("amp: restore base optimizer: %w", err)
	}

	o.overflowBuf = tensor.RawZeros(tensor.Shape{1}, tensor.Int32)

	if o.verbose {
		halves := 0
		for _, g := range o.halfGroups {
			halves += len(g)
		}
		o.log.Info("mixed precision optimizer ready",
			"half_params", halves,
			"clip_grad_norm", o.clipGradNorm,
			"scale", o.scaler.Scale(),
			"data_parallel", groupSize(o.dpGroup),
			"model_parallel", groupSize(o.mpGroup))
	}
	return o, nil
}

// buildMasterGroups partitions every group by precision class and
// substitutes float32 masters for the half precision entries.
func (o *MixedPrecisionOptimizer) buildMasterGroups() error {
	for _, group := range o.base.Groups() {
		var halves, masters, fulls []*nn.Parameter

		for i, p := range group.Params {
			if !p.RequiresGrad() {
				continue
			}
			switch dt := p.Value().DType(); {
			case dt.IsHalf():
				master, err := p.NewMaster()
				if err != nil {
					return fmt.Errorf("amp: %w", err)
				}
				o.tracer.AddTensor(master.Value())

				// Substitute the master into the base optimizer's
				// slot and carry the per-parameter state across.
				group.Params[i] = master
				o.base.State().Rekey(p.ID(), master.ID())

				halves = append(halves, p)
				masters = append(masters, master)
			case dt == tensor.Float32:
				fulls = append(fulls, p)
			default:
				return fmt.Errorf("amp: parameter %q has dtype %s; mixed precision training supports float16, bfloat16 and float32",
					p.Name(), dt)
			}
		}

		o.halfGroups = append(o.halfGroups, halves)
		o.masterGroups = append(o.masterGroups, masters)
		o.fullGroups = append(o.fullGroups, fulls)
	}
	return nil
}

// Base returns the wrapped optimizer. The groups it exposes hold the
// masters, not the half precision lives.
func (o *MixedPrecisionOptimizer) Base() optim.Optimizer {
	return o.base
}

// Scaler returns the loss scaler.
func (o *MixedPrecisionOptimizer) Scaler() GradScaler {
	return o.scaler
}

// LossScale returns the current loss scale.
func (o *MixedPrecisionOptimizer) LossScale() float64 {
	return o.scaler.Scale()
}

// MasterPairs calls fn for every (live, master) pair in group order.
func (o *MixedPrecisionOptimizer) MasterPairs(fn func(live, master *nn.Parameter)) {
	for g := range o.halfGroups {
		for i := range o.halfGroups[g] {
			fn(o.halfGroups[g][i], o.masterGroups[g][i])
		}
	}
}

func groupSize(g dist.Group) int {
	if g == nil {
		return 1
	}
	return g.Size()
}
