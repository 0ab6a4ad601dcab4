// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//   - ClipGradNorm: Global gradient norm clipping
//
// Parameters are organized into groups, each with its own learning rate and
// weight decay. Per-parameter state (momentum buffers, Adam moments) is keyed
// by the parameter's integer ID, so a wrapper may swap a parameter for its
// float32 master copy and carry the state across with State.Rekey.
//
// Example usage:
//
//	optimizer := optim.NewAdam([]*optim.Group{
//	    optim.NewGroup(model.Parameters(), 0.001),
//	}, optim.AdamConfig{})
//
//	for step := range steps {
//	    runForwardBackward(model)     // attaches gradients to parameters
//	    if err := optimizer.Step(); err != nil {
//	        return err
//	    }
//	    optimizer.ZeroGrad()
//	}
package optim

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/nn"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Group is a set of parameters sharing hyperparameters.
type Group struct {
	Params      []*nn.Parameter
	LR          float64 // Learning rate
	WeightDecay float64 // L2 penalty coefficient
}

// NewGroup creates a parameter group with the given learning rate and no
// weight decay.
func NewGroup(params []*nn.Parameter, lr float64) *Group {
	return &Group{Params: params, LR: lr}
}

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers read gradients attached to their parameters and update the
// parameter values in place. Wrappers rely on the full surface: Groups and
// State for parameter substitution, StateDict and LoadStateDict for
// checkpointing.
type Optimizer interface {
	// Groups returns the live parameter groups. Callers may replace
	// entries in a group's Params slice; the optimizer must pick up the
	// substitution on the next Step.
	Groups() []*Group

	// State returns the per-parameter state store.
	State() *State

	// Step applies one update using the gradients currently attached to
	// the parameters. Parameters without a gradient are skipped.
	Step() error

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// StateDict captures a deep snapshot of the optimizer state.
	StateDict() (*StateDict, error)

	// LoadStateDict restores a snapshot position-for-position onto the
	// current parameters.
	LoadStateDict(dict *StateDict) error
}

// State stores per-parameter slot tensors keyed by parameter ID.
type State struct {
	slots map[int]map[string]*tensor.RawTensor
}

// NewState creates an empty state store.
func NewState() *State {
	return &State{slots: make(map[int]map[string]*tensor.RawTensor)}
}

// Slot returns the named slot tensor for a parameter, or false when the
// parameter has no such slot yet.
func (s *State) Slot(paramID int, name string) (*tensor.RawTensor, bool) {
	slots, ok := s.slots[paramID]
	if !ok {
		return nil, false
	}
	t, ok := slots[name]
	return t, ok
}

// SetSlot stores a slot tensor for a parameter.
func (s *State) SetSlot(paramID int, name string, t *tensor.RawTensor) {
	slots, ok := s.slots[paramID]
	if !ok {
		slots = make(map[string]*tensor.RawTensor)
		s.slots[paramID] = slots
	}
	slots[name] = t
}

// Rekey moves all slots from oldID to newID and reports whether anything
// moved. Used when a parameter is substituted by its master copy.
func (s *State) Rekey(oldID, newID int) bool {
	slots, ok := s.slots[oldID]
	if !ok {
		return false
	}
	delete(s.slots, oldID)
	s.slots[newID] = slots
	return true
}

// Drop removes all slots for a parameter.
func (s *State) Drop(paramID int) {
	delete(s.slots, paramID)
}

// Len returns the number of parameters with state.
func (s *State) Len() int {
	return len(s.slots)
}

// GroupState is the persisted form of a Group's hyperparameters.
type GroupState struct {
	LR          float64 `json:"lr"`
	WeightDecay float64 `json:"weight_decay"`
	Size        int     `json:"size"`
}

// StateDict is a deep snapshot of optimizer state.
//
// Slot tensors are keyed by the parameter's ordinal position across all
// groups rather than its ID: IDs are process-local and do not survive a
// restart, positions do.
type StateDict struct {
	Algo   string
	Step   int64
	Groups []GroupState
	Params map[int]map[string]*tensor.RawTensor
}

// base carries the group, state, and snapshot plumbing shared by the
// concrete optimizers.
type base struct {
	groups []*Group
	state  *State
	step   int64
}

func newBase(groups []*Group) base {
	return base{groups: groups, state: NewState()}
}

// Groups returns the live parameter groups.
func (b *base) Groups() []*Group {
	return b.groups
}

// State returns the per-parameter state store.
func (b *base) State() *State {
	return b.state
}

// ZeroGrad clears gradients for all parameters.
func (b *base) ZeroGrad() {
	for _, g := range b.groups {
		for _, p := range g.Params {
			p.ZeroGrad()
		}
	}
}

// StepCount returns the number of completed update steps.
func (b *base) StepCount() int64 {
	return b.step
}

// checkParam validates that a parameter is eligible for an fp32 update.
func checkParam(p *nn.Parameter) error {
	if p.Value().DType() != tensor.Float32 {
		return fmt.Errorf("optim: parameter %q has dtype %s; optimizers update float32 values only "+
			"(half precision parameters need a master copy)", p.Name(), p.Value().DType())
	}
	if g := p.Grad(); g != nil && g.DType() != tensor.Float32 {
		return fmt.Errorf("optim: gradient for %q has dtype %s, want float32", p.Name(), g.DType())
	}
	if g := p.Grad(); g != nil && !g.Shape().Equal(p.Value().Shape()) {
		return fmt.Errorf("optim: gradient shape %v for %q does not match value shape %v",
			p.Grad().Shape(), p.Name(), p.Value().Shape())
	}
	return nil
}

// snapshot deep-copies the state slots into a position-keyed dict.
func (b *base) snapshot(algo string) (*StateDict, error) {
	dict := &StateDict{
		Algo:   algo,
		Step:   b.step,
		Groups: make([]GroupState, 0, len(b.groups)),
		Params: make(map[int]map[string]*tensor.RawTensor),
	}

	pos := 0
	for _, g := range b.groups {
		dict.Groups = append(dict.Groups, GroupState{
			LR:          g.LR,
			WeightDecay: g.WeightDecay,
			Size:        len(g.Params),
		})
		for _, p := range g.Params {
			if slots, ok := b.state.slots[p.ID()]; ok {
				cp := make(map[string]*tensor.RawTensor, len(slots))
				for name, t := range slots {
					cp[name] = t.DeepCopy()
				}
				dict.Params[pos] = cp
			}
			pos++
		}
	}

	return dict, nil
}

// restore loads a position-keyed dict onto the current parameters.
func (b *base) restore(algo string, dict *StateDict) error {
	if dict == nil {
		return fmt.Errorf("optim: nil state dict")
	}
	if dict.Algo != algo {
		return fmt.Errorf("optim: state dict holds %q state, optimizer is %q", dict.Algo, algo)
	}
	if len(dict.Groups) != len(b.groups) {
		return fmt.Errorf("optim: state dict has %d groups, optimizer has %d", len(dict.Groups), len(b.groups))
	}
	for i, gs := range dict.Groups {
		if gs.Size != len(b.groups[i].Params) {
			return fmt.Errorf("optim: group %d holds %d parameters, state dict expects %d",
				i, len(b.groups[i].Params), gs.Size)
		}
	}

	b.step = dict.Step
	b.state = NewState()

	pos := 0
	for i, g := range b.groups {
		g.LR = dict.Groups[i].LR
		g.WeightDecay = dict.Groups[i].WeightDecay
		for _, p := range g.Params {
			if slots, ok := dict.Params[pos]; ok {
				for name, t := range slots {
					if !t.Shape().Equal(p.Value().Shape()) {
						return fmt.Errorf("optim: slot %q at position %d has shape %v, parameter %q has %v",
							name, pos, t.Shape(), p.Name(), p.Value().Shape())
					}
					b.state.SetSlot(p.ID(), name, t.DeepCopy())
				}
			}
			pos++
		}
	}

	return nil
}

// slotOrZeros fetches the named slot, allocating a zero buffer shaped like
// the parameter on first use.
func (b *base) slotOrZeros(p *nn.Parameter, name string) *tensor.RawTensor {
	if t, ok := b.state.Slot(p.ID(), name); ok {
		return t
	}
	t := tensor.RawZeros(p.Value().Shape(), tensor.Float32)
	b.state.SetSlot(p.ID(), name, t)
	return t
}
