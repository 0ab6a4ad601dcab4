package amp

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/optim"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// StateDict is the checkpoint payload of a mixed precision optimizer: the
// base optimizer's state, the scaler's mutable state, and a deep copy of
// every master value ordered by group and pair position. The live half
// precision values are not included; they are rederived from the masters on
// the first successful step after a restore.
type StateDict struct {
	Base    *optim.StateDict
	Scaler  *ScalerSnapshot
	Masters [][]*tensor.RawTensor
}

// StateDict captures the optimizer's full checkpoint state. The master
// values are deep copies; mutating them later does not affect training.
func (o *MixedPrecisionOptimizer) StateDict() (*StateDict, error) {
	baseState, err := o.base.StateDict()
	if err != nil {
		return nil, fmt.Errorf("amp: snapshot base optimizer: %w", err)
	}

	snap := o.scaler.Snapshot()
	dict := &StateDict{
		Base:    baseState,
		Scaler:  &snap,
		Masters: make([][]*tensor.RawTensor, len(o.masterGroups)),
	}
	for g, group := range o.masterGroups {
		dict.Masters[g] = make([]*tensor.RawTensor, len(group))
		for i, p := range group {
			dict.Masters[g][i] = p.Value().DeepCopy()
		}
	}
	return dict, nil
}

// LoadStateDict restores a checkpoint. The base optimizer state is restored
// verbatim, the scaler state is restored when present, and master values
// are copied into the existing master buffers position for position when
// present. Masters are never reallocated or reordered; a checkpoint whose
// group or pair layout disagrees with the current optimizer is rejected.
func (o *MixedPrecisionOptimizer) LoadStateDict(dict *StateDict) error {
	if dict == nil {
		return fmt.Errorf("amp: nil state dict")
	}

	if err := o.base.LoadStateDict(dict.Base); err != nil {
		return fmt.Errorf("amp: restore base optimizer: %w", err)
	}

	if dict.Scaler != nil {
		if err := o.scaler.Restore(*dict.Scaler); err != nil {
			return err
		}
	}

	if dict.Masters == nil {
		return nil
	}
	if len(dict.Masters) != len(o.masterGroups) {
		return fmt.Errorf("amp: checkpoint has %d master groups, optimizer has %d",
			len(dict.Masters), len(o.masterGroups))
	}
	for g, group := range dict.Masters {
		if len(group) != len(o.masterGroups[g]) {
			return fmt.Errorf("amp: checkpoint group %d has %d masters, optimizer has %d",
				g, len(group), len(o.masterGroups[g]))
		}
		for i, saved := range group {
			current := o.masterGroups[g][i].Value()
			if !saved.Shape().Equal(current.Shape()) {
				return fmt.Errorf("amp: checkpoint master %d/%d has shape %v, optimizer has %v",
					g, i, saved.Shape(), current.Shape())
			}
			o.backend.Copy(current, saved)
		}
	}
	return nil
}
