package serialization

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tandem-ml/tandem/internal/amp"
	"github.com/tandem-ml/tandem/internal/optim"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// trainingState is the JSON document stored under the header's
// training_state key. Tensor-valued state (optimizer slot buffers, master
// values) lives in the tensor section under synthesized names; everything
// scalar lands here.
type trainingState struct {
	Algo         string              `json:"algo"`
	Step         int64               `json:"step"`
	Groups       []optim.GroupState  `json:"groups"`
	Scaler       *amp.ScalerSnapshot `json:"scaler,omitempty"`
	MasterGroups []int               `json:"master_groups,omitempty"`
}

// Tensor name prefixes inside a checkpoint. Slot buffers are keyed by the
// parameter's ordinal position ("optim.<pos>.<slot>"), master values by
// group and pair position ("master.<group>.<index>").
const (
	optimPrefix  = "optim"
	masterPrefix = "master"
)

// SaveCheckpoint persists a mixed precision optimizer snapshot to path as a
// .tndm container. The write is atomic.
func SaveCheckpoint(path string, dict *amp.StateDict, metadata map[string]string) error {
	if dict == nil || dict.Base == nil {
		return fmt.Errorf("serialization: nil state dict")
	}

	tensors := make(map[string]*tensor.RawTensor)
	for pos, slots := range dict.Base.Params {
		for slot, t := range slots {
			tensors[fmt.Sprintf("%s.%d.%s", optimPrefix, pos, slot)] = t
		}
	}

	var masterGroups []int
	if dict.Masters != nil {
		masterGroups = make([]int, len(dict.Masters))
		for g, group := range dict.Masters {
			masterGroups[g] = len(group)
			for i, t := range group {
				tensors[fmt.Sprintf("%s.%d.%d", masterPrefix, g, i)] = t
			}
		}
	}

	state := trainingState{
		Algo:         dict.Base.Algo,
		Step:         dict.Base.Step,
		Groups:       dict.Base.Groups,
		Scaler:       dict.Scaler,
		MasterGroups: masterGroups,
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serialization: marshal training state: %w", err)
	}

	header := Header{
		TrainingState: stateJSON,
		Metadata:      metadata,
	}
	return WriteFile(path, tensors, header)
}

// LoadCheckpoint reads a checkpoint saved by SaveCheckpoint and rebuilds
// the optimizer snapshot. Tensors under unrecognized names are skipped, so
// a newer writer can add sections without breaking older readers.
func LoadCheckpoint(path string, backend tensor.Backend) (*amp.StateDict, error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()

	header := r.Header()
	if len(header.TrainingState) == 0 {
		return nil, ErrNotCheckpoint
	}
	var state trainingState
	if err := json.Unmarshal(header.TrainingState, &state); err != nil {
		return nil, fmt.Errorf("serialization: parse training state: %w", err)
	}

	dict := &amp.StateDict{
		Base: &optim.StateDict{
			Algo:   state.Algo,
			Step:   state.Step,
			Groups: state.Groups,
			Params: make(map[int]map[string]*tensor.RawTensor),
		},
		Scaler: state.Scaler,
	}
	if state.MasterGroups != nil {
		dict.Masters = make([][]*tensor.RawTensor, len(state.MasterGroups))
		for g, n := range state.MasterGroups {
			dict.Masters[g] = make([]*tensor.RawTensor, n)
		}
	}

	for _, meta := range header.Tensors {
		parts := strings.SplitN(meta.Name, ".", 3)
		switch {
		case len(parts) == 3 && parts[0] == optimPrefix:
			pos, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("serialization: bad slot name %q: %w", meta.Name, err)
			}
			t, err := r.LoadTensor(meta.Name, backend)
			if err != nil {
				return nil, err
			}
			slots := dict.Base.Params[pos]
			if slots == nil {
				slots = make(map[string]*tensor.RawTensor)
				dict.Base.Params[pos] = slots
			}
			slots[parts[2]] = t

		case len(parts) == 3 && parts[0] == masterPrefix:
			g, err1 := strconv.Atoi(parts[1])
			i, err2 := strconv.Atoi(parts[2])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("serialization: bad master name %q", meta.Name)
			}
			if g < 0 || g >= len(dict.Masters) || i < 0 || i >= len(dict.Masters[g]) {
				return nil, fmt.Errorf("serialization: master %q outside declared layout", meta.Name)
			}
			t, err := r.LoadTensor(meta.Name, backend)
			if err != nil {
				return nil, err
			}
			dict.Masters[g][i] = t
		}
	}

	for g, group := range dict.Masters {
		for i, t := range group {
			if t == nil {
				return nil, fmt.Errorf("serialization: checkpoint is missing master %d.%d", g, i)
			}
		}
	}

	return dict, nil
}
