package serialization

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tandem-ml/tandem/internal/amp"
	"github.com/tandem-ml/tandem/internal/backend/cpu"
	"github.com/tandem-ml/tandem/internal/nn"
	"github.com/tandem-ml/tandem/internal/optim"
	"github.com/tandem-ml/tandem/internal/tensor"
)

func TestCheckpointRoundTrip(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "ckpt.tndm")

	dict := &amp.StateDict{
		Base: &optim.StateDict{
			Algo: "sgd",
			Step: 7,
			Groups: []optim.GroupState{
				{LR: 0.1, WeightDecay: 0.01, Size: 2},
			},
			Params: map[int]map[string]*tensor.RawTensor{
				0: {"velocity": tensor.RawFrom([]float32{1, 2}, tensor.Shape{2}, tensor.Float32)},
				1: {"velocity": tensor.RawFrom([]float32{3}, tensor.Shape{1}, tensor.Float32)},
			},
		},
		Scaler: &amp.ScalerSnapshot{
			Scale:             1024,
			MaxScale:          65536,
			GrowthTracker:     1,
			HysteresisTracker: 2,
		},
		Masters: [][]*tensor.RawTensor{
			{
				tensor.RawFrom([]float32{0.5, -0.5}, tensor.Shape{2}, tensor.Float32),
				tensor.RawFrom([]float32{2.25}, tensor.Shape{1}, tensor.Float32),
			},
		},
	}

	require.NoError(t, SaveCheckpoint(path, dict, map[string]string{"run": "test"}))

	got, err := LoadCheckpoint(path, backend)
	require.NoError(t, err)

	assert.Equal(t, "sgd", got.Base.Algo)
	assert.Equal(t, int64(7), got.Base.Step)
	assert.Equal(t, dict.Base.Groups, got.Base.Groups)

	require.Len(t, got.Base.Params, 2)
	assert.Equal(t, []float32{1, 2}, got.Base.Params[0]["velocity"].AsFloat32())
	assert.Equal(t, []float32{3}, got.Base.Params[1]["velocity"].AsFloat32())

	require.NotNil(t, got.Scaler)
	assert.Equal(t, *dict.Scaler, *got.Scaler)

	require.Len(t, got.Masters, 1)
	require.Len(t, got.Masters[0], 2)
	assert.Equal(t, []float32{0.5, -0.5}, got.Masters[0][0].AsFloat32())
	assert.Equal(t, []float32{2.25}, got.Masters[0][1].AsFloat32())
}

func TestCheckpointWithoutMastersOrScaler(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "bare.tndm")

	dict := &amp.StateDict{
		Base: &optim.StateDict{
			Algo:   "adam",
			Step:   1,
			Groups: []optim.GroupState{{LR: 0.001, Size: 1}},
			Params: map[int]map[string]*tensor.RawTensor{},
		},
	}
	require.NoError(t, SaveCheckpoint(path, dict, nil))

	got, err := LoadCheckpoint(path, backend)
	require.NoError(t, err)
	assert.Equal(t, "adam", got.Base.Algo)
	assert.Nil(t, got.Scaler)
	assert.Nil(t, got.Masters)
}

func TestCheckpointThroughOptimizer(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "train.tndm")

	newWrapped := func(initial float32) (*amp.MixedPrecisionOptimizer, *nn.Parameter) {
		live := nn.NewParameter("w", tensor.RawFrom([]float32{initial}, tensor.Shape{1}, tensor.Float16))
		base := optim.NewSGD([]*optim.Group{optim.NewGroup([]*nn.Parameter{live}, 0.1)},
			optim.SGDConfig{Momentum: 0.9})
		scaler, err := amp.NewDynamicGradScaler(amp.ScalerConfig{
			InitialScale:   8,
			MinScale:       1,
			GrowthFactor:   2,
			BackoffFactor:  0.5,
			GrowthInterval: 100,
			Hysteresis:     1,
		})
		require.NoError(t, err)
		o, err := amp.NewMixedPrecisionOptimizer(base, scaler, backend, amp.Config{})
		require.NoError(t, err)
		return o, live
	}

	// Train one step: true gradient 0.5 arrives scaled by 8.
	o1, live := newWrapped(1.0)
	live.SetGrad(tensor.RawFrom([]float32{4.0}, tensor.Shape{1}, tensor.Float16))
	res, err := o1.Step(context.Background())
	require.NoError(t, err)
	require.True(t, res.Stepped)

	// master = 1.0 - 0.1 * 0.5 = 0.95
	dict, err := o1.StateDict()
	require.NoError(t, err)
	require.NoError(t, SaveCheckpoint(path, dict, nil))

	loaded, err := LoadCheckpoint(path, backend)
	require.NoError(t, err)

	// Restore into a freshly built optimizer over different live values.
	o2, _ := newWrapped(0.0)
	require.NoError(t, o2.LoadStateDict(loaded))

	assert.Equal(t, float64(8), o2.LossScale())
	o2.MasterPairs(func(_, master *nn.Parameter) {
		assert.InDelta(t, 0.95, float64(master.Value().AsFloat32()[0]), 1e-6)
	})

	// The velocity buffer came back with the master's state.
	var sawVelocity bool
	for _, group := range o2.Base().Groups() {
		for _, p := range group.Params {
			if v, ok := o2.Base().State().Slot(p.ID(), "velocity"); ok {
				sawVelocity = true
				assert.InDelta(t, 0.5, float64(v.AsFloat32()[0]), 1e-6)
			}
		}
	}
	assert.True(t, sawVelocity, "restored optimizer should hold the velocity slot")
}

func TestLoadCheckpointRejectsPlainContainer(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "plain.tndm")

	tensors := map[string]*tensor.RawTensor{
		"w": tensor.RawFrom([]float32{1}, tensor.Shape{1}, tensor.Float32),
	}
	require.NoError(t, WriteFile(path, tensors, Header{}))

	_, err := LoadCheckpoint(path, backend)
	assert.ErrorIs(t, err, ErrNotCheckpoint)
}

func TestSaveCheckpointRejectsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nil.tndm")
	assert.Error(t, SaveCheckpoint(path, nil, nil))
	assert.Error(t, SaveCheckpoint(path, &amp.StateDict{}, nil))
}
